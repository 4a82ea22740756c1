package domain

// MuscleGroup is a trackable muscle region extracted from exercise templates
// by the tracker-workout importer (WorkoutCache.muscle_groups) and grouped
// by the dashboard muscle-split aggregation.
type MuscleGroup string

const (
	MuscleChest      MuscleGroup = "chest"
	MuscleFrontDelt  MuscleGroup = "front_delt"
	MuscleTriceps    MuscleGroup = "triceps"
	MuscleSideDelt   MuscleGroup = "side_delt"
	MuscleLats       MuscleGroup = "lats"
	MuscleTraps      MuscleGroup = "traps"
	MuscleBiceps     MuscleGroup = "biceps"
	MuscleRearDelt   MuscleGroup = "rear_delt"
	MuscleForearms   MuscleGroup = "forearms"
	MuscleQuads      MuscleGroup = "quads"
	MuscleGlutes     MuscleGroup = "glutes"
	MuscleHamstrings MuscleGroup = "hamstrings"
	MuscleCalves     MuscleGroup = "calves"
	MuscleLowerBack  MuscleGroup = "lower_back"
	MuscleCore       MuscleGroup = "core"
)

// ValidMuscleGroups contains every muscle group the importer recognizes.
var ValidMuscleGroups = map[MuscleGroup]bool{
	MuscleChest:      true,
	MuscleFrontDelt:  true,
	MuscleTriceps:    true,
	MuscleSideDelt:   true,
	MuscleLats:       true,
	MuscleTraps:      true,
	MuscleBiceps:     true,
	MuscleRearDelt:   true,
	MuscleForearms:   true,
	MuscleQuads:      true,
	MuscleGlutes:     true,
	MuscleHamstrings: true,
	MuscleCalves:     true,
	MuscleLowerBack:  true,
	MuscleCore:       true,
}

// MuscleGroupDisplayNames provides human-readable labels for dashboard charts.
var MuscleGroupDisplayNames = map[MuscleGroup]string{
	MuscleChest:      "Chest",
	MuscleFrontDelt:  "Front Delts",
	MuscleTriceps:    "Triceps",
	MuscleSideDelt:   "Side Delts",
	MuscleLats:       "Lats",
	MuscleTraps:      "Traps",
	MuscleBiceps:     "Biceps",
	MuscleRearDelt:   "Rear Delts",
	MuscleForearms:   "Forearms",
	MuscleQuads:      "Quads",
	MuscleGlutes:     "Glutes",
	MuscleHamstrings: "Hamstrings",
	MuscleCalves:     "Calves",
	MuscleLowerBack:  "Lower Back",
	MuscleCore:       "Core/Abs",
}

// ParseMuscleGroup converts a free-text exercise-template target into a
// MuscleGroup, falling back to false when the tracker reports something
// outside the known vocabulary (new equipment, unmapped exercise, etc).
func ParseMuscleGroup(s string) (MuscleGroup, bool) {
	m := MuscleGroup(s)
	if !ValidMuscleGroups[m] {
		return "", false
	}
	return m, true
}
