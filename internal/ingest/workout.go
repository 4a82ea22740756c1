package ingest

import (
	"sort"
	"time"

	"coachspine/internal/apperr"
	"coachspine/internal/domain"
)

// TrackerSetType mirrors the tracker's set-type vocabulary.
type TrackerSetType string

const (
	SetWarmup  TrackerSetType = "warmup"
	SetNormal  TrackerSetType = "normal"
	SetFailure TrackerSetType = "failure"
	SetDropset TrackerSetType = "dropset"
)

// TrackerSet is one logged set inside a tracker exercise entry. Weight is
// kilograms, matching the tracker's unit contract.
type TrackerSet struct {
	Type     TrackerSetType `json:"type"`
	WeightKg float64        `json:"weight_kg"`
	Reps     int            `json:"reps"`
}

// TrackerExercise is one exercise entry within a workout, carrying the
// template id the exercise-template snapshot resolves to a primary
// muscle target.
type TrackerExercise struct {
	ExerciseTemplateID string       `json:"exercise_template_id"`
	Title              string       `json:"title"`
	Sets               []TrackerSet `json:"sets"`
}

// TrackerWorkout is the structured object the MCP client returns for one
// workout.
type TrackerWorkout struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	StartTime string            `json:"start_time"` // RFC3339, tracker-supplied
	Exercises []TrackerExercise `json:"exercises"`
}

// ExerciseTemplateIndex resolves a tracker exercise-template id to its
// primary muscle target: a small read-only reference list loaded once,
// cached in-process, and invalidated manually.
type ExerciseTemplateIndex map[string]domain.MuscleGroup

// workoutTimeLayouts are the start-time shapes the tracker has been seen
// emitting: full RFC3339, and a bare date on workouts logged without a
// clock time.
var workoutTimeLayouts = []string{time.RFC3339, "2006-01-02"}

// ImportWorkout computes total_sets, total_volume (Σ weight×reps over
// working sets — warmup sets don't count toward volume), and the distinct
// primary muscle targets of a tracker workout, using templates to resolve
// each exercise to a muscle group. The workout date comes from the
// tracker's start_time; a workout whose start_time cannot be parsed is
// rejected rather than cached at the zero time, since every date-ordered
// read path (dashboard heatmap, weekly volume) keys on workout_date.
func ImportWorkout(w TrackerWorkout, templates ExerciseTemplateIndex) (domain.WorkoutCache, error) {
	workoutDate, err := parseWorkoutTime(w.StartTime)
	if err != nil {
		return domain.WorkoutCache{}, apperr.WrapParse(err, "workout %s: start_time %q", w.ID, w.StartTime)
	}

	totalSets := 0
	var totalVolume float64
	muscleSet := map[domain.MuscleGroup]bool{}

	for _, ex := range w.Exercises {
		muscle, ok := templates[ex.ExerciseTemplateID]
		if ok {
			muscleSet[muscle] = true
		}

		for _, set := range ex.Sets {
			totalSets++
			if set.Type == SetWarmup {
				continue
			}
			totalVolume += set.WeightKg * float64(set.Reps)
		}
	}

	muscles := make([]domain.MuscleGroup, 0, len(muscleSet))
	for m := range muscleSet {
		muscles = append(muscles, m)
	}
	sort.Slice(muscles, func(i, j int) bool { return muscles[i] < muscles[j] })

	return domain.WorkoutCache{
		ExternalWorkoutID: w.ID,
		WorkoutDate:       workoutDate,
		Title:             w.Title,
		TotalSets:         totalSets,
		TotalVolumeKg:     totalVolume,
		MuscleGroups:      muscles,
		Payload:           map[string]any{"raw": w},
	}, nil
}

func parseWorkoutTime(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range workoutTimeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
