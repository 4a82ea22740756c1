package ingest

import (
	"testing"
	"time"

	"coachspine/internal/domain"

	"github.com/stretchr/testify/require"
)

func TestImportWorkout(t *testing.T) {
	templates := ExerciseTemplateIndex{
		"bench-press": domain.MuscleChest,
		"ohp":         domain.MuscleFrontDelt,
	}

	w := TrackerWorkout{
		ID:        "w1",
		Title:     "Push Day",
		StartTime: "2024-06-03T17:30:00Z",
		Exercises: []TrackerExercise{
			{
				ExerciseTemplateID: "bench-press",
				Sets: []TrackerSet{
					{Type: SetWarmup, WeightKg: 40, Reps: 10},
					{Type: SetNormal, WeightKg: 80, Reps: 8},
					{Type: SetNormal, WeightKg: 80, Reps: 8},
				},
			},
			{
				ExerciseTemplateID: "ohp",
				Sets: []TrackerSet{
					{Type: SetNormal, WeightKg: 40, Reps: 10},
				},
			},
		},
	}

	cache, err := ImportWorkout(w, templates)
	require.NoError(t, err)

	require.Equal(t, "w1", cache.ExternalWorkoutID)
	require.Equal(t, time.Date(2024, time.June, 3, 17, 30, 0, 0, time.UTC), cache.WorkoutDate)
	require.Equal(t, 4, cache.TotalSets)
	require.Equal(t, 80.0*8*2+40*10, cache.TotalVolumeKg)
	require.ElementsMatch(t, []domain.MuscleGroup{domain.MuscleChest, domain.MuscleFrontDelt}, cache.MuscleGroups)
}

func TestImportWorkout_DateOnlyStartTime(t *testing.T) {
	cache, err := ImportWorkout(TrackerWorkout{ID: "w2", StartTime: "2024-06-04"}, nil)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, time.June, 4, 0, 0, 0, 0, time.UTC), cache.WorkoutDate)
}

func TestImportWorkout_RejectsUnparsableStartTime(t *testing.T) {
	_, err := ImportWorkout(TrackerWorkout{ID: "w3", StartTime: "yesterday"}, nil)
	require.Error(t, err)

	_, err = ImportWorkout(TrackerWorkout{ID: "w4"}, nil)
	require.Error(t, err, "a missing start_time must not cache a zero-dated workout")
}
