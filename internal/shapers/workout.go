package shapers

import (
	"context"
	"sort"
	"time"

	"coachspine/internal/domain"
	"coachspine/internal/store"

	"github.com/google/uuid"
)

const (
	workoutQuickCheckCount  = 7
	workoutDefaultWeeks     = 12
	workoutTopExerciseCount = 10
	workoutHistoricalMonths = 24
)

// WeeklyVolume is one week's total training volume and session count.
type WeeklyVolume struct {
	WeekStart     time.Time `json:"week_start"`
	TotalVolumeKg float64   `json:"total_volume_kg"`
	SessionCount  int       `json:"session_count"`
}

// ExerciseVolume is one exercise title's aggregate across the window —
// "top exercises" ranks by TotalVolumeKg descending.
type ExerciseVolume struct {
	Title         string  `json:"title"`
	TotalVolumeKg float64 `json:"total_volume_kg"`
	SessionCount  int     `json:"session_count"`
}

// WorkoutSummary is the response shape for workout_summary scenarios.
type WorkoutSummary struct {
	Scenario     Scenario         `json:"scenario"`
	RecentTitles []string         `json:"recent_titles,omitempty"`
	WeeklyVolume []WeeklyVolume   `json:"weekly_volume,omitempty"`
	TopExercises []ExerciseVolume `json:"top_exercises,omitempty"`
}

// WorkoutShaper backs the agent tool workout_summary(user, scenario).
type WorkoutShaper struct {
	workouts *store.WorkoutStore
}

func NewWorkoutShaper(workouts *store.WorkoutStore) *WorkoutShaper {
	return &WorkoutShaper{workouts: workouts}
}

func (s *WorkoutShaper) Summarize(ctx context.Context, userID uuid.UUID, scenario Scenario) (WorkoutSummary, error) {
	switch scenario {
	case ScenarioQuickCheck:
		return s.quickCheck(ctx, userID)
	default:
		return s.defaultScenario(ctx, userID)
	}
}

func (s *WorkoutShaper) quickCheck(ctx context.Context, userID uuid.UUID) (WorkoutSummary, error) {
	recent, err := s.workouts.ListRecent(ctx, userID, workoutQuickCheckCount)
	if err != nil {
		return WorkoutSummary{}, err
	}
	assertRowCap(ScenarioQuickCheck, "workout", len(recent), workoutQuickCheckCount)

	titles := make([]string, len(recent))
	for i, w := range recent {
		titles[i] = w.Title
	}
	return WorkoutSummary{Scenario: ScenarioQuickCheck, RecentTitles: titles}, nil
}

func (s *WorkoutShaper) defaultScenario(ctx context.Context, userID uuid.UUID) (WorkoutSummary, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -workoutDefaultWeeks*7)
	workouts, err := s.workouts.ListRange(ctx, userID, from, now)
	if err != nil {
		return WorkoutSummary{}, err
	}

	weekly := weeklyVolumeFrom(workouts, workoutDefaultWeeks)
	assertRowCap(ScenarioDefault, "weekly volume", len(weekly), workoutDefaultWeeks)

	top := topExercisesFrom(workouts, workoutTopExerciseCount)
	assertRowCap(ScenarioDefault, "top exercise", len(top), workoutTopExerciseCount)

	return WorkoutSummary{Scenario: ScenarioDefault, WeeklyVolume: weekly, TopExercises: top}, nil
}

func weeklyVolumeFrom(workouts []domain.WorkoutCache, capWeeks int) []WeeklyVolume {
	byWeek := map[time.Time]*WeeklyVolume{}
	for _, w := range workouts {
		ws := mondayOf(w.WorkoutDate)
		acc, ok := byWeek[ws]
		if !ok {
			acc = &WeeklyVolume{WeekStart: ws}
			byWeek[ws] = acc
		}
		acc.TotalVolumeKg += w.TotalVolumeKg
		acc.SessionCount++
	}

	out := make([]WeeklyVolume, 0, len(byWeek))
	for _, acc := range byWeek {
		out = append(out, *acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WeekStart.After(out[j].WeekStart) })

	if len(out) > capWeeks {
		out = out[:capWeeks]
	}
	return out
}

// topExercisesFrom groups workouts by their whole-workout Title and ranks
// the groups by total volume; the per-exercise entries inside
// WorkoutCache.Payload are not read.
func topExercisesFrom(workouts []domain.WorkoutCache, capCount int) []ExerciseVolume {
	byTitle := map[string]*ExerciseVolume{}
	for _, w := range workouts {
		acc, ok := byTitle[w.Title]
		if !ok {
			acc = &ExerciseVolume{Title: w.Title}
			byTitle[w.Title] = acc
		}
		acc.TotalVolumeKg += w.TotalVolumeKg
		acc.SessionCount++
	}

	out := make([]ExerciseVolume, 0, len(byTitle))
	for _, acc := range byTitle {
		out = append(out, *acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TotalVolumeKg > out[j].TotalVolumeKg })

	if len(out) > capCount {
		out = out[:capCount]
	}
	return out
}
