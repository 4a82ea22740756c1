package analysis

import (
	"context"

	"coachspine/internal/shapers"

	"github.com/google/uuid"
)

// HolisticSnapshot composes the default scenarios of all three shapers
// into a single response, for the agent's first turn in a new session.
type HolisticSnapshot struct {
	Nutrition shapers.NutritionSummary `json:"nutrition"`
	Workouts  shapers.WorkoutSummary   `json:"workouts"`
	Health    shapers.HealthSummary    `json:"health"`
}

// SnapshotBuilder holds the three shapers needed to assemble a snapshot.
type SnapshotBuilder struct {
	nutrition *shapers.NutritionShaper
	workouts  *shapers.WorkoutShaper
	health    *shapers.HealthShaper
}

func NewSnapshotBuilder(nutrition *shapers.NutritionShaper, workouts *shapers.WorkoutShaper, health *shapers.HealthShaper) *SnapshotBuilder {
	return &SnapshotBuilder{nutrition: nutrition, workouts: workouts, health: health}
}

// Build runs each shaper's default scenario and composes the result.
// The three calls are independent reads; a failure in one aborts the
// whole snapshot rather than returning a partial one, since the agent's
// first turn should not reason from incomplete context silently.
func (b *SnapshotBuilder) Build(ctx context.Context, userID uuid.UUID) (HolisticSnapshot, error) {
	nutrition, err := b.nutrition.Summarize(ctx, userID, shapers.ScenarioDefault)
	if err != nil {
		return HolisticSnapshot{}, err
	}
	workouts, err := b.workouts.Summarize(ctx, userID, shapers.ScenarioDefault)
	if err != nil {
		return HolisticSnapshot{}, err
	}
	health, err := b.health.Summarize(ctx, userID, shapers.ScenarioDefault)
	if err != nil {
		return HolisticSnapshot{}, err
	}
	return HolisticSnapshot{Nutrition: nutrition, Workouts: workouts, Health: health}, nil
}
