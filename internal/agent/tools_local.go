package agent

import (
	"context"
	"encoding/json"

	"coachspine/internal/analysis"
	"coachspine/internal/apperr"
	"coachspine/internal/shapers"
)

// scenarioArgs is the argument shape shared by every shaper tool.
type scenarioArgs struct {
	Scenario shapers.Scenario `json:"scenario"`
}

func parseScenarioArgs(raw json.RawMessage) (shapers.Scenario, error) {
	if len(raw) == 0 {
		return shapers.ScenarioDefault, nil
	}
	var args scenarioArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", apperr.WrapTool(err, "parsing scenario argument")
	}
	if args.Scenario == "" {
		return shapers.ScenarioDefault, nil
	}
	return args.Scenario, nil
}

// nutritionSummaryTool wires shapers.NutritionShaper as agent tool
// "nutrition_summary".
type nutritionSummaryTool struct {
	shaper *shapers.NutritionShaper
}

func NewNutritionSummaryTool(shaper *shapers.NutritionShaper) Tool {
	return &nutritionSummaryTool{shaper: shaper}
}

func (t *nutritionSummaryTool) Name() string { return "nutrition_summary" }
func (t *nutritionSummaryTool) Description() string {
	return "Returns a bounded summary of the user's nutrition log for the given scenario (quick_check, default, troubleshooting, historical)."
}

func (t *nutritionSummaryTool) InputSchema() map[string]any {
	return scenarioSchema()
}

func (t *nutritionSummaryTool) Invoke(ctx context.Context, rc *RunContext, raw json.RawMessage) (any, error) {
	scenario, err := parseScenarioArgs(raw)
	if err != nil {
		return nil, err
	}
	return t.shaper.Summarize(ctx, rc.UserID, scenario)
}

// workoutSummaryTool wires shapers.WorkoutShaper as agent tool
// "workout_summary".
type workoutSummaryTool struct {
	shaper *shapers.WorkoutShaper
}

func NewWorkoutSummaryTool(shaper *shapers.WorkoutShaper) Tool {
	return &workoutSummaryTool{shaper: shaper}
}

func (t *workoutSummaryTool) Name() string { return "workout_summary" }
func (t *workoutSummaryTool) Description() string {
	return "Returns a bounded summary of the user's workout history for the given scenario (quick_check, default)."
}
func (t *workoutSummaryTool) InputSchema() map[string]any { return scenarioSchema() }

func (t *workoutSummaryTool) Invoke(ctx context.Context, rc *RunContext, raw json.RawMessage) (any, error) {
	scenario, err := parseScenarioArgs(raw)
	if err != nil {
		return nil, err
	}
	return t.shaper.Summarize(ctx, rc.UserID, scenario)
}

// healthSummaryTool wires shapers.HealthShaper as agent tool
// "health_summary".
type healthSummaryTool struct {
	shaper *shapers.HealthShaper
}

func NewHealthSummaryTool(shaper *shapers.HealthShaper) Tool {
	return &healthSummaryTool{shaper: shaper}
}

func (t *healthSummaryTool) Name() string { return "health_summary" }
func (t *healthSummaryTool) Description() string {
	return "Returns a bounded summary of the user's health metrics (steps, weight, sleep) for the given scenario (quick_check, default)."
}
func (t *healthSummaryTool) InputSchema() map[string]any { return scenarioSchema() }

func (t *healthSummaryTool) Invoke(ctx context.Context, rc *RunContext, raw json.RawMessage) (any, error) {
	scenario, err := parseScenarioArgs(raw)
	if err != nil {
		return nil, err
	}
	return t.shaper.Summarize(ctx, rc.UserID, scenario)
}

// holisticSnapshotTool wires analysis.SnapshotBuilder as agent tool
// "holistic_snapshot"; intended for the first turn of a new session.
type holisticSnapshotTool struct {
	builder *analysis.SnapshotBuilder
}

func NewHolisticSnapshotTool(builder *analysis.SnapshotBuilder) Tool {
	return &holisticSnapshotTool{builder: builder}
}

func (t *holisticSnapshotTool) Name() string { return "holistic_snapshot" }
func (t *holisticSnapshotTool) Description() string {
	return "Composes the default nutrition, workout, and health summaries into one snapshot. Call this once at the start of a new coaching conversation."
}
func (t *holisticSnapshotTool) InputSchema() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

func (t *holisticSnapshotTool) Invoke(ctx context.Context, rc *RunContext, _ json.RawMessage) (any, error) {
	return t.builder.Build(ctx, rc.UserID)
}

// detectPlateauTool wires analysis.DetectPlateau as agent tool
// "detect_plateau". The progression must already be in per-session
// order; the agent is expected to pull it from workout_summary or a
// dedicated tracker query before calling this.
type detectPlateauTool struct{}

func NewDetectPlateauTool() Tool { return &detectPlateauTool{} }

func (t *detectPlateauTool) Name() string { return "detect_plateau" }
func (t *detectPlateauTool) Description() string {
	return "Applies plateau-detection rules to an ordered list of per-session max working weight for one exercise."
}

func (t *detectPlateauTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"exercise": map[string]any{"type": "string", "description": "exercise name, for labeling only"},
			"progression": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "number"},
				"description": "per-session max working weight, oldest first",
			},
		},
		"required": []string{"progression"},
	}
}

type detectPlateauArgs struct {
	Exercise    string    `json:"exercise"`
	Progression []float64 `json:"progression"`
}

func (t *detectPlateauTool) Invoke(_ context.Context, _ *RunContext, raw json.RawMessage) (any, error) {
	var args detectPlateauArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, apperr.WrapTool(err, "parsing detect_plateau arguments")
	}
	return analysis.DetectPlateau(args.Progression), nil
}

// correlateDomainsTool wires analysis.CorrelateDomains as agent tool
// "correlate_domains".
type correlateDomainsTool struct{}

func NewCorrelateDomainsTool() Tool { return &correlateDomainsTool{} }

func (t *correlateDomainsTool) Name() string { return "correlate_domains" }
func (t *correlateDomainsTool) Description() string {
	return "Computes cross-domain averages (calories, protein, bodyweight, training frequency) and raises structured insights against configurable thresholds."
}

func (t *correlateDomainsTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"days": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"calories":      map[string]any{"type": "number"},
						"protein_g":     map[string]any{"type": "number"},
						"bodyweight_kg": map[string]any{"type": "number"},
					},
				},
			},
			"workout_count":   map[string]any{"type": "integer"},
			"weeks_in_window": map[string]any{"type": "number"},
		},
		"required": []string{"days", "workout_count", "weeks_in_window"},
	}
}

type correlateDaySampleArgs struct {
	Calories     *float64 `json:"calories"`
	ProteinG     *float64 `json:"protein_g"`
	BodyweightKg *float64 `json:"bodyweight_kg"`
}

type correlateDomainsArgs struct {
	Days          []correlateDaySampleArgs `json:"days"`
	WorkoutCount  int                      `json:"workout_count"`
	WeeksInWindow float64                  `json:"weeks_in_window"`
}

func (t *correlateDomainsTool) Invoke(_ context.Context, _ *RunContext, raw json.RawMessage) (any, error) {
	var args correlateDomainsArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, apperr.WrapTool(err, "parsing correlate_domains arguments")
	}
	days := make([]analysis.DaySample, len(args.Days))
	for i, d := range args.Days {
		days[i] = analysis.DaySample{Calories: d.Calories, ProteinG: d.ProteinG, BodyweightKg: d.BodyweightKg}
	}
	input := analysis.CorrelationInput{Days: days, WorkoutCount: args.WorkoutCount, WeeksInWindow: args.WeeksInWindow}
	return analysis.CorrelateDomains(input, analysis.DefaultThresholds), nil
}

func scenarioSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"scenario": map[string]any{
				"type": "string",
				"enum": []string{
					string(shapers.ScenarioQuickCheck),
					string(shapers.ScenarioDefault),
					string(shapers.ScenarioTroubleshooting),
					string(shapers.ScenarioHistorical),
				},
			},
		},
	}
}
