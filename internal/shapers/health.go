package shapers

import (
	"context"
	"time"

	"coachspine/internal/domain"
	"coachspine/internal/store"

	"github.com/google/uuid"
)

const (
	healthQuickCheckDays = 7
	healthDefaultDays    = 30
	healthWeeklyWeeks    = 12
)

// DailyHealth is the bounded scalar projection a scenario returns per day.
type DailyHealth struct {
	Date             time.Time `json:"date"`
	Steps            *int      `json:"steps"`
	WeightKg         *float64  `json:"weight_kg"`
	SleepHours       *float64  `json:"sleep_hours"`
	ActiveCalories   *float64  `json:"active_calories"`
	RestingHeartRate *int      `json:"resting_heart_rate"`
}

// WeeklyHealth mirrors the stored health_weekly_summary shape.
type WeeklyHealth struct {
	WeekStart     time.Time `json:"week_start"`
	AvgSteps      *float64  `json:"avg_steps"`
	AvgWeightKg   *float64  `json:"avg_weight_kg"`
	WeightDeltaKg *float64  `json:"weight_delta_kg"`
	AvgSleepHours *float64  `json:"avg_sleep_hours"`
	WorkoutCount  int       `json:"workout_count"`
}

// HealthSummary is the response shape for health_summary scenarios.
type HealthSummary struct {
	Scenario Scenario                `json:"scenario"`
	Daily    []DailyHealth           `json:"daily,omitempty"`
	Weekly   []WeeklyHealth          `json:"weekly,omitempty"`
	Trend    *domain.BodyweightTrend `json:"weight_trend,omitempty"`
}

// HealthShaper backs the agent tool health_summary(user, scenario).
type HealthShaper struct {
	daily  *store.HealthDailyStore
	weekly *store.HealthWeeklyStore
}

func NewHealthShaper(daily *store.HealthDailyStore, weekly *store.HealthWeeklyStore) *HealthShaper {
	return &HealthShaper{daily: daily, weekly: weekly}
}

func (s *HealthShaper) Summarize(ctx context.Context, userID uuid.UUID, scenario Scenario) (HealthSummary, error) {
	switch scenario {
	case ScenarioQuickCheck:
		return s.quickCheck(ctx, userID)
	default:
		return s.defaultScenario(ctx, userID)
	}
}

func (s *HealthShaper) quickCheck(ctx context.Context, userID uuid.UUID) (HealthSummary, error) {
	days, err := s.daily.ListRecent(ctx, userID, healthQuickCheckDays)
	if err != nil {
		return HealthSummary{}, err
	}
	assertRowCap(ScenarioQuickCheck, "daily", len(days), healthQuickCheckDays)
	return HealthSummary{Scenario: ScenarioQuickCheck, Daily: toDailyHealth(days)}, nil
}

func (s *HealthShaper) defaultScenario(ctx context.Context, userID uuid.UUID) (HealthSummary, error) {
	days, err := s.daily.ListRecent(ctx, userID, healthDefaultDays)
	if err != nil {
		return HealthSummary{}, err
	}
	assertRowCap(ScenarioDefault, "daily", len(days), healthDefaultDays)

	weeks, err := s.weekly.ListRecent(ctx, userID, healthWeeklyWeeks)
	if err != nil {
		return HealthSummary{}, err
	}
	assertRowCap(ScenarioDefault, "weekly", len(weeks), healthWeeklyWeeks)

	summary := HealthSummary{Scenario: ScenarioDefault, Daily: toDailyHealth(days), Weekly: toWeeklyHealth(weeks)}
	summary.Trend = domain.DeriveBodyweightTrend(bodyweightSamplesFrom(days))
	return summary, nil
}

func toDailyHealth(days []domain.HealthMetricDaily) []DailyHealth {
	out := make([]DailyHealth, len(days))
	for i, d := range days {
		out[i] = DailyHealth{
			Date: d.Date, Steps: d.Steps, WeightKg: d.WeightKg,
			SleepHours: d.SleepHours, ActiveCalories: d.ActiveCalories, RestingHeartRate: d.RestingHeartRate,
		}
	}
	return out
}

func toWeeklyHealth(weeks []domain.HealthWeeklySummary) []WeeklyHealth {
	out := make([]WeeklyHealth, len(weeks))
	for i, w := range weeks {
		out[i] = WeeklyHealth{
			WeekStart: w.WeekStart, AvgSteps: w.AvgSteps, AvgWeightKg: w.AvgWeightKg,
			WeightDeltaKg: w.WeightDeltaKg, AvgSleepHours: w.AvgSleepHours, WorkoutCount: w.WorkoutCount,
		}
	}
	return out
}

// bodyweightSamplesFrom extracts the (date, weight) pairs the trend
// regression needs, skipping days with no weight reading. days arrives
// descending by date (ListRecent's order); the regression expects the
// earliest sample first, so the result is reversed.
func bodyweightSamplesFrom(days []domain.HealthMetricDaily) []domain.BodyweightSample {
	out := make([]domain.BodyweightSample, 0, len(days))
	for i := len(days) - 1; i >= 0; i-- {
		d := days[i]
		if d.WeightKg == nil {
			continue
		}
		out = append(out, domain.BodyweightSample{Date: d.Date, WeightKg: *d.WeightKg})
	}
	return out
}
