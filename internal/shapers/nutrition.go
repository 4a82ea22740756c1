package shapers

import (
	"context"
	"time"

	"coachspine/internal/domain"
	"coachspine/internal/store"

	"github.com/google/uuid"
)

const (
	nutritionQuickCheckDays      = 7
	nutritionDefaultDailyDays    = 30
	nutritionDefaultWeeklyWeeks  = 12
	nutritionTroubleshootingDays = 7
	nutritionHistoricalMonthsCap = 36
)

// DailyNutrition is the bounded scalar projection a scenario returns per
// day — never the Raw blob, which is unbounded and belongs to
// reprocessing, not to the model's context.
type DailyNutrition struct {
	Date     time.Time `json:"date"`
	Calories *float64  `json:"calories"`
	ProteinG *float64  `json:"protein_g"`
	CarbsG   *float64  `json:"carbs_g"`
	FatsG    *float64  `json:"fats_g"`
	FiberG   *float64  `json:"fiber_g"`
}

// WeeklyNutrition is one week's averaged macros.
type WeeklyNutrition struct {
	WeekStart   time.Time `json:"week_start"`
	AvgCalories float64   `json:"avg_calories"`
	AvgProteinG float64   `json:"avg_protein_g"`
	AvgCarbsG   float64   `json:"avg_carbs_g"`
	AvgFatsG    float64   `json:"avg_fats_g"`
	Days        int       `json:"days"`
}

// MonthlyNutrition is one month's averaged macros — the historical
// scenario's unit.
type MonthlyNutrition struct {
	Month       string  `json:"month"` // "2024-07"
	AvgCalories float64 `json:"avg_calories"`
	AvgProteinG float64 `json:"avg_protein_g"`
	Days        int     `json:"days"`
}

// NutritionSummary is the response shape for every nutrition_summary
// scenario; unused fields stay nil/zero rather than populated, keeping
// quick_check genuinely small.
type NutritionSummary struct {
	Scenario       Scenario           `json:"scenario"`
	Daily          []DailyNutrition   `json:"daily,omitempty"`
	Weekly         []WeeklyNutrition  `json:"weekly,omitempty"`
	Monthly        []MonthlyNutrition `json:"monthly,omitempty"`
	ProteinPerKgBW *float64           `json:"protein_per_kg_bodyweight,omitempty"`
}

// NutritionShaper backs the agent tool nutrition_summary(user, scenario).
type NutritionShaper struct {
	nutrition *store.NutritionStore
	health    *store.HealthDailyStore
}

func NewNutritionShaper(nutrition *store.NutritionStore, health *store.HealthDailyStore) *NutritionShaper {
	return &NutritionShaper{nutrition: nutrition, health: health}
}

// Summarize produces the bounded aggregate for one scenario.
func (s *NutritionShaper) Summarize(ctx context.Context, userID uuid.UUID, scenario Scenario) (NutritionSummary, error) {
	switch scenario {
	case ScenarioQuickCheck:
		return s.quickCheck(ctx, userID)
	case ScenarioTroubleshooting:
		return s.troubleshooting(ctx, userID)
	case ScenarioHistorical:
		return s.historical(ctx, userID)
	default:
		return s.defaultScenario(ctx, userID)
	}
}

func (s *NutritionShaper) quickCheck(ctx context.Context, userID uuid.UUID) (NutritionSummary, error) {
	days, err := s.nutrition.ListRecent(ctx, userID, nutritionQuickCheckDays)
	if err != nil {
		return NutritionSummary{}, err
	}
	assertRowCap(ScenarioQuickCheck, "daily", len(days), nutritionQuickCheckDays)
	return NutritionSummary{Scenario: ScenarioQuickCheck, Daily: toDailyNutrition(days)}, nil
}

func (s *NutritionShaper) defaultScenario(ctx context.Context, userID uuid.UUID) (NutritionSummary, error) {
	days, err := s.nutrition.ListRecent(ctx, userID, nutritionDefaultDailyDays)
	if err != nil {
		return NutritionSummary{}, err
	}
	assertRowCap(ScenarioDefault, "daily", len(days), nutritionDefaultDailyDays)

	weekly := weeklyFromDaily(days, nutritionDefaultWeeklyWeeks)
	assertRowCap(ScenarioDefault, "weekly", len(weekly), nutritionDefaultWeeklyWeeks)

	return NutritionSummary{Scenario: ScenarioDefault, Daily: toDailyNutrition(days), Weekly: weekly}, nil
}

func (s *NutritionShaper) troubleshooting(ctx context.Context, userID uuid.UUID) (NutritionSummary, error) {
	days, err := s.nutrition.ListRecent(ctx, userID, nutritionTroubleshootingDays)
	if err != nil {
		return NutritionSummary{}, err
	}
	assertRowCap(ScenarioTroubleshooting, "daily", len(days), nutritionTroubleshootingDays)

	allRecent, err := s.nutrition.ListRecent(ctx, userID, 12*7)
	if err != nil {
		return NutritionSummary{}, err
	}
	weekly := weeklyFromDaily(allRecent, nutritionDefaultWeeklyWeeks)
	assertRowCap(ScenarioTroubleshooting, "weekly", len(weekly), nutritionDefaultWeeklyWeeks)

	summary := NutritionSummary{Scenario: ScenarioTroubleshooting, Daily: toDailyNutrition(days), Weekly: weekly}

	if s.health != nil {
		if ppk, err := s.proteinPerKgBodyweight(ctx, userID, days); err == nil {
			summary.ProteinPerKgBW = ppk
		}
	}
	return summary, nil
}

func (s *NutritionShaper) proteinPerKgBodyweight(ctx context.Context, userID uuid.UUID, days []domain.NutritionDay) (*float64, error) {
	healthDays, err := s.health.ListRecent(ctx, userID, nutritionTroubleshootingDays)
	if err != nil {
		return nil, err
	}
	var weightSum, weightN float64
	for _, h := range healthDays {
		if h.WeightKg != nil {
			weightSum += *h.WeightKg
			weightN++
		}
	}
	if weightN == 0 {
		return nil, nil
	}
	avgWeight := weightSum / weightN

	var proteinSum, proteinN float64
	for _, d := range days {
		if d.ProteinG != nil {
			proteinSum += *d.ProteinG
			proteinN++
		}
	}
	if proteinN == 0 || avgWeight == 0 {
		return nil, nil
	}
	avgProtein := proteinSum / proteinN
	ppk := avgProtein / avgWeight
	return &ppk, nil
}

func (s *NutritionShaper) historical(ctx context.Context, userID uuid.UUID) (NutritionSummary, error) {
	now := time.Now().UTC()
	from := now.AddDate(-int(nutritionHistoricalMonthsCap/12)-1, 0, 0)
	days, err := s.nutrition.ListRange(ctx, userID, from, now)
	if err != nil {
		return NutritionSummary{}, err
	}

	months := monthlyFromDaily(days, nutritionHistoricalMonthsCap)
	assertRowCap(ScenarioHistorical, "monthly", len(months), nutritionHistoricalMonthsCap)

	return NutritionSummary{Scenario: ScenarioHistorical, Monthly: months}, nil
}

func toDailyNutrition(days []domain.NutritionDay) []DailyNutrition {
	out := make([]DailyNutrition, len(days))
	for i, d := range days {
		out[i] = DailyNutrition{Date: d.Date, Calories: d.Calories, ProteinG: d.ProteinG, CarbsG: d.CarbsG, FatsG: d.FatsG, FiberG: d.FiberG}
	}
	return out
}

type weekAcc struct {
	weekStart                       time.Time
	calSum, proSum, carbSum, fatSum float64
	calN, proN, carbN, fatN         int
	days                            int
}

// weeklyFromDaily buckets daily rows (any order) into ISO-ish weeks
// (Monday start), averaging non-nil scalars, and returns at most capWeeks
// weeks, most recent first.
func weeklyFromDaily(days []domain.NutritionDay, capWeeks int) []WeeklyNutrition {
	byWeek := map[time.Time]*weekAcc{}
	for _, d := range days {
		ws := mondayOf(d.Date)
		a, ok := byWeek[ws]
		if !ok {
			a = &weekAcc{weekStart: ws}
			byWeek[ws] = a
		}
		a.days++
		if d.Calories != nil {
			a.calSum += *d.Calories
			a.calN++
		}
		if d.ProteinG != nil {
			a.proSum += *d.ProteinG
			a.proN++
		}
		if d.CarbsG != nil {
			a.carbSum += *d.CarbsG
			a.carbN++
		}
		if d.FatsG != nil {
			a.fatSum += *d.FatsG
			a.fatN++
		}
	}

	weeks := make([]*weekAcc, 0, len(byWeek))
	for _, a := range byWeek {
		weeks = append(weeks, a)
	}
	sortDescByWeekStart(weeks)

	if len(weeks) > capWeeks {
		weeks = weeks[:capWeeks]
	}

	out := make([]WeeklyNutrition, len(weeks))
	for i, a := range weeks {
		out[i] = WeeklyNutrition{
			WeekStart:   a.weekStart,
			AvgCalories: safeAvg(a.calSum, a.calN),
			AvgProteinG: safeAvg(a.proSum, a.proN),
			AvgCarbsG:   safeAvg(a.carbSum, a.carbN),
			AvgFatsG:    safeAvg(a.fatSum, a.fatN),
			Days:        a.days,
		}
	}
	return out
}

func monthlyFromDaily(days []domain.NutritionDay, capMonths int) []MonthlyNutrition {
	type acc struct {
		month                string
		calSum, proSum       float64
		calN, proN, dayCount int
	}
	byMonth := map[string]*acc{}
	order := []string{}
	for _, d := range days {
		key := d.Date.Format("2006-01")
		a, ok := byMonth[key]
		if !ok {
			a = &acc{month: key}
			byMonth[key] = a
			order = append(order, key)
		}
		a.dayCount++
		if d.Calories != nil {
			a.calSum += *d.Calories
			a.calN++
		}
		if d.ProteinG != nil {
			a.proSum += *d.ProteinG
			a.proN++
		}
	}

	// descending by month string sorts correctly since it's zero-padded YYYY-MM
	sortStringsDesc(order)
	if len(order) > capMonths {
		order = order[:capMonths]
	}

	out := make([]MonthlyNutrition, len(order))
	for i, key := range order {
		a := byMonth[key]
		out[i] = MonthlyNutrition{Month: a.month, AvgCalories: safeAvg(a.calSum, a.calN), AvgProteinG: safeAvg(a.proSum, a.proN), Days: a.dayCount}
	}
	return out
}

func mondayOf(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return t.AddDate(0, 0, -(weekday - 1)).Truncate(24 * time.Hour)
}

func safeAvg(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func sortDescByWeekStart(weeks []*weekAcc) {
	for i := 1; i < len(weeks); i++ {
		for j := i; j > 0 && weeks[j].weekStart.After(weeks[j-1].weekStart); j-- {
			weeks[j], weeks[j-1] = weeks[j-1], weeks[j]
		}
	}
}

func sortStringsDesc(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] > s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}
