package shapers

import (
	"context"
	"testing"
	"time"

	"coachspine/internal/domain"
	"coachspine/internal/store"
	"coachspine/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(v float64) *float64 { return &v }

// tenYearsOfNutrition synthesizes one daily row per day going back from
// end — the adversarial input every scenario's cap must survive.
func tenYearsOfNutrition(end time.Time) []domain.NutritionDay {
	days := make([]domain.NutritionDay, 0, 3650)
	for i := 0; i < 3650; i++ {
		d := end.AddDate(0, 0, -i)
		days = append(days, domain.NutritionDay{
			Date:     d,
			Calories: fptr(2000 + float64(i%400)),
			ProteinG: fptr(140 + float64(i%40)),
			CarbsG:   fptr(220),
			FatsG:    fptr(70),
		})
	}
	return days
}

func TestWeeklyFromDaily_CapAndOrder(t *testing.T) {
	end := time.Date(2024, time.November, 9, 0, 0, 0, 0, time.UTC)
	weekly := weeklyFromDaily(tenYearsOfNutrition(end), nutritionDefaultWeeklyWeeks)

	require.LessOrEqual(t, len(weekly), nutritionDefaultWeeklyWeeks)
	for i := 1; i < len(weekly); i++ {
		assert.True(t, weekly[i-1].WeekStart.After(weekly[i].WeekStart), "weeks must be most-recent first")
	}
}

func TestWeeklyFromDaily_AveragesSkipNils(t *testing.T) {
	monday := time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)
	days := []domain.NutritionDay{
		{Date: monday, Calories: fptr(2000), ProteinG: fptr(150)},
		{Date: monday.AddDate(0, 0, 1), Calories: fptr(2400)},
		{Date: monday.AddDate(0, 0, 2)},
	}

	weekly := weeklyFromDaily(days, 12)
	require.Len(t, weekly, 1)
	assert.Equal(t, 2200.0, weekly[0].AvgCalories, "nil-calorie days must not drag the average down")
	assert.Equal(t, 150.0, weekly[0].AvgProteinG)
	assert.Equal(t, 3, weekly[0].Days)
}

func TestMonthlyFromDaily_Cap(t *testing.T) {
	end := time.Date(2024, time.November, 9, 0, 0, 0, 0, time.UTC)
	monthly := monthlyFromDaily(tenYearsOfNutrition(end), nutritionHistoricalMonthsCap)

	require.LessOrEqual(t, len(monthly), nutritionHistoricalMonthsCap)
	assert.Equal(t, "2024-11", monthly[0].Month, "most recent month first")
}

func TestWeeklyVolumeFrom_Cap(t *testing.T) {
	end := time.Date(2024, time.November, 9, 0, 0, 0, 0, time.UTC)
	workouts := make([]domain.WorkoutCache, 0, 520)
	for i := 0; i < 520; i++ {
		workouts = append(workouts, domain.WorkoutCache{
			WorkoutDate:   end.AddDate(0, 0, -i*2),
			Title:         "Full Body",
			TotalVolumeKg: 5000,
		})
	}

	weekly := weeklyVolumeFrom(workouts, workoutDefaultWeeks)
	require.LessOrEqual(t, len(weekly), workoutDefaultWeeks)
}

func TestTopExercisesFrom_CapAndRanking(t *testing.T) {
	end := time.Date(2024, time.November, 9, 0, 0, 0, 0, time.UTC)
	titles := []string{"Squat", "Bench Press", "Deadlift", "OHP", "Row", "Pull Up", "Dip", "Lunge", "Curl", "Press", "Fly", "Shrug"}
	workouts := make([]domain.WorkoutCache, 0, len(titles))
	for i, title := range titles {
		workouts = append(workouts, domain.WorkoutCache{
			WorkoutDate:   end.AddDate(0, 0, -i),
			Title:         title,
			TotalVolumeKg: float64(1000 * (i + 1)),
		})
	}

	top := topExercisesFrom(workouts, workoutTopExerciseCount)
	require.Len(t, top, workoutTopExerciseCount)
	assert.Equal(t, "Shrug", top[0].Title, "highest volume first")
}

func TestMondayOf(t *testing.T) {
	// 2024-11-06 is a Wednesday; its week starts Monday 2024-11-04
	wed := time.Date(2024, time.November, 6, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, time.November, 4, 0, 0, 0, 0, time.UTC), mondayOf(wed))

	// Sunday belongs to the week that started six days earlier
	sun := time.Date(2024, time.November, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, time.November, 4, 0, 0, 0, 0, time.UTC), mondayOf(sun))

	mon := time.Date(2024, time.November, 4, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, mon, mondayOf(mon))
}

func TestBodyweightSamplesFrom_ReversesDescendingInput(t *testing.T) {
	days := []domain.HealthMetricDaily{
		{Date: time.Date(2024, time.July, 3, 0, 0, 0, 0, time.UTC), WeightKg: fptr(81.0)},
		{Date: time.Date(2024, time.July, 2, 0, 0, 0, 0, time.UTC)},
		{Date: time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC), WeightKg: fptr(82.0)},
	}

	samples := bodyweightSamplesFrom(days)
	require.Len(t, samples, 2)
	assert.Equal(t, 82.0, samples[0].WeightKg, "earliest sample first")
	assert.Equal(t, 81.0, samples[1].WeightKg)
}

func TestAssertRowCap_PanicsOnOverflow(t *testing.T) {
	assert.NotPanics(t, func() { assertRowCap(ScenarioDefault, "daily", 30, 30) })
	assert.Panics(t, func() { assertRowCap(ScenarioDefault, "daily", 31, 30) })
}

// TestNutritionShaper_BoundedAgainstDeepHistory drives every scenario
// against a store holding years of daily rows and asserts the declared
// caps hold end to end, not just in the pure bucketing helpers.
func TestNutritionShaper_BoundedAgainstDeepHistory(t *testing.T) {
	pc := testutil.SetupPostgres(t)
	st := store.New(pc.DB)
	ctx := context.Background()

	user, err := st.Users.Create(ctx, "deep-history", nil)
	require.NoError(t, err)

	end := time.Now().UTC().Truncate(24 * time.Hour)
	days := make([]domain.NutritionDay, 0, 400)
	for i := 0; i < 400; i++ {
		days = append(days, domain.NutritionDay{
			UserID:   user.ID,
			Date:     end.AddDate(0, 0, -i),
			Calories: fptr(2100 + float64(i%300)),
			ProteinG: fptr(150),
		})
	}
	_, err = st.Nutrition.UpsertBatch(ctx, user.ID, days)
	require.NoError(t, err)

	shaper := NewNutritionShaper(st.Nutrition, st.HealthDaily)

	quick, err := shaper.Summarize(ctx, user.ID, ScenarioQuickCheck)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(quick.Daily), nutritionQuickCheckDays)

	def, err := shaper.Summarize(ctx, user.ID, ScenarioDefault)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(def.Daily), nutritionDefaultDailyDays)
	assert.LessOrEqual(t, len(def.Weekly), nutritionDefaultWeeklyWeeks)

	trouble, err := shaper.Summarize(ctx, user.ID, ScenarioTroubleshooting)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(trouble.Daily), nutritionTroubleshootingDays)
	assert.LessOrEqual(t, len(trouble.Weekly), nutritionDefaultWeeklyWeeks)

	hist, err := shaper.Summarize(ctx, user.ID, ScenarioHistorical)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(hist.Monthly), nutritionHistoricalMonthsCap)
	assert.Empty(t, hist.Daily, "historical never returns raw daily rows")
}
