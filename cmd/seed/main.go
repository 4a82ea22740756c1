// Command seed populates a fresh database with several months of
// synthetic nutrition, health, and workout data for one user, so the
// dashboard and chat surfaces have something realistic to show without
// a real tracker or nutrition-provider account connected.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"coachspine/internal/config"
	"coachspine/internal/db"
	"coachspine/internal/domain"
	"coachspine/internal/logx"
	"coachspine/internal/store"

	"github.com/google/uuid"
)

const weeksOfData = 16

func main() {
	cfg, err := config.Load()
	if err != nil {
		logx.Fatalf("loading configuration: %v", err)
	}

	conn, err := db.Connect(db.Config{DatabaseURL: cfg.DatabaseURL})
	if err != nil {
		logx.Fatalf("connecting to database: %v", err)
	}
	defer conn.Close()

	if err := db.RunMigrations(conn.DB); err != nil {
		logx.Fatalf("running migrations: %v", err)
	}

	st := store.New(conn.DB)
	ctx := context.Background()

	user, err := st.Users.Create(ctx, "seed-user", nil)
	if err != nil {
		logx.Fatalf("creating seed user: %v", err)
	}
	fmt.Printf("seeding %d weeks of data for user %s\n", weeksOfData, user.ID)

	rng := rand.New(rand.NewSource(42))
	start := time.Now().UTC().AddDate(0, 0, -weeksOfData*7).Truncate(24 * time.Hour)

	if err := seedNutrition(ctx, st, user.ID, start, rng); err != nil {
		logx.Fatalf("seeding nutrition: %v", err)
	}
	if err := seedHealth(ctx, st, user.ID, start, rng); err != nil {
		logx.Fatalf("seeding health: %v", err)
	}
	if err := seedWorkouts(ctx, st, user.ID, start, rng); err != nil {
		logx.Fatalf("seeding workouts: %v", err)
	}
	if err := seedGoals(ctx, st, user.ID); err != nil {
		logx.Fatalf("seeding goals: %v", err)
	}

	fmt.Println("seed complete")
}

func seedNutrition(ctx context.Context, st *store.Store, userID uuid.UUID, start time.Time, rng *rand.Rand) error {
	totalDays := weeksOfData * 7
	days := make([]domain.NutritionDay, 0, totalDays)

	for d := 0; d < totalDays; d++ {
		date := start.AddDate(0, 0, d)

		calories := 2100 + rng.Float64()*500
		protein := 140 + rng.Float64()*50
		carbs := 200 + rng.Float64()*80
		fats := 60 + rng.Float64()*30
		fiber := 20 + rng.Float64()*15

		days = append(days, domain.NutritionDay{
			UserID:   userID,
			Date:     date,
			Calories: &calories,
			ProteinG: &protein,
			CarbsG:   &carbs,
			FatsG:    &fats,
			FiberG:   &fiber,
			Raw:      map[string]any{"source": "seed"},
		})
	}

	res, err := st.Nutrition.UpsertBatch(ctx, userID, days)
	if err != nil {
		return err
	}
	fmt.Printf("  nutrition: %d new, %d updated\n", res.NewRecords, res.Updated)
	return nil
}

func seedHealth(ctx context.Context, st *store.Store, userID uuid.UUID, start time.Time, rng *rand.Rand) error {
	totalDays := weeksOfData * 7
	days := make([]domain.HealthMetricDaily, 0, totalDays)
	startWeight := 88.0

	for d := 0; d < totalDays; d++ {
		date := start.AddDate(0, 0, d)

		progress := float64(d) / float64(totalDays)
		weight := startWeight - progress*6 + (rng.Float64()-0.5)*0.8
		steps := 6000 + rng.Intn(6000)
		sleep := 6.2 + rng.Float64()*2.2
		activeCal := 300 + rng.Float64()*400
		restingHR := 58 + rng.Intn(12)

		days = append(days, domain.HealthMetricDaily{
			UserID:           userID,
			Date:             date,
			Steps:            &steps,
			WeightKg:         &weight,
			SleepHours:       &sleep,
			ActiveCalories:   &activeCal,
			RestingHeartRate: &restingHR,
			Other:            map[string]any{"source": "seed"},
		})
	}

	res, err := st.HealthDaily.UpsertBatch(ctx, userID, days)
	if err != nil {
		return err
	}
	fmt.Printf("  health daily: %d new, %d updated\n", res.NewRecords, res.Updated)
	return nil
}

var trainingSplit = []struct {
	title   string
	muscles []domain.MuscleGroup
}{
	{"Push Day", []domain.MuscleGroup{domain.MuscleChest, domain.MuscleFrontDelt, domain.MuscleTriceps}},
	{"Pull Day", []domain.MuscleGroup{domain.MuscleLats, domain.MuscleTraps, domain.MuscleBiceps, domain.MuscleRearDelt}},
	{"Leg Day", []domain.MuscleGroup{domain.MuscleQuads, domain.MuscleGlutes, domain.MuscleHamstrings, domain.MuscleCalves}},
	{"Upper Body", []domain.MuscleGroup{domain.MuscleChest, domain.MuscleLats, domain.MuscleSideDelt, domain.MuscleBiceps}},
	{"Core & Conditioning", []domain.MuscleGroup{domain.MuscleCore, domain.MuscleLowerBack}},
}

func seedWorkouts(ctx context.Context, st *store.Store, userID uuid.UUID, start time.Time, rng *rand.Rand) error {
	totalWeeks := weeksOfData
	var workouts []domain.WorkoutCache
	workoutDaysPerWeek := []int{0, 2, 4} // Mon, Wed, Fri offsets within each week

	for w := 0; w < totalWeeks; w++ {
		for i, offset := range workoutDaysPerWeek {
			date := start.AddDate(0, 0, w*7+offset)
			split := trainingSplit[(w+i)%len(trainingSplit)]

			sets := 16 + rng.Intn(8)
			volume := 3500 + rng.Float64()*2500

			workouts = append(workouts, domain.WorkoutCache{
				UserID:            userID,
				ExternalWorkoutID: fmt.Sprintf("seed-%d-%d", w, i),
				WorkoutDate:       date,
				Title:             split.title,
				TotalSets:         sets,
				TotalVolumeKg:     volume,
				MuscleGroups:      split.muscles,
				Payload:           map[string]any{"source": "seed"},
			})
		}
	}

	res, err := st.Workouts.UpsertBatch(ctx, userID, workouts)
	if err != nil {
		return err
	}
	fmt.Printf("  workouts: %d new, %d updated\n", res.NewRecords, res.Updated)
	return nil
}

func seedGoals(ctx context.Context, st *store.Store, userID uuid.UUID) error {
	_, err := st.Goals.UpsertGoals(ctx, userID, domain.GoalTraining, map[string]any{
		"sessions_per_week": 5,
		"focus":             "hypertrophy",
	})
	if err != nil {
		return err
	}

	_, err = st.Goals.UpsertGoals(ctx, userID, domain.GoalNutrition, map[string]any{
		"target_weight_kg":        82.0,
		"target_weekly_change_kg": -0.4,
		"daily_calories":          2300,
	})
	return err
}
