package store_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"coachspine/internal/domain"
	"coachspine/internal/store"
	"coachspine/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (*store.Store, uuid.UUID) {
	t.Helper()
	pc := testutil.SetupPostgres(t)
	st := store.New(pc.DB)
	user, err := st.Users.Create(context.Background(), "integration", nil)
	require.NoError(t, err)
	return st, user.ID
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

func TestNutritionUpsert_Idempotent(t *testing.T) {
	st, userID := setupStore(t)
	ctx := context.Background()

	days := make([]domain.NutritionDay, 0, 5)
	for i := 0; i < 5; i++ {
		days = append(days, domain.NutritionDay{
			UserID:   userID,
			Date:     day(2024, time.July, 1+i),
			Calories: fptr(2200 + float64(i)*10),
			ProteinG: fptr(160),
			Raw:      map[string]any{"source_row": i},
		})
	}

	first, err := st.Nutrition.UpsertBatch(ctx, userID, days)
	require.NoError(t, err)
	require.Equal(t, 5, first.NewRecords)
	require.Equal(t, 0, first.Updated)

	second, err := st.Nutrition.UpsertBatch(ctx, userID, days)
	require.NoError(t, err)
	require.Equal(t, 0, second.NewRecords)
	require.Equal(t, 5, second.Updated)

	stored, err := st.Nutrition.ListRange(ctx, userID, day(2024, time.July, 1), day(2024, time.July, 31))
	require.NoError(t, err)
	require.Len(t, stored, 5)
	require.Equal(t, 2200.0, *stored[0].Calories)
	require.Equal(t, 160.0, *stored[0].ProteinG)
}

func TestNutritionUpsert_LastWriterWinsOnRaw(t *testing.T) {
	st, userID := setupStore(t)
	ctx := context.Background()
	d := day(2024, time.August, 3)

	_, err := st.Nutrition.UpsertBatch(ctx, userID, []domain.NutritionDay{
		{UserID: userID, Date: d, Calories: fptr(1800), Raw: map[string]any{"export": "v1"}},
	})
	require.NoError(t, err)

	_, err = st.Nutrition.UpsertBatch(ctx, userID, []domain.NutritionDay{
		{UserID: userID, Date: d, Calories: fptr(1950), Raw: map[string]any{"export": "v2"}},
	})
	require.NoError(t, err)

	stored, err := st.Nutrition.ListRange(ctx, userID, d, d)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, 1950.0, *stored[0].Calories)
	require.Equal(t, "v2", stored[0].Raw["export"])
}

func TestNutritionUpsert_ZeroNutrientDayPersists(t *testing.T) {
	st, userID := setupStore(t)
	ctx := context.Background()
	d := day(2024, time.September, 10)

	_, err := st.Nutrition.UpsertBatch(ctx, userID, []domain.NutritionDay{
		{UserID: userID, Date: d, Calories: fptr(0), ProteinG: fptr(0), CarbsG: fptr(0), FatsG: fptr(0)},
	})
	require.NoError(t, err)

	stored, err := st.Nutrition.ListRange(ctx, userID, d, d)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, 0.0, *stored[0].Calories)
}

func TestHealthRaw_AppendOnly(t *testing.T) {
	st, userID := setupStore(t)
	ctx := context.Background()

	base := time.Date(2024, time.January, 15, 8, 0, 0, 0, time.UTC)
	points := []domain.HealthMetricRaw{
		{UserID: userID, Timestamp: base, MetricType: "steps", Source: "phone", Value: 8500, Unit: "count"},
		{UserID: userID, Timestamp: base.Add(time.Hour), MetricType: "steps", Source: "phone", Value: 1200, Unit: "count"},
		{UserID: userID, Timestamp: base, MetricType: "heart_rate", Source: "watch", Value: 61, Unit: "bpm"},
	}

	first, err := st.HealthRaw.UpsertBatch(ctx, userID, points)
	require.NoError(t, err)
	require.Equal(t, 3, first.NewRecords)

	second, err := st.HealthRaw.UpsertBatch(ctx, userID, points)
	require.NoError(t, err)
	require.Equal(t, 0, second.NewRecords, "second identical run must not grow the raw table")

	stored, err := st.HealthRaw.ListByType(ctx, userID, "steps", base.Add(-time.Hour), base.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, stored, 2)
}

func TestHealthDaily_CoalesceSemantics(t *testing.T) {
	st, userID := setupStore(t)
	ctx := context.Background()
	d := day(2024, time.January, 15)

	_, err := st.HealthDaily.UpsertBatch(ctx, userID, []domain.HealthMetricDaily{
		{UserID: userID, Date: d, Steps: iptr(8500), WeightKg: fptr(82.5)},
	})
	require.NoError(t, err)

	// a later, sparser upload must not null out what the first one knew
	_, err = st.HealthDaily.UpsertBatch(ctx, userID, []domain.HealthMetricDaily{
		{UserID: userID, Date: d, SleepHours: fptr(7.5)},
	})
	require.NoError(t, err)

	stored, err := st.HealthDaily.ListRange(ctx, userID, d, d)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, 8500, *stored[0].Steps)
	require.Equal(t, 82.5, *stored[0].WeightKg)
	require.Equal(t, 7.5, *stored[0].SleepHours)
}

// TestWorkoutUpsert_ShuffledDuplicateKeys exercises the conflict target
// the way real ingestion does: the same external ids arriving repeatedly,
// in arbitrary order, possibly twice within one batch.
func TestWorkoutUpsert_ShuffledDuplicateKeys(t *testing.T) {
	st, userID := setupStore(t)
	ctx := context.Background()

	workouts := make([]domain.WorkoutCache, 0, 10)
	for i := 0; i < 10; i++ {
		workouts = append(workouts, domain.WorkoutCache{
			UserID:            userID,
			ExternalWorkoutID: uuid.NewString(),
			WorkoutDate:       day(2024, time.June, 1+i),
			Title:             "Push Day",
			TotalSets:         12,
			TotalVolumeKg:     4200,
		})
	}

	rng := rand.New(rand.NewSource(42))
	doubled := append(append([]domain.WorkoutCache{}, workouts...), workouts...)
	rng.Shuffle(len(doubled), func(i, j int) { doubled[i], doubled[j] = doubled[j], doubled[i] })

	_, err := st.Workouts.UpsertBatch(ctx, userID, doubled)
	require.NoError(t, err)

	stored, err := st.Workouts.ListRecent(ctx, userID, 50)
	require.NoError(t, err)
	require.Len(t, stored, 10)
}

func TestChatMessages_OrderedWithinSession(t *testing.T) {
	st, userID := setupStore(t)
	ctx := context.Background()

	session, err := st.Chat.CreateSession(ctx, userID, nil)
	require.NoError(t, err)

	_, err = st.Chat.InsertMessage(ctx, st.DB, session.ID, domain.RoleUser, "how is my bench trending?", 8, nil)
	require.NoError(t, err)
	_, err = st.Chat.InsertMessage(ctx, st.DB, session.ID, domain.RoleAssistant, "it has stalled at 100kg for 3 sessions.", 12, []domain.ToolCallRecord{
		{ToolName: "detect_plateau", Arguments: map[string]any{"exercise": "bench press"}, ResultDigest: "stagnant"},
	})
	require.NoError(t, err)

	msgs, err := st.Chat.RecentMessages(ctx, session.ID, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, domain.RoleUser, msgs[0].Role)
	require.Equal(t, domain.RoleAssistant, msgs[1].Role)
	require.Len(t, msgs[1].ToolCalls, 1)
	require.Equal(t, "detect_plateau", msgs[1].ToolCalls[0].ToolName)
}
