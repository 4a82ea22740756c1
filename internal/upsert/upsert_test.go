package upsert

import (
	"context"
	"testing"

	"coachspine/internal/apperr"
	"coachspine/internal/domain"
	"coachspine/internal/ingest"
	"coachspine/internal/store"
	"coachspine/internal/testutil"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk(t *testing.T) {
	items := make([]int, 7)

	assert.Len(t, chunk(items, 3), 3)
	assert.Len(t, chunk(items, 7), 1)
	assert.Len(t, chunk(items, 100), 1)
	assert.Nil(t, chunk([]int{}, 3))

	// a non-positive size falls back to the default rather than looping
	assert.Len(t, chunk(items, 0), 1)
}

func TestParseEnvelopeDate(t *testing.T) {
	d, err := parseEnvelopeDate("2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, 2024, d.Year())

	d, err = parseEnvelopeDate("2024-01-15T23:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 23, d.Hour())

	_, err = parseEnvelopeDate("15/01/2024")
	assert.Error(t, err)
}

func TestApplyEnvelopeMetric(t *testing.T) {
	d := &domain.HealthMetricDaily{Other: map[string]any{}}

	applyEnvelopeMetric(d, ingest.HealthEnvelopeMetric{Type: "steps", Value: 8500})
	applyEnvelopeMetric(d, ingest.HealthEnvelopeMetric{Type: "weight", Value: 82.5})
	applyEnvelopeMetric(d, ingest.HealthEnvelopeMetric{Type: "sleep_hours", Value: 7.25})
	applyEnvelopeMetric(d, ingest.HealthEnvelopeMetric{Type: "resting_heart_rate", Value: 58})
	applyEnvelopeMetric(d, ingest.HealthEnvelopeMetric{Type: "vo2_max", Value: 44.1})

	require.NotNil(t, d.Steps)
	assert.Equal(t, 8500, *d.Steps)
	assert.Equal(t, 82.5, *d.WeightKg)
	assert.Equal(t, 7.25, *d.SleepHours)
	assert.Equal(t, 58, *d.RestingHeartRate)
	assert.Equal(t, 44.1, d.Other["vo2_max"])
}

func TestMapConflict(t *testing.T) {
	checkViolation := &pgconn.PgError{Code: "23514", ConstraintName: "nutrition_day_calories_check"}
	err := mapConflict(checkViolation, "nutrition_day")
	assert.Equal(t, apperr.KindIngestConflict, apperr.KindOf(err))

	// anything else passes through untouched
	other := &pgconn.PgError{Code: "23505"}
	assert.Equal(t, error(other), mapConflict(other, "nutrition_day"))
}

func TestHealthDailyFromEnvelope(t *testing.T) {
	pc := testutil.SetupPostgres(t)
	st := store.New(pc.DB)
	ctx := context.Background()

	user, err := st.Users.Create(ctx, "envelope", nil)
	require.NoError(t, err)

	svc := New(st)
	env := &ingest.HealthEnvelope{
		UserID:   "u1",
		SyncDate: "2024-01-15T23:00:00Z",
		Metrics: []ingest.HealthEnvelopeMetric{
			{Type: "steps", Value: 8500, Unit: "count", Date: "2024-01-15"},
			{Type: "weight", Value: 82.5, Unit: "kg", Date: "2024-01-15"},
		},
	}

	res, err := svc.HealthDailyFromEnvelope(ctx, user.ID, env)
	require.NoError(t, err)
	assert.Equal(t, 1, res.NewRecords, "both metrics land in one daily row")

	days, err := st.HealthDaily.ListRecent(ctx, user.ID, 10)
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, 8500, *days[0].Steps)
	assert.Equal(t, 82.5, *days[0].WeightKg)
}
