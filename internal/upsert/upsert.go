// Package upsert orchestrates batch persistence: chunking records to a
// configurable ceiling, normalizing sentinel-prone scalars once at the
// boundary, and turning CHECK-constraint violations into an
// IngestConflict naming the violated constraint and the detail Postgres
// reports for the first failing row; no list of offending rows is
// collected.
package upsert

import (
	"context"
	"errors"
	"time"

	"coachspine/internal/apperr"
	"coachspine/internal/domain"
	"coachspine/internal/ingest"
	"coachspine/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// DefaultBatchSize bounds single-statement memory: a batch larger than
// this is chunked into multiple transactions rather than one ceiling-less
// statement.
const DefaultBatchSize = 500

// maxViolationsReported is the offender cap quoted in the IngestConflict
// message; the message itself carries only the single row detail that
// Postgres reports for the violation.
const maxViolationsReported = 20

// Service drives every table's batch upsert path through a single entry
// point, so callers (HTTP upload handlers, the scheduler) share one
// batching/error-handling policy instead of reimplementing it per table.
type Service struct {
	store     *store.Store
	batchSize int
}

func New(st *store.Store) *Service {
	return &Service{store: st, batchSize: DefaultBatchSize}
}

// WithBatchSize overrides the batch ceiling, mainly for tests.
func (s *Service) WithBatchSize(n int) *Service {
	s.batchSize = n
	return s
}

func chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][]T
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[i:end])
	}
	return out
}

// Nutrition upserts NutritionRecords from the spreadsheet parser
// into NutritionDay, normalizing each record first.
func (s *Service) Nutrition(ctx context.Context, userID uuid.UUID, records []ingest.NutritionRecord) (store.UpsertResult, error) {
	days := make([]domain.NutritionDay, len(records))
	for i, r := range records {
		days[i] = domain.NutritionDay{
			UserID: userID, Date: r.Date,
			Calories: ingest.NormalizeFloatPtr(r.Calories),
			ProteinG: ingest.NormalizeFloatPtr(r.ProteinG),
			CarbsG:   ingest.NormalizeFloatPtr(r.CarbsG),
			FatsG:    ingest.NormalizeFloatPtr(r.FatsG),
			FiberG:   ingest.NormalizeFloatPtr(r.FiberG),
			Raw:      r.Raw,
		}
	}

	var total store.UpsertResult
	for _, batch := range chunk(days, s.batchSize) {
		res, err := s.store.Nutrition.UpsertBatch(ctx, userID, batch)
		if err != nil {
			return total, mapConflict(err, "nutrition_day")
		}
		mergeResult(&total, res)
	}
	return total, nil
}

// HealthRaw upserts append-only HealthMetricRaw points from the health
// export parser's streaming mode.
func (s *Service) HealthRaw(ctx context.Context, userID uuid.UUID, records []ingest.HealthRawRecord) (store.UpsertResult, error) {
	points := make([]domain.HealthMetricRaw, len(records))
	for i, r := range records {
		points[i] = domain.HealthMetricRaw{
			UserID: userID, Timestamp: r.Timestamp, MetricType: r.MetricType,
			Source: r.Source, Value: ingest.NormalizeFloat(r.Value), Unit: r.Unit,
		}
	}

	var total store.UpsertResult
	for _, batch := range chunk(points, s.batchSize) {
		res, err := s.store.HealthRaw.UpsertBatch(ctx, userID, batch)
		if err != nil {
			return total, mapConflict(err, "health_metric_raw")
		}
		mergeResult(&total, res)
	}
	return total, nil
}

// HealthDailyFromEnvelope upserts the compact on-device envelope
// directly into HealthMetricDaily, bypassing the raw tier.
func (s *Service) HealthDailyFromEnvelope(ctx context.Context, userID uuid.UUID, env *ingest.HealthEnvelope) (store.UpsertResult, error) {
	byDate := map[string]*domain.HealthMetricDaily{}
	order := []string{}
	for _, m := range env.Metrics {
		d, ok := byDate[m.Date]
		if !ok {
			parsed, err := parseEnvelopeDate(m.Date)
			if err != nil {
				return store.UpsertResult{}, apperr.WrapParse(err, "health envelope: date %q", m.Date)
			}
			d = &domain.HealthMetricDaily{UserID: userID, Date: parsed, Other: map[string]any{}}
			byDate[m.Date] = d
			order = append(order, m.Date)
		}
		applyEnvelopeMetric(d, m)
	}

	days := make([]domain.HealthMetricDaily, 0, len(order))
	for _, key := range order {
		days = append(days, *byDate[key])
	}

	var total store.UpsertResult
	for _, batch := range chunk(days, s.batchSize) {
		res, err := s.store.HealthDaily.UpsertBatch(ctx, userID, batch)
		if err != nil {
			return total, mapConflict(err, "health_metric_daily")
		}
		mergeResult(&total, res)
	}
	return total, nil
}

func applyEnvelopeMetric(d *domain.HealthMetricDaily, m ingest.HealthEnvelopeMetric) {
	v := ingest.NormalizeFloat(m.Value)
	switch m.Type {
	case "steps":
		n := int(v)
		d.Steps = &n
	case "weight":
		d.WeightKg = &v
	case "sleep_hours":
		d.SleepHours = &v
	case "active_calories":
		d.ActiveCalories = &v
	case "resting_heart_rate":
		n := int(v)
		d.RestingHeartRate = &n
	default:
		d.Other[m.Type] = v
	}
}

// Workouts upserts WorkoutCache rows produced by the tracker-workout
// importer after an MCP pull.
func (s *Service) Workouts(ctx context.Context, userID uuid.UUID, workouts []domain.WorkoutCache) (store.UpsertResult, error) {
	var total store.UpsertResult
	for _, batch := range chunk(workouts, s.batchSize) {
		res, err := s.store.Workouts.UpsertBatch(ctx, userID, batch)
		if err != nil {
			return total, mapConflict(err, "workout_cache")
		}
		mergeResult(&total, res)
	}
	return total, nil
}

func mergeResult(total *store.UpsertResult, batch store.UpsertResult) {
	total.NewRecords += batch.NewRecords
	total.Updated += batch.Updated
	if batch.MinDate != nil && (total.MinDate == nil || batch.MinDate.Before(*total.MinDate)) {
		total.MinDate = batch.MinDate
	}
	if batch.MaxDate != nil && (total.MaxDate == nil || batch.MaxDate.After(*total.MaxDate)) {
		total.MaxDate = batch.MaxDate
	}
}

// mapConflict recognizes a Postgres CHECK-constraint violation and turns
// it into an IngestConflict carrying a structured message; every other
// error passes through unchanged (it is not this table's business to
// retry transport failures).
func mapConflict(err error, table string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23514" {
		return apperr.WrapIngestConflict(err, "%s: constraint %q violated (showing up to %d offenders): %s",
			table, pgErr.ConstraintName, maxViolationsReported, pgErr.Detail)
	}
	return err
}

var envelopeDateLayouts = []string{"2006-01-02", time.RFC3339}

func parseEnvelopeDate(s string) (time.Time, error) {
	for _, layout := range envelopeDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognized date format")
}
