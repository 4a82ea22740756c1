package store

import (
	"context"
	"encoding/json"
	"time"

	"coachspine/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// HealthRawStore owns health_metric_raw, the append-only hypertable.
type HealthRawStore struct {
	db *sqlx.DB
}

// UpsertBatch inserts HealthMetricRaw points, DO NOTHING on a conflicting
// (user, ts, metric_type, source): raw points are immutable once written,
// so a duplicate upload is a no-op rather than an overwrite. Row counts
// therefore never increase on a second identical run.
func (s *HealthRawStore) UpsertBatch(ctx context.Context, userID uuid.UUID, points []domain.HealthMetricRaw) (UpsertResult, error) {
	var result UpsertResult
	if len(points) == 0 {
		return result, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return result, err
	}
	defer tx.Rollback()

	deduped := dedupeRawPoints(points)
	for _, p := range deduped {
		meta, err := json.Marshal(p.Metadata)
		if err != nil {
			return result, err
		}
		tag, err := tx.ExecContext(ctx, `
			INSERT INTO health_metric_raw (user_id, ts, metric_type, source, value, unit, metadata)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (user_id, ts, metric_type, source) DO NOTHING
		`, userID, p.Timestamp, p.MetricType, p.Source, p.Value, p.Unit, meta)
		if err != nil {
			return result, err
		}
		n, _ := tag.RowsAffected()
		if n > 0 {
			result.NewRecords++
		}
		trackDateRange(&result, p.Timestamp)
	}

	if err := tx.Commit(); err != nil {
		return result, err
	}
	return result, nil
}

// dedupeRawPoints keeps the last occurrence of each conflict key so a
// single ON CONFLICT statement is never asked to touch the same row
// twice in one execution.
func dedupeRawPoints(points []domain.HealthMetricRaw) []domain.HealthMetricRaw {
	type key struct {
		ts     time.Time
		metric string
		source string
	}
	order := make([]key, 0, len(points))
	byKey := map[key]domain.HealthMetricRaw{}
	for _, p := range points {
		k := key{p.Timestamp, p.MetricType, p.Source}
		if _, seen := byKey[k]; !seen {
			order = append(order, k)
		}
		byKey[k] = p
	}
	out := make([]domain.HealthMetricRaw, 0, len(order))
	for _, k := range order {
		out = append(out, byKey[k])
	}
	return out
}

// ListByType returns raw points for one metric type within [from, to],
// ascending by timestamp — used to recompute HealthMetricDaily.
func (s *HealthRawStore) ListByType(ctx context.Context, userID uuid.UUID, metricType string, from, to time.Time) ([]domain.HealthMetricRaw, error) {
	type row struct {
		UserID     uuid.UUID `db:"user_id"`
		Timestamp  time.Time `db:"ts"`
		MetricType string    `db:"metric_type"`
		Source     string    `db:"source"`
		Value      float64   `db:"value"`
		Unit       string    `db:"unit"`
	}
	var rows []row
	err := s.db.SelectContext(ctx, &rows, `
		SELECT user_id, ts, metric_type, source, value, unit
		FROM health_metric_raw
		WHERE user_id = $1 AND metric_type = $2 AND ts BETWEEN $3 AND $4
		ORDER BY ts ASC
	`, userID, metricType, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]domain.HealthMetricRaw, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.HealthMetricRaw{
			UserID: r.UserID, Timestamp: r.Timestamp, MetricType: r.MetricType,
			Source: r.Source, Value: r.Value, Unit: r.Unit,
		})
	}
	return out, nil
}

// HealthDailyStore owns health_metric_daily.
type HealthDailyStore struct {
	db *sqlx.DB
}

type healthDailyRow struct {
	ID               uuid.UUID `db:"id"`
	UserID           uuid.UUID `db:"user_id"`
	Date             time.Time `db:"date"`
	Steps            *int      `db:"steps"`
	WeightKg         *float64  `db:"weight_kg"`
	SleepHours       *float64  `db:"sleep_hours"`
	ActiveCalories   *float64  `db:"active_calories"`
	RestingHeartRate *int      `db:"resting_heart_rate"`
	Other            []byte    `db:"other"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func (r healthDailyRow) toDomain() (domain.HealthMetricDaily, error) {
	d := domain.HealthMetricDaily{
		ID: r.ID, UserID: r.UserID, Date: r.Date,
		Steps: r.Steps, WeightKg: r.WeightKg, SleepHours: r.SleepHours,
		ActiveCalories: r.ActiveCalories, RestingHeartRate: r.RestingHeartRate,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
	if len(r.Other) > 0 {
		if err := json.Unmarshal(r.Other, &d.Other); err != nil {
			return domain.HealthMetricDaily{}, err
		}
	}
	return d, nil
}

// UpsertBatch upserts HealthMetricDaily rows on (user, date) with COALESCE
// semantics: a newer non-null value wins, a newer null preserves the
// old value. Unlike the nutrition and workout upserts, this conflict
// clause is not a flat overwrite.
func (s *HealthDailyStore) UpsertBatch(ctx context.Context, userID uuid.UUID, days []domain.HealthMetricDaily) (UpsertResult, error) {
	var result UpsertResult
	if len(days) == 0 {
		return result, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return result, err
	}
	defer tx.Rollback()

	deduped := dedupeDailyByDate(days)
	for _, d := range deduped {
		other, err := json.Marshal(d.Other)
		if err != nil {
			return result, err
		}
		var xmax uint32
		err = tx.QueryRowContext(ctx, `
			INSERT INTO health_metric_daily (user_id, date, steps, weight_kg, sleep_hours, active_calories, resting_heart_rate, other, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
			ON CONFLICT (user_id, date) DO UPDATE SET
				steps = COALESCE(excluded.steps, health_metric_daily.steps),
				weight_kg = COALESCE(excluded.weight_kg, health_metric_daily.weight_kg),
				sleep_hours = COALESCE(excluded.sleep_hours, health_metric_daily.sleep_hours),
				active_calories = COALESCE(excluded.active_calories, health_metric_daily.active_calories),
				resting_heart_rate = COALESCE(excluded.resting_heart_rate, health_metric_daily.resting_heart_rate),
				other = health_metric_daily.other || excluded.other,
				updated_at = now()
			RETURNING (xmax = 0)::int
		`, userID, d.Date, d.Steps, d.WeightKg, d.SleepHours, d.ActiveCalories, d.RestingHeartRate, other).Scan(&xmax)
		if err != nil {
			return result, err
		}
		if xmax == 1 {
			result.NewRecords++
		} else {
			result.Updated++
		}
		trackDateRange(&result, d.Date)
	}

	if err := tx.Commit(); err != nil {
		return result, err
	}
	return result, nil
}

func dedupeDailyByDate(days []domain.HealthMetricDaily) []domain.HealthMetricDaily {
	order := []time.Time{}
	byDate := map[time.Time]domain.HealthMetricDaily{}
	for _, d := range days {
		if _, seen := byDate[d.Date]; !seen {
			order = append(order, d.Date)
		}
		byDate[d.Date] = d
	}
	out := make([]domain.HealthMetricDaily, 0, len(order))
	for _, date := range order {
		out = append(out, byDate[date])
	}
	return out
}

// ListRecent returns the last limit HealthMetricDaily rows, descending by
// date — the building block every health shaper scenario composes.
func (s *HealthDailyStore) ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]domain.HealthMetricDaily, error) {
	var rows []healthDailyRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, date, steps, weight_kg, sleep_hours, active_calories, resting_heart_rate, other, created_at, updated_at
		FROM health_metric_daily WHERE user_id = $1 ORDER BY date DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.HealthMetricDaily, 0, len(rows))
	for _, r := range rows {
		d, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// ListRange returns daily rows within [from, to], ascending.
func (s *HealthDailyStore) ListRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.HealthMetricDaily, error) {
	var rows []healthDailyRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, date, steps, weight_kg, sleep_hours, active_calories, resting_heart_rate, other, created_at, updated_at
		FROM health_metric_daily WHERE user_id = $1 AND date BETWEEN $2 AND $3 ORDER BY date ASC
	`, userID, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]domain.HealthMetricDaily, 0, len(rows))
	for _, r := range rows {
		d, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// HealthWeeklyStore owns health_weekly_summary,
// fully derived and regenerated on demand rather than incrementally
// upserted from ingestion.
type HealthWeeklyStore struct {
	db *sqlx.DB
}

type weeklyRow struct {
	ID                  uuid.UUID `db:"id"`
	UserID              uuid.UUID `db:"user_id"`
	WeekStart           time.Time `db:"week_start"`
	AvgSteps            *float64  `db:"avg_steps"`
	AvgWeightKg         *float64  `db:"avg_weight_kg"`
	WeightDeltaKg       *float64  `db:"weight_delta_kg"`
	AvgSleepHours       *float64  `db:"avg_sleep_hours"`
	AvgActiveCalories   *float64  `db:"avg_active_calories"`
	AvgRestingHeartRate *float64  `db:"avg_resting_heart_rate"`
	WorkoutCount        int       `db:"workout_count"`
	GeneratedAt         time.Time `db:"generated_at"`
}

func (r weeklyRow) toDomain() domain.HealthWeeklySummary {
	return domain.HealthWeeklySummary{
		ID: r.ID, UserID: r.UserID, WeekStart: r.WeekStart,
		AvgSteps: r.AvgSteps, AvgWeightKg: r.AvgWeightKg, WeightDeltaKg: r.WeightDeltaKg,
		AvgSleepHours: r.AvgSleepHours, AvgActiveCalories: r.AvgActiveCalories,
		AvgRestingHeartRate: r.AvgRestingHeartRate, WorkoutCount: r.WorkoutCount,
		GeneratedAt: r.GeneratedAt,
	}
}

// Regenerate replaces the stored summary for one week with a freshly
// computed one; there is no partial-update path because the whole row
// is derived.
func (s *HealthWeeklyStore) Regenerate(ctx context.Context, userID uuid.UUID, summary domain.HealthWeeklySummary) (domain.HealthWeeklySummary, error) {
	var row weeklyRow
	err := s.db.GetContext(ctx, &row, `
		INSERT INTO health_weekly_summary (user_id, week_start, avg_steps, avg_weight_kg, weight_delta_kg, avg_sleep_hours, avg_active_calories, avg_resting_heart_rate, workout_count, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (user_id, week_start) DO UPDATE SET
			avg_steps = excluded.avg_steps,
			avg_weight_kg = excluded.avg_weight_kg,
			weight_delta_kg = excluded.weight_delta_kg,
			avg_sleep_hours = excluded.avg_sleep_hours,
			avg_active_calories = excluded.avg_active_calories,
			avg_resting_heart_rate = excluded.avg_resting_heart_rate,
			workout_count = excluded.workout_count,
			generated_at = now()
		RETURNING id, user_id, week_start, avg_steps, avg_weight_kg, weight_delta_kg, avg_sleep_hours, avg_active_calories, avg_resting_heart_rate, workout_count, generated_at
	`, userID, summary.WeekStart, summary.AvgSteps, summary.AvgWeightKg, summary.WeightDeltaKg,
		summary.AvgSleepHours, summary.AvgActiveCalories, summary.AvgRestingHeartRate, summary.WorkoutCount)
	if err != nil {
		return domain.HealthWeeklySummary{}, err
	}
	return row.toDomain(), nil
}

// ListRecent returns the last limit weekly summaries, descending by week.
func (s *HealthWeeklyStore) ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]domain.HealthWeeklySummary, error) {
	var rows []weeklyRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, week_start, avg_steps, avg_weight_kg, weight_delta_kg, avg_sleep_hours, avg_active_calories, avg_resting_heart_rate, workout_count, generated_at
		FROM health_weekly_summary WHERE user_id = $1 ORDER BY week_start DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.HealthWeeklySummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}
