package store

import (
	"context"
	"encoding/json"
	"time"

	"coachspine/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// NutritionStore owns nutrition_day. UpsertBatch is the
// only write path the ingestion pipeline uses; it is transactional
// and conflict-safe on (user, date).
type NutritionStore struct {
	db *sqlx.DB
}

type nutritionRow struct {
	ID        uuid.UUID `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	Date      time.Time `db:"date"`
	Calories  *float64  `db:"calories"`
	ProteinG  *float64  `db:"protein_g"`
	CarbsG    *float64  `db:"carbs_g"`
	FatsG     *float64  `db:"fats_g"`
	FiberG    *float64  `db:"fiber_g"`
	Raw       []byte    `db:"raw"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r nutritionRow) toDomain() (domain.NutritionDay, error) {
	day := domain.NutritionDay{
		ID: r.ID, UserID: r.UserID, Date: r.Date,
		Calories: r.Calories, ProteinG: r.ProteinG, CarbsG: r.CarbsG,
		FatsG: r.FatsG, FiberG: r.FiberG,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
	if len(r.Raw) > 0 {
		if err := json.Unmarshal(r.Raw, &day.Raw); err != nil {
			return domain.NutritionDay{}, err
		}
	}
	return day, nil
}

// UpsertResult tallies what a batch upsert actually did, the shape every
// upsertable table reports back to its ingestion caller.
type UpsertResult struct {
	NewRecords int
	Updated    int
	MinDate    *time.Time
	MaxDate    *time.Time
}

// UpsertBatch inserts or updates one NutritionDay per input record, keyed
// on (user, date): DO UPDATE replaces all scalars and Raw wholesale,
// matching the last-upload-wins contract. The whole batch commits
// or none of it does.
func (s *NutritionStore) UpsertBatch(ctx context.Context, userID uuid.UUID, days []domain.NutritionDay) (UpsertResult, error) {
	var result UpsertResult
	if len(days) == 0 {
		return result, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return result, err
	}
	defer tx.Rollback()

	for _, day := range days {
		rawJSON, err := json.Marshal(day.Raw)
		if err != nil {
			return result, err
		}

		var xmax uint32
		err = tx.QueryRowContext(ctx, `
			INSERT INTO nutrition_day (user_id, date, calories, protein_g, carbs_g, fats_g, fiber_g, raw, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
			ON CONFLICT (user_id, date) DO UPDATE SET
				calories = excluded.calories,
				protein_g = excluded.protein_g,
				carbs_g = excluded.carbs_g,
				fats_g = excluded.fats_g,
				fiber_g = excluded.fiber_g,
				raw = excluded.raw,
				updated_at = now()
			RETURNING (xmax = 0)::int
		`, userID, day.Date, day.Calories, day.ProteinG, day.CarbsG, day.FatsG, day.FiberG, rawJSON).Scan(&xmax)
		if err != nil {
			return result, err
		}

		if xmax == 1 {
			result.NewRecords++
		} else {
			result.Updated++
		}
		trackDateRange(&result, day.Date)
	}

	if err := tx.Commit(); err != nil {
		return result, err
	}
	return result, nil
}

func trackDateRange(r *UpsertResult, d time.Time) {
	if r.MinDate == nil || d.Before(*r.MinDate) {
		r.MinDate = &d
	}
	if r.MaxDate == nil || d.After(*r.MaxDate) {
		r.MaxDate = &d
	}
}

// ListRecent returns the last limit daily rows for a user, descending by
// date. Shapers build their bounded scenarios on top of this.
func (s *NutritionStore) ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]domain.NutritionDay, error) {
	var rows []nutritionRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, date, calories, protein_g, carbs_g, fats_g, fiber_g, raw, created_at, updated_at
		FROM nutrition_day WHERE user_id = $1 ORDER BY date DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	return toNutritionDays(rows)
}

// ListRange returns every daily row within [from, to] inclusive, ordered
// ascending. Used by monthly/historical aggregation.
func (s *NutritionStore) ListRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.NutritionDay, error) {
	var rows []nutritionRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, date, calories, protein_g, carbs_g, fats_g, fiber_g, raw, created_at, updated_at
		FROM nutrition_day WHERE user_id = $1 AND date BETWEEN $2 AND $3 ORDER BY date ASC
	`, userID, from, to)
	if err != nil {
		return nil, err
	}
	return toNutritionDays(rows)
}

func toNutritionDays(rows []nutritionRow) ([]domain.NutritionDay, error) {
	out := make([]domain.NutritionDay, 0, len(rows))
	for _, r := range rows {
		d, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
