package store

import (
	"context"
	"encoding/json"
	"time"

	"coachspine/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// WorkoutStore owns workout_cache, the local lagging
// cache of tracker-owned data.
type WorkoutStore struct {
	db *sqlx.DB
}

type workoutRow struct {
	ID                uuid.UUID `db:"id"`
	UserID            uuid.UUID `db:"user_id"`
	ExternalWorkoutID string    `db:"external_workout_id"`
	WorkoutDate       time.Time `db:"workout_date"`
	Title             string    `db:"title"`
	TotalSets         int       `db:"total_sets"`
	TotalVolumeKg     float64   `db:"total_volume_kg"`
	MuscleGroups      []byte    `db:"muscle_groups"`
	Payload           []byte    `db:"payload"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

func (r workoutRow) toDomain() (domain.WorkoutCache, error) {
	w := domain.WorkoutCache{
		ID: r.ID, UserID: r.UserID, ExternalWorkoutID: r.ExternalWorkoutID,
		WorkoutDate: r.WorkoutDate, Title: r.Title, TotalSets: r.TotalSets,
		TotalVolumeKg: r.TotalVolumeKg, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
	if len(r.MuscleGroups) > 0 {
		if err := json.Unmarshal(r.MuscleGroups, &w.MuscleGroups); err != nil {
			return domain.WorkoutCache{}, err
		}
	}
	if len(r.Payload) > 0 {
		if err := json.Unmarshal(r.Payload, &w.Payload); err != nil {
			return domain.WorkoutCache{}, err
		}
	}
	return w, nil
}

// UpsertBatch upserts WorkoutCache rows on (user, external_workout_id).
// Used after the tracker-workout importer converts MCP-fetched
// workouts.
func (s *WorkoutStore) UpsertBatch(ctx context.Context, userID uuid.UUID, workouts []domain.WorkoutCache) (UpsertResult, error) {
	var result UpsertResult
	if len(workouts) == 0 {
		return result, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return result, err
	}
	defer tx.Rollback()

	deduped := dedupeWorkoutsByExternalID(workouts)
	for _, w := range deduped {
		muscleGroups, err := json.Marshal(w.MuscleGroups)
		if err != nil {
			return result, err
		}
		payload, err := json.Marshal(w.Payload)
		if err != nil {
			return result, err
		}

		var xmax uint32
		err = tx.QueryRowContext(ctx, `
			INSERT INTO workout_cache (user_id, external_workout_id, workout_date, title, total_sets, total_volume_kg, muscle_groups, payload, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
			ON CONFLICT (user_id, external_workout_id) DO UPDATE SET
				workout_date = excluded.workout_date,
				title = excluded.title,
				total_sets = excluded.total_sets,
				total_volume_kg = excluded.total_volume_kg,
				muscle_groups = excluded.muscle_groups,
				payload = excluded.payload,
				updated_at = now()
			RETURNING (xmax = 0)::int
		`, userID, w.ExternalWorkoutID, w.WorkoutDate, w.Title, w.TotalSets, w.TotalVolumeKg, muscleGroups, payload).Scan(&xmax)
		if err != nil {
			return result, err
		}
		if xmax == 1 {
			result.NewRecords++
		} else {
			result.Updated++
		}
		trackDateRange(&result, w.WorkoutDate)
	}

	if err := tx.Commit(); err != nil {
		return result, err
	}
	return result, nil
}

func dedupeWorkoutsByExternalID(workouts []domain.WorkoutCache) []domain.WorkoutCache {
	order := []string{}
	byID := map[string]domain.WorkoutCache{}
	for _, w := range workouts {
		if _, seen := byID[w.ExternalWorkoutID]; !seen {
			order = append(order, w.ExternalWorkoutID)
		}
		byID[w.ExternalWorkoutID] = w
	}
	out := make([]domain.WorkoutCache, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out
}

// ListRecent returns the last limit workouts, descending by date — backs
// GET /workout-history and the workout shaper's quick_check scenario.
func (s *WorkoutStore) ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]domain.WorkoutCache, error) {
	var rows []workoutRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, external_workout_id, workout_date, title, total_sets, total_volume_kg, muscle_groups, payload, created_at, updated_at
		FROM workout_cache WHERE user_id = $1 ORDER BY workout_date DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	return toWorkouts(rows)
}

// ListRange returns workouts within [from, to], ascending.
func (s *WorkoutStore) ListRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.WorkoutCache, error) {
	var rows []workoutRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, external_workout_id, workout_date, title, total_sets, total_volume_kg, muscle_groups, payload, created_at, updated_at
		FROM workout_cache WHERE user_id = $1 AND workout_date BETWEEN $2 AND $3 ORDER BY workout_date ASC
	`, userID, from, to)
	if err != nil {
		return nil, err
	}
	return toWorkouts(rows)
}

func toWorkouts(rows []workoutRow) ([]domain.WorkoutCache, error) {
	out := make([]domain.WorkoutCache, 0, len(rows))
	for _, r := range rows {
		w, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}
