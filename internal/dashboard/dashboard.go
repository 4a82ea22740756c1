// Package dashboard holds read-only direct-SQL aggregation
// endpoints that bypass the agent entirely for speed. Each query is
// built with squirrel (as ClusterCockpit-cc-backend's repository layer
// does) rather than the agent's tool-shaped store methods, since these
// never need to go through the model's JSON-argument surface.
package dashboard

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// psql is the shared squirrel builder configured for Postgres's $N
// placeholder style.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Service runs every dashboard aggregation directly against the pool,
// with no agent or shaper indirection.
type Service struct {
	db *sqlx.DB
}

func NewService(db *sqlx.DB) *Service {
	return &Service{db: db}
}

// WeeklyTrainingScore is a single bounded scalar derived from session
// count and total volume since Monday of the current week — a quick health
// indicator for the dashboard's headline card.
type WeeklyTrainingScore struct {
	WeekStart     time.Time `json:"week_start" db:"week_start"`
	SessionCount  int       `json:"session_count" db:"session_count"`
	TotalVolumeKg float64   `json:"total_volume_kg" db:"total_volume_kg"`
	Score         float64   `json:"score"`
}

// WeeklyScore computes the current week's training score: a weighted
// blend of session count against a 4-session target and total volume
// against a 10,000kg target, clamped to [0, 100].
func (s *Service) WeeklyScore(ctx context.Context, userID uuid.UUID) (WeeklyTrainingScore, error) {
	weekStart := mondayOf(time.Now().UTC())

	query, args, err := psql.Select(
		"count(*) AS session_count",
		"coalesce(sum(total_volume_kg), 0) AS total_volume_kg",
	).From("workout_cache").
		Where(sq.Eq{"user_id": userID}).
		Where(sq.GtOrEq{"workout_date": weekStart}).
		ToSql()
	if err != nil {
		return WeeklyTrainingScore{}, err
	}

	var row WeeklyTrainingScore
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		return WeeklyTrainingScore{}, err
	}
	row.WeekStart = weekStart

	const targetSessions = 4.0
	const targetVolumeKg = 10000.0
	sessionScore := clamp(float64(row.SessionCount)/targetSessions, 0, 1)
	volumeScore := clamp(row.TotalVolumeKg/targetVolumeKg, 0, 1)
	row.Score = roundTo2((sessionScore*0.6 + volumeScore*0.4) * 100)

	return row, nil
}

// MuscleGroupShare is one muscle group's share of all muscle-group
// appearances over the aggregation window; SetCount is the number of
// workouts whose muscle_groups list names the group.
type MuscleGroupShare struct {
	MuscleGroup string  `json:"muscle_group" db:"muscle_group"`
	SetCount    int     `json:"set_count" db:"set_count"`
	Share       float64 `json:"share"`
}

// MuscleGroupDistribution extracts the muscle_groups JSONB array from
// every WorkoutCache row in the last 28 days and tallies how many
// workouts touched each group — a single bounded query (one row per
// muscle group, never per workout).
func (s *Service) MuscleGroupDistribution(ctx context.Context, userID uuid.UUID) ([]MuscleGroupShare, error) {
	since := time.Now().UTC().AddDate(0, 0, -28)

	query, args, err := psql.Select(
		"jsonb_array_elements_text(muscle_groups) AS muscle_group",
	).From("workout_cache").
		Where(sq.Eq{"user_id": userID}).
		Where(sq.GtOrEq{"workout_date": since}).
		ToSql()
	if err != nil {
		return nil, err
	}

	// Postgres rejects a set-returning function in GROUP BY, so the inner
	// query only explodes each array and the outer one groups and counts.
	wrapped := `
		SELECT muscle_group, count(*) AS set_count
		FROM (` + query + `) exploded
		GROUP BY muscle_group
		ORDER BY set_count DESC
	`

	var rows []MuscleGroupShare
	if err := s.db.SelectContext(ctx, &rows, wrapped, args...); err != nil {
		return nil, err
	}

	total := 0
	for _, r := range rows {
		total += r.SetCount
	}
	for i := range rows {
		if total > 0 {
			rows[i].Share = roundTo2(float64(rows[i].SetCount) / float64(total))
		}
	}
	return rows, nil
}

// HeatmapDay is one day's training intensity for the 28-day heatmap.
type HeatmapDay struct {
	Date         time.Time `json:"date" db:"workout_date"`
	SessionCount int       `json:"session_count" db:"session_count"`
}

// TrainingHeatmap returns one row per day with at least one workout in
// the last 28 days — bounded to at most 28 rows by construction.
func (s *Service) TrainingHeatmap(ctx context.Context, userID uuid.UUID) ([]HeatmapDay, error) {
	since := time.Now().UTC().AddDate(0, 0, -28)

	query, args, err := psql.Select(
		"workout_date",
		"count(*) AS session_count",
	).From("workout_cache").
		Where(sq.Eq{"user_id": userID}).
		Where(sq.GtOrEq{"workout_date": since}).
		GroupBy("workout_date").
		OrderBy("workout_date ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []HeatmapDay
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func mondayOf(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return t.AddDate(0, 0, -(weekday - 1)).Truncate(24 * time.Hour)
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func roundTo2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
