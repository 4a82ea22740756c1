package store

import (
	"context"
	"encoding/json"
	"time"

	"coachspine/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// GoalsStore owns user_goals and user_preferences.
type GoalsStore struct {
	db *sqlx.DB
}

// UpsertGoals writes the one active goals record for (user, kind).
func (s *GoalsStore) UpsertGoals(ctx context.Context, userID uuid.UUID, kind domain.GoalKind, targets map[string]any) (domain.UserGoals, error) {
	targetsJSON, err := json.Marshal(targets)
	if err != nil {
		return domain.UserGoals{}, err
	}

	type row struct {
		ID        uuid.UUID `db:"id"`
		UserID    uuid.UUID `db:"user_id"`
		Kind      string    `db:"kind"`
		Targets   []byte    `db:"targets"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}
	var r row
	err = s.db.GetContext(ctx, &r, `
		INSERT INTO user_goals (user_id, kind, targets)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, kind) DO UPDATE SET targets = excluded.targets, updated_at = now()
		RETURNING id, user_id, kind, targets, created_at, updated_at
	`, userID, string(kind), targetsJSON)
	if err != nil {
		return domain.UserGoals{}, err
	}

	g := domain.UserGoals{ID: r.ID, UserID: r.UserID, Kind: domain.GoalKind(r.Kind), CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
	if len(r.Targets) > 0 {
		if err := json.Unmarshal(r.Targets, &g.Targets); err != nil {
			return domain.UserGoals{}, err
		}
	}
	return g, nil
}

// GetGoals fetches the active goals record for (user, kind), if any.
func (s *GoalsStore) GetGoals(ctx context.Context, userID uuid.UUID, kind domain.GoalKind) (*domain.UserGoals, error) {
	type row struct {
		ID        uuid.UUID `db:"id"`
		UserID    uuid.UUID `db:"user_id"`
		Kind      string    `db:"kind"`
		Targets   []byte    `db:"targets"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}
	var r row
	err := s.db.GetContext(ctx, &r, `
		SELECT id, user_id, kind, targets, created_at, updated_at FROM user_goals WHERE user_id = $1 AND kind = $2
	`, userID, string(kind))
	if err != nil {
		return nil, err
	}
	g := domain.UserGoals{ID: r.ID, UserID: r.UserID, Kind: domain.GoalKind(r.Kind), CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
	if len(r.Targets) > 0 {
		if err := json.Unmarshal(r.Targets, &g.Targets); err != nil {
			return nil, err
		}
	}
	return &g, nil
}

// UpsertPreferences writes the single preferences row a user may hold.
func (s *GoalsStore) UpsertPreferences(ctx context.Context, prefs domain.UserPreferences) (domain.UserPreferences, error) {
	equipment, err := json.Marshal(prefs.AllowedEquipment)
	if err != nil {
		return domain.UserPreferences{}, err
	}
	disliked, err := json.Marshal(prefs.DislikedExercises)
	if err != nil {
		return domain.UserPreferences{}, err
	}

	type row struct {
		UserID            uuid.UUID `db:"user_id"`
		AllowedEquipment  []byte    `db:"allowed_equipment"`
		DislikedExercises []byte    `db:"disliked_exercises"`
		InjuryNotes       string    `db:"injury_notes"`
		CreatedAt         time.Time `db:"created_at"`
		UpdatedAt         time.Time `db:"updated_at"`
	}
	var r row
	err = s.db.GetContext(ctx, &r, `
		INSERT INTO user_preferences (user_id, allowed_equipment, disliked_exercises, injury_notes)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			allowed_equipment = excluded.allowed_equipment,
			disliked_exercises = excluded.disliked_exercises,
			injury_notes = excluded.injury_notes,
			updated_at = now()
		RETURNING user_id, allowed_equipment, disliked_exercises, injury_notes, created_at, updated_at
	`, prefs.UserID, equipment, disliked, prefs.InjuryNotes)
	if err != nil {
		return domain.UserPreferences{}, err
	}

	out := domain.UserPreferences{UserID: r.UserID, InjuryNotes: r.InjuryNotes, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
	if err := json.Unmarshal(r.AllowedEquipment, &out.AllowedEquipment); err != nil {
		return domain.UserPreferences{}, err
	}
	if err := json.Unmarshal(r.DislikedExercises, &out.DislikedExercises); err != nil {
		return domain.UserPreferences{}, err
	}
	return out, nil
}

// GetPreferences fetches the single preferences row for a user, if set.
func (s *GoalsStore) GetPreferences(ctx context.Context, userID uuid.UUID) (*domain.UserPreferences, error) {
	type row struct {
		UserID            uuid.UUID `db:"user_id"`
		AllowedEquipment  []byte    `db:"allowed_equipment"`
		DislikedExercises []byte    `db:"disliked_exercises"`
		InjuryNotes       string    `db:"injury_notes"`
		CreatedAt         time.Time `db:"created_at"`
		UpdatedAt         time.Time `db:"updated_at"`
	}
	var r row
	err := s.db.GetContext(ctx, &r, `
		SELECT user_id, allowed_equipment, disliked_exercises, injury_notes, created_at, updated_at
		FROM user_preferences WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, err
	}
	out := domain.UserPreferences{UserID: r.UserID, InjuryNotes: r.InjuryNotes, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
	if err := json.Unmarshal(r.AllowedEquipment, &out.AllowedEquipment); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(r.DislikedExercises, &out.DislikedExercises); err != nil {
		return nil, err
	}
	return &out, nil
}
