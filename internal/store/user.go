package store

import (
	"context"
	"time"

	"coachspine/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// UserStore owns the users table, the root of the ownership graph.
type UserStore struct {
	db *sqlx.DB
}

type userRow struct {
	ID          uuid.UUID `db:"id"`
	DisplayName string    `db:"display_name"`
	Email       *string   `db:"email"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r userRow) toDomain() domain.User {
	return domain.User{
		ID:          r.ID,
		DisplayName: r.DisplayName,
		Email:       r.Email,
		CreatedAt:   r.CreatedAt,
	}
}

// Create inserts a new user; the database clock stamps CreatedAt.
func (s *UserStore) Create(ctx context.Context, displayName string, email *string) (domain.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, `
		INSERT INTO users (display_name, email)
		VALUES ($1, $2)
		RETURNING id, display_name, email, created_at
	`, displayName, email)
	if err != nil {
		return domain.User{}, err
	}
	return row.toDomain(), nil
}

func (s *UserStore) Get(ctx context.Context, id uuid.UUID) (domain.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, display_name, email, created_at FROM users WHERE id = $1
	`, id)
	if err != nil {
		return domain.User{}, err
	}
	return row.toDomain(), nil
}

// ListAll returns every registered user, for the scheduler's per-user
// scrape fan-out.
func (s *UserStore) ListAll(ctx context.Context) ([]domain.User, error) {
	var rows []userRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, display_name, email, created_at FROM users ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	out := make([]domain.User, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// Upsert is used by profile CRUD (GET/POST /user/profile): updates
// display name/email if id is already known, inserts otherwise.
func (s *UserStore) Upsert(ctx context.Context, id uuid.UUID, displayName string, email *string) (domain.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, `
		INSERT INTO users (id, display_name, email)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET display_name = excluded.display_name, email = excluded.email
		RETURNING id, display_name, email, created_at
	`, id, displayName, email)
	if err != nil {
		return domain.User{}, err
	}
	return row.toDomain(), nil
}
