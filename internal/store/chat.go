package store

import (
	"context"
	"encoding/json"
	"time"

	"coachspine/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ChatStore owns chat_sessions and chat_messages. It never implements
// the streaming-finalization rule itself —
// that invariant lives in internal/chat, which calls these as plain CRUD.
type ChatStore struct {
	db *sqlx.DB
}

type sessionRow struct {
	ID             uuid.UUID `db:"id"`
	UserID         uuid.UUID `db:"user_id"`
	Name           *string   `db:"name"`
	CreatedAt      time.Time `db:"created_at"`
	LastActivityAt time.Time `db:"last_activity_at"`
}

func (r sessionRow) toDomain() domain.ChatSession {
	return domain.ChatSession{
		ID: r.ID, UserID: r.UserID, Name: r.Name,
		CreatedAt: r.CreatedAt, LastActivityAt: r.LastActivityAt,
	}
}

// CreateSession creates a new, empty chat session for userID.
func (s *ChatStore) CreateSession(ctx context.Context, userID uuid.UUID, name *string) (domain.ChatSession, error) {
	var row sessionRow
	err := s.db.GetContext(ctx, &row, `
		INSERT INTO chat_sessions (user_id, name)
		VALUES ($1, $2)
		RETURNING id, user_id, name, created_at, last_activity_at
	`, userID, name)
	if err != nil {
		return domain.ChatSession{}, err
	}
	return row.toDomain(), nil
}

// GetSession fetches a session by id, scoped to userID so one user can
// never read another's history.
func (s *ChatStore) GetSession(ctx context.Context, userID, sessionID uuid.UUID) (domain.ChatSession, error) {
	var row sessionRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, user_id, name, created_at, last_activity_at
		FROM chat_sessions WHERE id = $1 AND user_id = $2
	`, sessionID, userID)
	if err != nil {
		return domain.ChatSession{}, err
	}
	return row.toDomain(), nil
}

// TouchSession bumps last_activity_at to now(), via the database clock.
func (s *ChatStore) TouchSession(ctx context.Context, ext Ext, sessionID uuid.UUID) error {
	_, err := ext.ExecContext(ctx, `
		UPDATE chat_sessions SET last_activity_at = now() WHERE id = $1
	`, sessionID)
	return err
}

type messageRow struct {
	ID         uuid.UUID `db:"id"`
	SessionID  uuid.UUID `db:"session_id"`
	Role       string    `db:"role"`
	Content    string    `db:"content"`
	TokenCount int       `db:"token_count"`
	ToolCalls  []byte    `db:"tool_calls"`
	CreatedAt  time.Time `db:"created_at"`
}

func (r messageRow) toDomain() (domain.ChatMessage, error) {
	msg := domain.ChatMessage{
		ID: r.ID, SessionID: r.SessionID, Role: domain.ChatRole(r.Role),
		Content: r.Content, TokenCount: r.TokenCount, CreatedAt: r.CreatedAt,
	}
	if len(r.ToolCalls) > 0 {
		if err := json.Unmarshal(r.ToolCalls, &msg.ToolCalls); err != nil {
			return domain.ChatMessage{}, err
		}
	}
	return msg, nil
}

// InsertMessage writes one message row. ext lets callers run this inside
// a transaction under the per-session advisory lock without the
// store package knowing about locking.
func (s *ChatStore) InsertMessage(ctx context.Context, ext Ext, sessionID uuid.UUID, role domain.ChatRole, content string, tokenCount int, toolCalls []domain.ToolCallRecord) (domain.ChatMessage, error) {
	var toolCallsJSON []byte
	if len(toolCalls) > 0 {
		var err error
		toolCallsJSON, err = json.Marshal(toolCalls)
		if err != nil {
			return domain.ChatMessage{}, err
		}
	}

	rows, err := ext.QueryxContext(ctx, `
		INSERT INTO chat_messages (session_id, role, content, token_count, tool_calls)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, session_id, role, content, token_count, tool_calls, created_at
	`, sessionID, string(role), content, tokenCount, toolCallsJSON)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	defer rows.Close()

	if !rows.Next() {
		return domain.ChatMessage{}, rows.Err()
	}
	var row messageRow
	if err := rows.StructScan(&row); err != nil {
		return domain.ChatMessage{}, err
	}
	return row.toDomain()
}

// RecentMessages returns the last limit messages of a session in
// ascending (chronological) order — the window the agent loop loads
// before invoking the model.
func (s *ChatStore) RecentMessages(ctx context.Context, sessionID uuid.UUID, limit int) ([]domain.ChatMessage, error) {
	var rows []messageRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, session_id, role, content, token_count, tool_calls, created_at
		FROM (
			SELECT id, session_id, role, content, token_count, tool_calls, created_at
			FROM chat_messages
			WHERE session_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC
	`, sessionID, limit)
	if err != nil {
		return nil, err
	}

	out := make([]domain.ChatMessage, 0, len(rows))
	for _, r := range rows {
		msg, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, nil
}

// CountMessages reports how many messages exist in a session.
func (s *ChatStore) CountMessages(ctx context.Context, sessionID uuid.UUID) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT count(*) FROM chat_messages WHERE session_id = $1`, sessionID)
	return n, err
}
