// Package chat manages ChatSession/ChatMessage lifecycle with
// streaming-safe finalization. The user message is always written
// before the model is ever called, and the finalization path runs once
// per turn however the turn ends: it writes exactly one assistant message
// when the turn reached the persisted state with text, and none when the
// turn failed or produced no text.
package chat

import (
	"context"
	"hash/fnv"

	"coachspine/internal/agent"
	"coachspine/internal/domain"
	"coachspine/internal/logx"
	"coachspine/internal/store"

	"github.com/google/uuid"
)

// Service owns the chat persistence contract; the agent runtime never
// writes to chat_messages directly.
type Service struct {
	store *store.Store
}

func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// ResolveSession returns the existing session if sessionID is non-nil,
// or creates a new one — the first step of every chat turn.
func (s *Service) ResolveSession(ctx context.Context, userID uuid.UUID, sessionID *uuid.UUID) (domain.ChatSession, error) {
	if sessionID == nil {
		return s.store.Chat.CreateSession(ctx, userID, nil)
	}
	return s.store.Chat.GetSession(ctx, userID, *sessionID)
}

// AppendUserMessage writes the user's message immediately, before any
// model call, so a crash mid-turn never loses user input.
func (s *Service) AppendUserMessage(ctx context.Context, sessionID uuid.UUID, content string) (domain.ChatMessage, error) {
	return s.store.Chat.InsertMessage(ctx, s.store.DB, sessionID, domain.RoleUser, content, 0, nil)
}

// History loads the last limit messages for the agent runtime's context
// window.
func (s *Service) History(ctx context.Context, sessionID uuid.UUID, limit int) ([]domain.ChatMessage, error) {
	return s.store.Chat.RecentMessages(ctx, sessionID, limit)
}

// FinalizeTurn persists the outcome of one agent turn — exactly one
// assistant row for a turn that produced text, no row at all otherwise,
// with the outcome logged as a warning rather than silently dropped.
// The caller must already hold
// the session's advisory lock (LockSession), acquired before
// AppendUserMessage and held across the whole turn: the lock's job is
// to serialize the turn end-to-end, not just this final write.
func (s *Service) FinalizeTurn(ctx context.Context, sessionID uuid.UUID, result agent.TurnResult) error {
	if result.State != agent.StatePersisted || result.Text == "" {
		logx.Warnf("chat turn for session %s ended in state %s with no assistant output; tool_calls=%d",
			sessionID, result.State, len(result.ToolCalls))
		return nil
	}

	if _, err := s.store.Chat.InsertMessage(ctx, s.store.DB, sessionID, domain.RoleAssistant, result.Text, 0, result.ToolCalls); err != nil {
		return err
	}
	return s.store.Chat.TouchSession(ctx, s.store.DB, sessionID)
}

// LockSession acquires a session-scoped Postgres advisory lock, mapping
// the session UUID to a stable int64 key via FNV-1a, and returns a func
// that releases it. A caller must hold this lock from immediately after
// ResolveSession through FinalizeTurn: a second concurrent turn on the
// same session blocks at this call until the first one finalizes,
// rather than running its model/tool loop unguarded and only
// serializing the final write. The lock is released explicitly by the
// returned function rather than tied to a transaction, since the turn's
// writes span multiple statements outside any single enclosing
// transaction.
//
// Session-level advisory locks belong to the backend connection that
// took them, so both pg_advisory_lock and pg_advisory_unlock must run
// on one connection pinned for the lock's whole lifetime — issuing them
// through the pool would lock on one backend and "unlock" on another,
// leaking the lock, while a second turn that borrowed the holder's
// backend would re-enter it without blocking.
func (s *Service) LockSession(ctx context.Context, sessionID uuid.UUID) (func(), error) {
	key := advisoryKey(sessionID)
	conn, err := s.store.DB.Connx(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, key); err != nil {
		conn.Close()
		return nil, err
	}
	return func() {
		if _, err := conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, key); err != nil {
			logx.Warnf("failed to release advisory lock for session %s: %v", sessionID, err)
		}
		if err := conn.Close(); err != nil {
			logx.Warnf("failed to return advisory-lock connection for session %s: %v", sessionID, err)
		}
	}, nil
}

func advisoryKey(sessionID uuid.UUID) int64 {
	h := fnv.New64a()
	_, _ = h.Write(sessionID[:])
	return int64(h.Sum64())
}
