package api

import (
	"fmt"
	"net/http"

	"coachspine/internal/agent"
	"coachspine/internal/apperr"

	"github.com/google/uuid"
)

const defaultHistoryWindow = 20

type chatRequest struct {
	Message   string  `json:"message"`
	SessionID *string `json:"session_id,omitempty"`
}

type chatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

func parseSessionID(raw *string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, apperr.Parse("session_id %q is not a valid identifier", *raw)
	}
	return &id, nil
}

// handleChat implements the non-streaming convenience endpoint:
// the full turn runs to completion server-side and the aggregated text
// is returned in one response body.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, apperr.WrapParse(err, "decoding chat request"))
		return
	}

	userID, err := s.resolveUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	sessionID, err := parseSessionID(req.SessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	session, err := s.ctx.Chat.ResolveSession(r.Context(), userID, sessionID)
	if err != nil {
		writeError(w, apperr.WrapModel(err, "resolving chat session"))
		return
	}

	// Held for the entire turn, not just FinalizeTurn's write: a second
	// concurrent turn on this session waits here rather than running its
	// model/tool loop in parallel.
	unlock, err := s.ctx.Chat.LockSession(r.Context(), session.ID)
	if err != nil {
		writeError(w, apperr.WrapModel(err, "acquiring session lock"))
		return
	}
	defer unlock()

	if _, err := s.ctx.Chat.AppendUserMessage(r.Context(), session.ID, req.Message); err != nil {
		writeError(w, apperr.WrapModel(err, "persisting user message"))
		return
	}

	history, err := s.ctx.Chat.History(r.Context(), session.ID, defaultHistoryWindow)
	if err != nil {
		writeError(w, apperr.WrapModel(err, "loading session history"))
		return
	}

	rc := &agent.RunContext{Store: s.ctx.Store, UserID: userID, SessionID: session.ID}
	result := s.ctx.Runtime.RunTurn(r.Context(), rc, history, req.Message, nil)

	if err := s.ctx.Chat.FinalizeTurn(r.Context(), session.ID, result); err != nil {
		writeError(w, apperr.WrapModel(err, "finalizing chat turn"))
		return
	}

	if result.State != agent.StatePersisted {
		writeError(w, apperr.Model("the model turn failed before producing a response"))
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Response: result.Text, SessionID: session.ID.String()})
}

// handleChatStream implements the streaming chat contract:
// the user message is written before any model call, a single prelude
// chunk carries the session id so the client can update its URL
// immediately, tokens stream as produced, and a finally-equivalent path
// finalizes the turn however it ends, persisting exactly one assistant
// row for a turn that completed with text and none for a failed one.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, apperr.WrapParse(err, "decoding chat request"))
		return
	}

	userID, err := s.resolveUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	sessionID, err := parseSessionID(req.SessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	session, err := s.ctx.Chat.ResolveSession(r.Context(), userID, sessionID)
	if err != nil {
		writeError(w, apperr.WrapModel(err, "resolving chat session"))
		return
	}

	// Held for the entire turn, not just FinalizeTurn's write: a second
	// concurrent turn on this session waits here rather than streaming
	// its own response in parallel.
	unlock, err := s.ctx.Chat.LockSession(r.Context(), session.ID)
	if err != nil {
		writeError(w, apperr.WrapModel(err, "acquiring session lock"))
		return
	}
	defer unlock()

	if _, err := s.ctx.Chat.AppendUserMessage(r.Context(), session.ID, req.Message); err != nil {
		writeError(w, apperr.WrapModel(err, "persisting user message"))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	flusher, canFlush := w.(http.Flusher)

	fmt.Fprintf(w, "SESSION_ID: %s\n", session.ID.String())
	if canFlush {
		flusher.Flush()
	}

	history, err := s.ctx.Chat.History(r.Context(), session.ID, defaultHistoryWindow)
	if err != nil {
		// The user row survived; no assistant row is written, matching
		// the zero-token failure branch of the streaming persistence law.
		fmt.Fprintf(w, "\n[error] %s\n", err.Error())
		return
	}

	rc := &agent.RunContext{Store: s.ctx.Store, UserID: userID, SessionID: session.ID}
	result := s.ctx.Runtime.RunTurn(r.Context(), rc, history, req.Message, func(delta string) {
		fmt.Fprint(w, delta)
		if canFlush {
			flusher.Flush()
		}
	})

	if err := s.ctx.Chat.FinalizeTurn(r.Context(), session.ID, result); err != nil {
		fmt.Fprintf(w, "\n[error] %s\n", err.Error())
	}
}
