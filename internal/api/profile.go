package api

import (
	"net/http"

	"coachspine/internal/apperr"

	"github.com/google/uuid"
)

type profileResponse struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Email       *string `json:"email,omitempty"`
}

// handleGetProfile implements GET /user/profile/{id}: minimal
// profile read, no agent or ingestion involvement.
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, apperr.Parse("profile id %q is not a valid identifier", r.PathValue("id")))
		return
	}

	user, err := s.ctx.Store.Users.Get(r.Context(), id)
	if err != nil {
		writeError(w, apperr.WrapParse(err, "profile %s not found", id))
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{ID: user.ID.String(), DisplayName: user.DisplayName, Email: user.Email})
}

type profileUpsertRequest struct {
	ID          *string `json:"id,omitempty"`
	DisplayName string  `json:"display_name"`
	Email       *string `json:"email,omitempty"`
}

// handlePostProfile implements POST /user/profile: creates a new
// user when no id is given, or updates display name/email for an
// existing one — the only write path onto the users table besides the
// seed tooling and the server's boot-time default-user creation.
func (s *Server) handlePostProfile(w http.ResponseWriter, r *http.Request) {
	var req profileUpsertRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, apperr.WrapParse(err, "decoding profile request"))
		return
	}
	if req.DisplayName == "" {
		writeError(w, apperr.Parse("display_name is required"))
		return
	}

	var id uuid.UUID
	if req.ID != nil && *req.ID != "" {
		parsed, err := uuid.Parse(*req.ID)
		if err != nil {
			writeError(w, apperr.Parse("profile id %q is not a valid identifier", *req.ID))
			return
		}
		id = parsed
	} else {
		id = uuid.New()
	}

	user, err := s.ctx.Store.Users.Upsert(r.Context(), id, req.DisplayName, req.Email)
	if err != nil {
		writeError(w, apperr.WrapParse(err, "saving profile"))
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{ID: user.ID.String(), DisplayName: user.DisplayName, Email: user.Email})
}
