package agent

import (
	"coachspine/internal/store"

	"github.com/google/uuid"
)

// RunContext is passed into every tool invocation so tools can open
// their own short-lived DB reads for parallel safety: tools
// never share a single request-scoped transaction.
type RunContext struct {
	Store     *store.Store
	UserID    uuid.UUID
	SessionID uuid.UUID
}
