// Package store owns per-table CRUD and the conflict-target upserts.
// Most store methods run on the store's pooled handle; the chat writes
// (InsertMessage, TouchSession) accept an Ext handle so callers can hand
// them either the pooled connection or an open transaction.
package store

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// Ext is the minimal sqlx surface every store method needs: it is
// satisfied by *sqlx.DB and *sqlx.Tx alike, so tools can run inside a
// transaction without the store package branching on type.
type Ext interface {
	sqlx.ExtContext
	sqlx.QueryerContext
}

// Store bundles every table-scoped store plus the underlying sqlx
// handle, so callers needing a transaction can still reach BeginTxx.
type Store struct {
	DB *sqlx.DB

	Users        *UserStore
	Chat         *ChatStore
	Nutrition    *NutritionStore
	HealthRaw    *HealthRawStore
	HealthDaily  *HealthDailyStore
	HealthWeekly *HealthWeeklyStore
	Workouts     *WorkoutStore
	Goals        *GoalsStore
	Sync         *SyncStore
}

// New wraps a *sql.DB (as produced by internal/db.Connect) in sqlx and
// constructs every table-scoped store over it.
func New(conn *sql.DB) *Store {
	sdb := sqlx.NewDb(conn, "pgx")
	return &Store{
		DB:           sdb,
		Users:        &UserStore{db: sdb},
		Chat:         &ChatStore{db: sdb},
		Nutrition:    &NutritionStore{db: sdb},
		HealthRaw:    &HealthRawStore{db: sdb},
		HealthDaily:  &HealthDailyStore{db: sdb},
		HealthWeekly: &HealthWeeklyStore{db: sdb},
		Workouts:     &WorkoutStore{db: sdb},
		Goals:        &GoalsStore{db: sdb},
		Sync:         &SyncStore{db: sdb},
	}
}
