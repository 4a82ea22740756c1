package store

import (
	"context"
	"time"

	"coachspine/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// SyncStore owns sync_metadata, the per-source
// attempt/outcome ledger the scheduler's alerting pass reads.
type SyncStore struct {
	db *sqlx.DB
}

type syncRow struct {
	ID            uuid.UUID  `db:"id"`
	UserID        uuid.UUID  `db:"user_id"`
	Source        string     `db:"source"`
	LastAttemptAt *time.Time `db:"last_attempt_at"`
	LastSuccessAt *time.Time `db:"last_success_at"`
	LastOutcome   *string    `db:"last_outcome"`
	RecordsSynced int        `db:"records_synced"`
	ErrorMessage  *string    `db:"error_message"`
}

func (r syncRow) toDomain() domain.SyncMetadata {
	m := domain.SyncMetadata{
		ID: r.ID, UserID: r.UserID, Source: domain.SyncSource(r.Source),
		LastAttemptAt: r.LastAttemptAt, LastSuccessAt: r.LastSuccessAt,
		RecordsSynced: r.RecordsSynced, ErrorMessage: r.ErrorMessage,
	}
	if r.LastOutcome != nil {
		o := domain.SyncOutcome(*r.LastOutcome)
		m.LastOutcome = &o
	}
	return m
}

// RecordAttempt upserts the one row for (user, source) with the outcome
// of the most recent attempt — called after every scheduled job and
// every manual ingestion endpoint. last_attempt_at always advances;
// last_success_at only advances when outcome is success, so a run of
// failures never erases the true time since the last successful sync.
func (s *SyncStore) RecordAttempt(ctx context.Context, userID uuid.UUID, source domain.SyncSource, outcome domain.SyncOutcome, recordsSynced int, errMsg *string) (domain.SyncMetadata, error) {
	var r syncRow
	err := s.db.GetContext(ctx, &r, `
		INSERT INTO sync_metadata (user_id, source, last_attempt_at, last_success_at, last_outcome, records_synced, error_message)
		VALUES ($1, $2, now(), CASE WHEN $3 = 'success' THEN now() ELSE NULL END, $3, $4, $5)
		ON CONFLICT (user_id, source) DO UPDATE SET
			last_attempt_at = now(),
			last_success_at = CASE WHEN excluded.last_outcome = 'success' THEN now() ELSE sync_metadata.last_success_at END,
			last_outcome = excluded.last_outcome,
			records_synced = excluded.records_synced,
			error_message = excluded.error_message
		RETURNING id, user_id, source, last_attempt_at, last_success_at, last_outcome, records_synced, error_message
	`, userID, string(source), string(outcome), recordsSynced, errMsg)
	if err != nil {
		return domain.SyncMetadata{}, err
	}
	return r.toDomain(), nil
}

// ListAll returns every SyncMetadata row, across every user and source,
// for the alerting pass to scan for staleness.
func (s *SyncStore) ListAll(ctx context.Context) ([]domain.SyncMetadata, error) {
	var rows []syncRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, source, last_attempt_at, last_success_at, last_outcome, records_synced, error_message FROM sync_metadata
	`)
	if err != nil {
		return nil, err
	}
	out := make([]domain.SyncMetadata, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}
