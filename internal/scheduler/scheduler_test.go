package scheduler

import (
	"testing"
	"time"

	"coachspine/internal/domain"

	"github.com/google/uuid"
)

func TestScheduler_ConcurrencyGuard(t *testing.T) {
	s := &Scheduler{running: make(map[domain.SyncSource]bool)}

	if !s.tryAcquire(domain.SourceNutritionScrape) {
		t.Fatalf("expected first acquire to succeed")
	}
	if s.tryAcquire(domain.SourceNutritionScrape) {
		t.Fatalf("expected re-entrant acquire to be rejected while running")
	}

	s.release(domain.SourceNutritionScrape)
	if !s.tryAcquire(domain.SourceNutritionScrape) {
		t.Fatalf("expected acquire to succeed again after release")
	}
}

func TestScheduler_ConcurrencyGuard_IndependentSources(t *testing.T) {
	s := &Scheduler{running: make(map[domain.SyncSource]bool)}

	if !s.tryAcquire(domain.SourceNutritionScrape) {
		t.Fatalf("expected acquire for nutrition scrape to succeed")
	}
	if !s.tryAcquire(domain.SourceHealthUpload) {
		t.Fatalf("expected acquire for a different source to succeed independently")
	}
}

func reasons(alerts []StalenessAlert) []StalenessReason {
	out := make([]StalenessReason, len(alerts))
	for i, a := range alerts {
		out[i] = a.Reason
	}
	return out
}

func TestEvaluateStaleness_HealthySourceNoAlert(t *testing.T) {
	now := time.Now().UTC()
	success := now.Add(-1 * time.Hour)
	outcome := domain.OutcomeSuccess
	r := domain.SyncMetadata{
		UserID: uuid.New(), Source: domain.SourceNutritionScrape,
		LastAttemptAt: &success, LastSuccessAt: &success, LastOutcome: &outcome,
	}

	if alerts := evaluateStaleness(r, now, 48*time.Hour); len(alerts) != 0 {
		t.Fatalf("expected no alerts, got %v", reasons(alerts))
	}
}

func TestEvaluateStaleness_StaleSuccessAlerts(t *testing.T) {
	now := time.Now().UTC()
	success := now.Add(-72 * time.Hour)
	outcome := domain.OutcomeSuccess
	r := domain.SyncMetadata{
		UserID: uuid.New(), Source: domain.SourceNutritionScrape,
		LastAttemptAt: &success, LastSuccessAt: &success, LastOutcome: &outcome,
	}

	alerts := evaluateStaleness(r, now, 48*time.Hour)
	if len(alerts) != 1 || alerts[0].Reason != ReasonStaleSuccess {
		t.Fatalf("expected a single stale_success alert, got %v", reasons(alerts))
	}
}

func TestEvaluateStaleness_NeverSucceededAlerts(t *testing.T) {
	now := time.Now().UTC()
	attempt := now.Add(-1 * time.Minute)
	outcome := domain.OutcomeFailed
	r := domain.SyncMetadata{
		UserID: uuid.New(), Source: domain.SourceHealthUpload,
		LastAttemptAt: &attempt, LastSuccessAt: nil, LastOutcome: &outcome,
	}

	alerts := evaluateStaleness(r, now, 48*time.Hour)
	if len(alerts) != 2 {
		t.Fatalf("expected both stale_success and last_failed alerts, got %v", reasons(alerts))
	}
}

func TestEvaluateStaleness_RecentFailureAlertsEvenWithFreshSuccess(t *testing.T) {
	// A source that succeeded yesterday and then failed a minute ago is
	// not "stale" by the success-age check, but the failure itself must
	// still surface — this is the gap the review caught: checking only
	// LastAttemptAt-vs-threshold would miss it entirely.
	now := time.Now().UTC()
	success := now.Add(-24 * time.Hour)
	attempt := now.Add(-1 * time.Minute)
	outcome := domain.OutcomeFailed
	errMsg := "provider returned 500"
	r := domain.SyncMetadata{
		UserID: uuid.New(), Source: domain.SourceNutritionScrape,
		LastAttemptAt: &attempt, LastSuccessAt: &success, LastOutcome: &outcome,
		ErrorMessage: &errMsg,
	}

	alerts := evaluateStaleness(r, now, 48*time.Hour)
	if len(alerts) != 1 || alerts[0].Reason != ReasonLastFailed {
		t.Fatalf("expected a single last_failed alert, got %v", reasons(alerts))
	}
	if alerts[0].ErrorMessage == nil || *alerts[0].ErrorMessage != errMsg {
		t.Fatalf("expected the alert to carry the failure's error message")
	}
}
