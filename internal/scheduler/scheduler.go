// Package scheduler runs periodic nutrition-scrape and tracker-pull jobs
// driven by gocron, recording SyncMetadata outcomes and raising a
// staleness alert when a source hasn't synced within its configured
// threshold. Registration follows ClusterCockpit-cc-backend's
// taskmanager shape: one gocron.Scheduler, one NewJob call per concern,
// started once at boot.
package scheduler

import (
	"context"
	"sync"
	"time"

	"coachspine/internal/domain"
	"coachspine/internal/logx"
	"coachspine/internal/store"
	"coachspine/internal/telemetry"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var alertCounter = func() metric.Int64Counter {
	c, _ := telemetry.Meter().Int64Counter("scheduler.staleness_alert_count")
	return c
}()

// Scheduler owns the gocron handle plus the in-flight guard that drops
// a re-entrant trigger instead of running two scrapes for the same
// source concurrently.
type Scheduler struct {
	gocron  gocron.Scheduler
	store   *store.Store
	scraper *Scraper
	puller  *TrackerPuller

	staleness time.Duration

	mu      sync.Mutex
	running map[domain.SyncSource]bool
}

// Config bundles the scheduler's tunables, all sourced from internal/config.
type Config struct {
	CronExpr            string
	JobTimeout          time.Duration
	StalenessThreshold  time.Duration
	TrackerPullInterval time.Duration
}

// New builds the scheduler and registers its jobs. puller may be nil
// when no tracker MCP command is configured; the pull job is simply not
// registered then.
func New(st *store.Store, scraper *Scraper, puller *TrackerPuller, cfg Config) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	sched := &Scheduler{
		gocron:    s,
		store:     st,
		scraper:   scraper,
		puller:    puller,
		staleness: cfg.StalenessThreshold,
		running:   make(map[domain.SyncSource]bool),
	}

	if _, err := s.NewJob(
		gocron.CronJob(cfg.CronExpr, false),
		gocron.NewTask(func() { sched.runNutritionScrape(cfg.JobTimeout) }),
	); err != nil {
		return nil, err
	}

	if puller != nil {
		if _, err := s.NewJob(
			gocron.DurationJob(cfg.TrackerPullInterval),
			gocron.NewTask(func() { sched.runTrackerPull(cfg.JobTimeout) }),
		); err != nil {
			return nil, err
		}
	}

	if _, err := s.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(func() { sched.logStaleness() }),
	); err != nil {
		return nil, err
	}

	return sched, nil
}

// Start begins running registered jobs; Shutdown stops them.
func (s *Scheduler) Start() { s.gocron.Start() }

func (s *Scheduler) Shutdown() error { return s.gocron.Shutdown() }

// runNutritionScrape triggers one scrape-and-upsert pass for every
// registered user, guarded so a slow-running previous
// trigger causes this one to be dropped with a warning rather than
// queued.
func (s *Scheduler) runNutritionScrape(timeout time.Duration) {
	if !s.tryAcquire(domain.SourceNutritionScrape) {
		logx.Warn("nutrition scrape already running, dropping this trigger")
		return
	}
	defer s.release(domain.SourceNutritionScrape)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ctx, span := telemetry.Tracer().Start(ctx, "scheduler.nutrition_scrape")
	defer span.End()

	users, err := s.store.Users.ListAll(ctx)
	if err != nil {
		logx.Errorf("scheduler: listing users for nutrition scrape: %v", err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetAttributes(attribute.Int("scheduler.user_count", len(users)))

	for _, u := range users {
		outcome, recordsSynced, scrapeErr := s.scraper.SyncUser(ctx, u.ID)
		var errMsg *string
		if scrapeErr != nil {
			msg := scrapeErr.Error()
			errMsg = &msg
			logx.Errorf("scheduler: nutrition scrape failed for user %s: %v", u.ID, scrapeErr)
		}
		if _, err := s.store.Sync.RecordAttempt(ctx, u.ID, domain.SourceNutritionScrape, outcome, recordsSynced, errMsg); err != nil {
			logx.Errorf("scheduler: recording sync outcome for user %s: %v", u.ID, err)
		}
	}

	// The alerting pass runs after every scheduled job, not only on the
	// hourly timer, so a failure surfaces immediately rather than up to
	// an hour later.
	s.logStaleness()
}

// runTrackerPull syncs every user's tracker workouts into workout_cache,
// guarded per source exactly like the nutrition scrape: a trigger that
// fires while the previous pull is still running is dropped.
func (s *Scheduler) runTrackerPull(timeout time.Duration) {
	if !s.tryAcquire(domain.SourceTrackerPull) {
		logx.Warn("tracker pull already running, dropping this trigger")
		return
	}
	defer s.release(domain.SourceTrackerPull)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ctx, span := telemetry.Tracer().Start(ctx, "scheduler.tracker_pull")
	defer span.End()

	users, err := s.store.Users.ListAll(ctx)
	if err != nil {
		logx.Errorf("scheduler: listing users for tracker pull: %v", err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetAttributes(attribute.Int("scheduler.user_count", len(users)))

	for _, u := range users {
		outcome, recordsSynced, pullErr := s.puller.SyncUser(ctx, u.ID)
		var errMsg *string
		if pullErr != nil {
			msg := pullErr.Error()
			errMsg = &msg
			logx.Errorf("scheduler: tracker pull failed for user %s: %v", u.ID, pullErr)
		}
		if _, err := s.store.Sync.RecordAttempt(ctx, u.ID, domain.SourceTrackerPull, outcome, recordsSynced, errMsg); err != nil {
			logx.Errorf("scheduler: recording sync outcome for user %s: %v", u.ID, err)
		}
	}

	s.logStaleness()
}

// StalenessReason identifies which half of the alert condition a
// StalenessAlert is reporting — a source can trip both, but each is
// reported as its own alert so a consumer never has to re-derive which
// branch fired.
type StalenessReason string

const (
	ReasonStaleSuccess StalenessReason = "stale_success"
	ReasonLastFailed   StalenessReason = "last_failed"
)

// StalenessAlert is the structured alert payload: one source,
// one reason, enough context for a consumer (log line, dashboard,
// on-call webhook) to act without re-querying SyncMetadata.
type StalenessAlert struct {
	UserID        uuid.UUID         `json:"user_id"`
	Source        domain.SyncSource `json:"source"`
	Reason        StalenessReason   `json:"reason"`
	LastAttemptAt *time.Time        `json:"last_attempt_at,omitempty"`
	LastSuccessAt *time.Time        `json:"last_success_at,omitempty"`
	ErrorMessage  *string           `json:"error_message,omitempty"`
}

// CheckStaleness scans SyncMetadata and returns one StalenessAlert per
// source that has either gone quiet (no success within the configured
// threshold, or never synced at all) or whose most recent attempt
// outright failed. The two conditions are checked
// independently so a source that just failed is flagged even if its
// last *attempt* was seconds ago. Callable both from the scheduled job
// and on demand (e.g. a dashboard endpoint).
func (s *Scheduler) CheckStaleness(ctx context.Context) ([]StalenessAlert, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "scheduler.check_staleness")
	defer span.End()

	records, err := s.store.Sync.ListAll(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	now := time.Now().UTC()
	var alerts []StalenessAlert
	for _, r := range records {
		alerts = append(alerts, evaluateStaleness(r, now, s.staleness)...)
	}

	span.SetAttributes(attribute.Int("scheduler.alert_count", len(alerts)))
	if alertCounter != nil {
		for _, a := range alerts {
			alertCounter.Add(ctx, 1, metric.WithAttributes(
				attribute.String("sync.source", string(a.Source)),
				attribute.String("sync.reason", string(a.Reason)),
			))
		}
	}
	return alerts, nil
}

// evaluateStaleness is CheckStaleness's pure decision logic, split out
// so it's testable without a database: a source alerts for
// ReasonStaleSuccess when it has never succeeded or its last success
// predates the threshold, and independently for ReasonLastFailed when
// its most recent attempt failed outright — a row can produce both.
func evaluateStaleness(r domain.SyncMetadata, now time.Time, threshold time.Duration) []StalenessAlert {
	var alerts []StalenessAlert
	if r.LastSuccessAt == nil || now.Sub(*r.LastSuccessAt) > threshold {
		alerts = append(alerts, StalenessAlert{
			UserID: r.UserID, Source: r.Source, Reason: ReasonStaleSuccess,
			LastAttemptAt: r.LastAttemptAt, LastSuccessAt: r.LastSuccessAt,
		})
	}
	if r.LastOutcome != nil && *r.LastOutcome == domain.OutcomeFailed {
		alerts = append(alerts, StalenessAlert{
			UserID: r.UserID, Source: r.Source, Reason: ReasonLastFailed,
			LastAttemptAt: r.LastAttemptAt, LastSuccessAt: r.LastSuccessAt,
			ErrorMessage: r.ErrorMessage,
		})
	}
	return alerts
}

// logStaleness is the gocron task body: run the check and log every
// alert it surfaces. The on-demand path (CheckStaleness) is exposed
// separately so an API handler can call it without going through logx.
func (s *Scheduler) logStaleness() {
	alerts, err := s.CheckStaleness(context.Background())
	if err != nil {
		logx.Errorf("scheduler: staleness check: %v", err)
		return
	}
	for _, a := range alerts {
		logx.Warnf("sync alert: source=%s user=%s reason=%s last_success=%v last_attempt=%v",
			a.Source, a.UserID, a.Reason, a.LastSuccessAt, a.LastAttemptAt)
	}
}

func (s *Scheduler) tryAcquire(source domain.SyncSource) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[source] {
		return false
	}
	s.running[source] = true
	return true
}

func (s *Scheduler) release(source domain.SyncSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, source)
}
