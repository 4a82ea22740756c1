// Package domain holds the persisted entities and the pure,
// deterministic value types the analysis and ingestion layers operate on.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the root of the ownership graph; every other entity is scoped
// to a user and cascade-deletes with it.
type User struct {
	ID          uuid.UUID
	DisplayName string
	Email       *string
	CreatedAt   time.Time
}

// ChatSession is an ordered, durable container for ChatMessages.
type ChatSession struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	Name           *string
	CreatedAt      time.Time
	LastActivityAt time.Time
}

// ChatRole is one of the three roles a ChatMessage may carry.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
	RoleSystem    ChatRole = "system"
)

// ToolCallRecord is one entry in a ChatMessage's structured tool-call log:
// the tool invoked, the arguments it was given, and a digest of its result
// (never the full result — that would defeat the point of bounding context).
type ToolCallRecord struct {
	ToolName     string `json:"tool_name"`
	Arguments    any    `json:"arguments"`
	ResultDigest string `json:"result_digest"`
}

// ChatMessage is one turn's worth of content. Within a session, messages
// are totally ordered by CreatedAt; the chat persistence service
// guarantees at most one assistant row is written per assistant turn.
type ChatMessage struct {
	ID         uuid.UUID
	SessionID  uuid.UUID
	Role       ChatRole
	Content    string
	TokenCount int
	ToolCalls  []ToolCallRecord
	CreatedAt  time.Time
}

// NutritionDay is keyed by (user, date). Re-ingestion is an upsert: the
// scalars are last-writer-wins, and Raw is replaced wholesale.
type NutritionDay struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Date      time.Time
	Calories  *float64
	ProteinG  *float64
	CarbsG    *float64
	FatsG     *float64
	FiberG    *float64
	Raw       map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HealthMetricRaw is one append-only point in the health-metric hypertable,
// keyed by (user, timestamp, metric type, source).
type HealthMetricRaw struct {
	UserID     uuid.UUID
	Timestamp  time.Time
	MetricType string
	Source     string
	Value      float64
	Unit       string
	Metadata   map[string]any
}

// HealthMetricDaily is the recomputable per-day rollup of HealthMetricRaw,
// keyed by (user, date). Upserts accept later/more-complete values via
// COALESCE semantics (see internal/upsert).
type HealthMetricDaily struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	Date             time.Time
	Steps            *int
	WeightKg         *float64
	SleepHours       *float64
	ActiveCalories   *float64
	RestingHeartRate *int
	Other            map[string]any
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HealthWeeklySummary is fully derived from HealthMetricDaily and may be
// regenerated on demand; keyed by (user, week-start Monday).
type HealthWeeklySummary struct {
	ID                  uuid.UUID
	UserID              uuid.UUID
	WeekStart           time.Time
	AvgSteps            *float64
	AvgWeightKg         *float64
	WeightDeltaKg       *float64
	AvgSleepHours       *float64
	AvgActiveCalories   *float64
	AvgRestingHeartRate *float64
	WorkoutCount        int
	GeneratedAt         time.Time
}

// WorkoutCache is a local, possibly-lagging cache of externally-owned
// tracker data, keyed by (user, external_workout_id).
type WorkoutCache struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	ExternalWorkoutID string
	WorkoutDate       time.Time
	Title             string
	TotalSets         int
	TotalVolumeKg     float64
	MuscleGroups      []MuscleGroup
	Payload           map[string]any
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// GoalKind distinguishes the active-goals records a user may hold
// simultaneously (e.g. one training goal, one nutrition goal).
type GoalKind string

const (
	GoalTraining  GoalKind = "training"
	GoalNutrition GoalKind = "nutrition"
)

// UserGoals is one active record per (user, kind).
type UserGoals struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Kind      GoalKind
	Targets   map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserPreferences is one record per user.
type UserPreferences struct {
	UserID            uuid.UUID
	AllowedEquipment  []string
	DislikedExercises []string
	InjuryNotes       string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// SyncSource identifies which automated pipeline a SyncMetadata row tracks.
type SyncSource string

const (
	SourceNutritionScrape SyncSource = "nutrition-scrape"
	SourceHealthUpload    SyncSource = "health-upload"
	SourceTrackerPull     SyncSource = "tracker-pull"
)

// SyncOutcome is the result of the most recent attempt against a source.
type SyncOutcome string

const (
	OutcomeSuccess SyncOutcome = "success"
	OutcomePartial SyncOutcome = "partial"
	OutcomeFailed  SyncOutcome = "failed"
)

// SyncMetadata is one row per (user, source); it is how the alerting pass
// decides a source has gone stale. LastAttemptAt advances on
// every attempt including failures; LastSuccessAt only advances on a
// successful attempt, so "time since last success" survives a run of
// failures instead of being overwritten by them.
type SyncMetadata struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Source        SyncSource
	LastAttemptAt *time.Time
	LastSuccessAt *time.Time
	LastOutcome   *SyncOutcome
	RecordsSynced int
	ErrorMessage  *string
}
