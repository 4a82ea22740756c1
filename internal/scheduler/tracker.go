package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"coachspine/internal/domain"
	"coachspine/internal/ingest"
	"coachspine/internal/logx"
	"coachspine/internal/mcpclient"
	"coachspine/internal/upsert"

	"github.com/google/uuid"
)

// trackerPageSize is how many workouts one list call asks the tracker
// for; the tracker caps pages at 10 regardless, so asking for more just
// wastes a round trip.
const trackerPageSize = 10

// trackerMaxPages bounds one sync pass so a misbehaving tracker that
// keeps reporting more pages can't spin the job forever.
const trackerMaxPages = 100

// TrackerPuller syncs the tracker's workout history into workout_cache:
// fetch pages over the MCP client, run each workout through the
// importer, and push the batch through the upsert service. It is the
// write path behind everything that reads workout_cache — the dashboard
// aggregations and the workout shaper only ever see what this pull (or
// a manual seed) put there.
type TrackerPuller struct {
	mcp     *mcpclient.Client
	upserts *upsert.Service

	// templates caches the tracker's exercise-template snapshot, a small
	// read-only reference list; InvalidateTemplates drops it so the next
	// sync refetches.
	mu        sync.Mutex
	templates ingest.ExerciseTemplateIndex
}

func NewTrackerPuller(mcp *mcpclient.Client, upserts *upsert.Service) *TrackerPuller {
	return &TrackerPuller{mcp: mcp, upserts: upserts}
}

// trackerWorkoutPage is the envelope the tracker's paginated workout
// list returns inside its first text content block.
type trackerWorkoutPage struct {
	Workouts  []ingest.TrackerWorkout `json:"workouts"`
	Page      int                     `json:"page"`
	PageCount int                     `json:"page_count"`
}

// trackerTemplatePage is the envelope of the paginated exercise-template
// listing.
type trackerTemplatePage struct {
	Templates []struct {
		ID                 string `json:"id"`
		PrimaryMuscleGroup string `json:"primary_muscle_group"`
	} `json:"exercise_templates"`
	Page      int `json:"page"`
	PageCount int `json:"page_count"`
}

// SyncUser pulls every workout page for one user and upserts the
// imported rows, returning the outcome to record in SyncMetadata. A
// workout that fails to import (unparsable start time) is skipped and
// downgrades the outcome to partial rather than aborting the pull.
func (p *TrackerPuller) SyncUser(ctx context.Context, userID uuid.UUID) (domain.SyncOutcome, int, error) {
	templates, err := p.exerciseTemplates(ctx)
	if err != nil {
		return domain.OutcomeFailed, 0, fmt.Errorf("loading exercise templates: %w", err)
	}

	var caches []domain.WorkoutCache
	skipped := 0
	for page := 1; page <= trackerMaxPages; page++ {
		res, err := p.mcp.CallTool(ctx, "get_workouts", map[string]any{
			"page": page, "pageSize": trackerPageSize,
		})
		if err != nil {
			return domain.OutcomeFailed, 0, fmt.Errorf("fetching workout page %d: %w", page, err)
		}

		var envelope trackerWorkoutPage
		if err := json.Unmarshal([]byte(res.Raw), &envelope); err != nil {
			return domain.OutcomeFailed, 0, fmt.Errorf("decoding workout page %d: %w", page, err)
		}

		for _, w := range envelope.Workouts {
			cache, err := ingest.ImportWorkout(w, templates)
			if err != nil {
				logx.Warnf("tracker pull: skipping workout %s: %v", w.ID, err)
				skipped++
				continue
			}
			caches = append(caches, cache)
		}

		if len(envelope.Workouts) == 0 || page >= envelope.PageCount {
			break
		}
	}

	result, err := p.upserts.Workouts(ctx, userID, caches)
	if err != nil {
		return domain.OutcomeFailed, 0, fmt.Errorf("upserting workouts: %w", err)
	}

	synced := result.NewRecords + result.Updated
	if skipped > 0 {
		return domain.OutcomePartial, synced, nil
	}
	return domain.OutcomeSuccess, synced, nil
}

// exerciseTemplates returns the cached template index, fetching and
// building it on first use.
func (p *TrackerPuller) exerciseTemplates(ctx context.Context) (ingest.ExerciseTemplateIndex, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.templates != nil {
		return p.templates, nil
	}

	index := ingest.ExerciseTemplateIndex{}
	for page := 1; page <= trackerMaxPages; page++ {
		res, err := p.mcp.CallTool(ctx, "get_exercise_templates", map[string]any{
			"page": page, "pageSize": 100,
		})
		if err != nil {
			return nil, err
		}

		var envelope trackerTemplatePage
		if err := json.Unmarshal([]byte(res.Raw), &envelope); err != nil {
			return nil, fmt.Errorf("decoding template page %d: %w", page, err)
		}

		for _, t := range envelope.Templates {
			muscle, ok := domain.ParseMuscleGroup(t.PrimaryMuscleGroup)
			if !ok {
				continue
			}
			index[t.ID] = muscle
		}

		if len(envelope.Templates) == 0 || page >= envelope.PageCount {
			break
		}
	}

	p.templates = index
	return index, nil
}

// InvalidateTemplates drops the cached exercise-template snapshot so the
// next sync refetches it — invalidation is manual by design.
func (p *TrackerPuller) InvalidateTemplates() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.templates = nil
}
