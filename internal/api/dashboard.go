package api

import (
	"net/http"
	"strconv"

	"coachspine/internal/apperr"
	"coachspine/internal/scheduler"
)

const defaultWorkoutHistoryLimit = 20

// handleWorkoutHistory implements GET /workout-history: recent
// WorkoutCache rows, limited, no agent involvement.
func (s *Server) handleWorkoutHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := s.resolveUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	limit := defaultWorkoutHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, convErr := strconv.Atoi(raw)
		if convErr != nil || n <= 0 {
			writeError(w, apperr.Parse("limit must be a positive integer"))
			return
		}
		limit = n
	}

	workouts, err := s.ctx.Store.Workouts.ListRecent(r.Context(), userID, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, workouts)
}

// dashboardStats bundles every dashboard aggregation into one payload for
// the UI's single GET /dashboard/stats call.
type dashboardStats struct {
	WeeklyScore      any `json:"weekly_training_score"`
	MuscleGroupSplit any `json:"muscle_group_distribution"`
	TrainingHeatmap  any `json:"training_heatmap"`
}

// handleDashboardStats implements GET /dashboard/stats:
// three independent bounded queries, run directly against the pool and
// never routed through the agent.
func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	userID, err := s.resolveUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	score, err := s.ctx.Dashboard.WeeklyScore(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	split, err := s.ctx.Dashboard.MuscleGroupDistribution(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	heatmap, err := s.ctx.Dashboard.TrainingHeatmap(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dashboardStats{
		WeeklyScore:      score,
		MuscleGroupSplit: split,
		TrainingHeatmap:  heatmap,
	})
}

// handleSyncAlerts implements GET /sync/alerts: the on-demand half of
// the scheduler's alerting pass, letting a caller trigger the same staleness
// check the hourly scheduler job runs without waiting for the timer.
func (s *Server) handleSyncAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := s.ctx.Scheduler.CheckStaleness(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if alerts == nil {
		alerts = []scheduler.StalenessAlert{}
	}
	writeJSON(w, http.StatusOK, alerts)
}
