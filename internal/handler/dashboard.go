package handler

import (
	"log/slog"
	"net/http"

	"github.com/palmmar/prommis/internal/auth"
	"github.com/palmmar/prommis/internal/model"
	"github.com/palmmar/prommis/internal/service"
	"github.com/palmmar/prommis/internal/stats"
)

// DashboardHandler serves the personal dashboard: today's entries plus the
// three chart series.
type DashboardHandler struct {
	steps  *service.StepService
	stats  *service.StatsService
	logger *slog.Logger
}

// NewDashboardHandler creates a DashboardHandler.
func NewDashboardHandler(steps *service.StepService, statsService *service.StatsService, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{steps: steps, stats: statsService, logger: logger}
}

type dashboardResponse struct {
	TodayEntries []model.StepEntry `json:"todayEntries"`
	TodayTotal   int               `json:"todayTotal"`
	Charts       stats.Dashboard   `json:"charts"`
}

// HandleDashboard returns the caller's dashboard.
//
// HTTP: GET /api/dashboard
func (h *DashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	entries, total, err := h.steps.Today(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	charts, err := h.stats.UserDashboard(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		TodayEntries: entries,
		TodayTotal:   total,
		Charts:       charts,
	})
}
