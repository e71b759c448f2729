package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/attendly/attendly/internal/attendance"
	"github.com/attendly/attendly/internal/config"
)

// DashboardHandler serves aggregate statistics for the dashboard
type DashboardHandler struct {
	config *config.Config
	ledger *attendance.Ledger
	now    func() time.Time
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(cfg *config.Config, ledger *attendance.Ledger) *DashboardHandler {
	return &DashboardHandler{config: cfg, ledger: ledger, now: time.Now}
}

// Stats handles GET /api/v1/dashboard/stats
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.ledger.Stats(r.Context(), h.now())
	if err != nil {
		log.Printf("Failed to compute dashboard stats: %v", err)
		respondError(w, http.StatusServiceUnavailable, ErrCodeStorageUnavailable, "storage unavailable")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}
