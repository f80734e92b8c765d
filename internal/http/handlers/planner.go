package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/medvisit-platform/internal/observability/metrics"
	"github.com/wolfman30/medvisit-platform/internal/schedule"
	"github.com/wolfman30/medvisit-platform/internal/snapshot"
	"github.com/wolfman30/medvisit-platform/internal/tenancy"
	"github.com/wolfman30/medvisit-platform/pkg/logging"
)

// PlannerHandler serves the per-day visit optimization report.
type PlannerHandler struct {
	cache   *snapshot.Cache
	metrics *metrics.ScheduleMetrics
	logger  *logging.Logger
	now     func() time.Time
}

// NewPlannerHandler creates a planner handler.
func NewPlannerHandler(cache *snapshot.Cache, m *metrics.ScheduleMetrics, logger *logging.Logger) *PlannerHandler {
	return &PlannerHandler{
		cache:   cache,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Get handles GET /orgs/{orgID}/planner requests. The date param defaults to
// today; a malformed date is a client error.
func (h *PlannerHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "planner.build")
	defer span.End()

	orgID, ok := tenancy.OrgIDFromContext(ctx)
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("org.id", orgID))

	target := h.now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse(schedule.DayFormat, raw)
		if err != nil {
			http.Error(w, "invalid date, want 2006-01-02", http.StatusBadRequest)
			return
		}
		target = parsed
	}
	span.SetAttributes(attribute.String("planner.date", target.Format(schedule.DayFormat)))

	start := h.now()
	snap, err := h.cache.Load(ctx, orgID)
	if err != nil {
		h.logger.Error("failed to load snapshot", "error", err, "org_id", orgID)
		h.metrics.ObserveReport("planner", "error")
		http.Error(w, "failed to build planner", http.StatusInternalServerError)
		return
	}

	report := schedule.Optimize(snap.Doctors, snap.Structures, target)

	h.metrics.ObserveReport("planner", "ok")
	h.metrics.ObserveBuildLatency("planner", time.Since(start).Seconds())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}
