// Package handlers holds the HTTP handlers built on the schedule engine.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/medvisit-platform/internal/observability/metrics"
	"github.com/wolfman30/medvisit-platform/internal/schedule"
	"github.com/wolfman30/medvisit-platform/internal/snapshot"
	"github.com/wolfman30/medvisit-platform/internal/tenancy"
	"github.com/wolfman30/medvisit-platform/pkg/logging"
)

var tracer trace.Tracer = otel.Tracer("medvisit-platform/handlers")

// ReportDefaults carries the configured fallbacks for report queries.
type ReportDefaults struct {
	Thresholds         schedule.Thresholds
	UpcomingWindowDays int
}

// ReportHandler serves the grouped, filtered, sorted visit report.
type ReportHandler struct {
	cache    *snapshot.Cache
	metrics  *metrics.ScheduleMetrics
	defaults ReportDefaults
	logger   *logging.Logger
	now      func() time.Time
}

// NewReportHandler creates a report handler.
func NewReportHandler(cache *snapshot.Cache, m *metrics.ScheduleMetrics, defaults ReportDefaults, logger *logging.Logger) *ReportHandler {
	if defaults.Thresholds == (schedule.Thresholds{}) {
		defaults.Thresholds = schedule.DefaultThresholds()
	}
	if defaults.UpcomingWindowDays <= 0 {
		defaults.UpcomingWindowDays = schedule.DefaultUpcomingWindowDays
	}
	return &ReportHandler{
		cache:    cache,
		metrics:  m,
		defaults: defaults,
		logger:   logger,
		now:      time.Now,
	}
}

// ReportResponse is the payload for GET /orgs/{orgID}/report.
type ReportResponse struct {
	Groups     []schedule.Group    `json:"groups"`
	Thresholds schedule.Thresholds `json:"thresholds"`
}

// Get handles GET /orgs/{orgID}/report requests.
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "report.build")
	defer span.End()

	orgID, ok := tenancy.OrgIDFromContext(ctx)
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("org.id", orgID))

	criteria, key, dir := h.parseQuery(r)

	start := h.now()
	snap, err := h.cache.Load(ctx, orgID)
	if err != nil {
		h.logger.Error("failed to load snapshot", "error", err, "org_id", orgID)
		h.metrics.ObserveReport("report", "error")
		http.Error(w, "failed to build report", http.StatusInternalServerError)
		return
	}

	groups := schedule.BuildReport(snap.Doctors, snap.Structures, criteria, key, dir)

	h.metrics.ObserveReport("report", "ok")
	h.metrics.ObserveBuildLatency("report", time.Since(start).Seconds())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ReportResponse{
		Groups:     groups,
		Thresholds: criteria.Thresholds,
	})
}

func (h *ReportHandler) parseQuery(r *http.Request) (schedule.Criteria, schedule.SortKey, schedule.SortDirection) {
	q := r.URL.Query()

	criteria := schedule.Criteria{
		Search:     q.Get("q"),
		Day:        strings.ToLower(strings.TrimSpace(q.Get("day"))),
		Thresholds: h.thresholdsFromQuery(q.Get("warning"), q.Get("critical")),
		Today:      h.now(),
	}

	if raw := q.Get("structures"); raw != "" {
		ids := []string{}
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		criteria.StructureIDs = ids
	}

	if raw := q.Get("upcoming"); raw != "" {
		if days, err := strconv.Atoi(raw); err == nil && days > 0 {
			criteria.UpcomingWithinDays = days
		} else if parsed, err := strconv.ParseBool(raw); err == nil && parsed {
			criteria.UpcomingWithinDays = h.defaults.UpcomingWindowDays
		}
	}

	switch q.Get("alert") {
	case "warning":
		criteria.MinAlert = schedule.AlertWarning
	case "critical":
		criteria.MinAlert = schedule.AlertCritical
	}

	key := schedule.SortByLastName
	switch schedule.SortKey(q.Get("sort")) {
	case schedule.SortByFirstName:
		key = schedule.SortByFirstName
	case schedule.SortByLastVisit:
		key = schedule.SortByLastVisit
	case schedule.SortByAppointment:
		key = schedule.SortByAppointment
	}

	dir := schedule.SortAsc
	if q.Get("dir") == string(schedule.SortDesc) {
		dir = schedule.SortDesc
	}
	return criteria, key, dir
}

// thresholdsFromQuery overlays per-request thresholds on the configured
// defaults. An inverted pair is clamped so critical never undercuts warning.
func (h *ReportHandler) thresholdsFromQuery(warning, critical string) schedule.Thresholds {
	th := h.defaults.Thresholds
	if warning != "" {
		if days, err := strconv.Atoi(warning); err == nil && days > 0 {
			th.WarningDays = days
		}
	}
	if critical != "" {
		if days, err := strconv.Atoi(critical); err == nil && days > 0 {
			th.CriticalDays = days
		}
	}
	if th.CriticalDays < th.WarningDays {
		th.CriticalDays = th.WarningDays
	}
	return th
}
