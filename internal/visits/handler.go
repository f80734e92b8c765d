package visits

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/medvisit-platform/internal/directory"
	"github.com/wolfman30/medvisit-platform/internal/observability/metrics"
	"github.com/wolfman30/medvisit-platform/internal/tenancy"
	"github.com/wolfman30/medvisit-platform/pkg/logging"
)

// Handler handles HTTP requests for visit tracking.
type Handler struct {
	service *Service
	metrics *metrics.ScheduleMetrics
	logger  *logging.Logger
}

// NewHandler creates a new visits handler. Metrics may be nil.
func NewHandler(service *Service, m *metrics.ScheduleMetrics, logger *logging.Logger) *Handler {
	return &Handler{
		service: service,
		metrics: m,
		logger:  logger,
	}
}

// MarkVisitedToday handles POST /orgs/{orgID}/doctors/{doctorID}/visited-today
// requests.
func (h *Handler) MarkVisitedToday(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return
	}
	doctorID := chi.URLParam(r, "doctorID")

	doctor, err := h.service.MarkVisitedToday(r.Context(), orgID, doctorID)
	if err != nil {
		h.metrics.ObserveVisit("error")
		if errors.Is(err, directory.ErrDoctorNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.logger.Error("failed to mark visit", "error", err, "doctor_id", doctorID, "org_id", orgID)
		http.Error(w, "failed to mark visit", http.StatusInternalServerError)
		return
	}

	h.metrics.ObserveVisit("ok")
	h.logger.Info("visit recorded", "doctor_id", doctorID, "org_id", orgID, "visit_date", doctor.LastVisit)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(doctor)
}

// History handles GET /orgs/{orgID}/doctors/{doctorID}/visits requests.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return
	}
	doctorID := chi.URLParam(r, "doctorID")

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil {
			limit = parsed
		}
	}

	events, err := h.service.History(r.Context(), orgID, doctorID, limit)
	if err != nil {
		if errors.Is(err, directory.ErrDoctorNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load visit history", "error", err, "doctor_id", doctorID, "org_id", orgID)
		http.Error(w, "failed to load visit history", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"events": events,
		"count":  len(events),
	})
}
