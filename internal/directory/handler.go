package directory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/medvisit-platform/internal/observability/metrics"
	"github.com/wolfman30/medvisit-platform/internal/tenancy"
	"github.com/wolfman30/medvisit-platform/pkg/logging"
)

// SnapshotInvalidator drops any cached copy of an org's dataset. Called after
// every successful write so cached reads never outlive a mutation by more
// than one request.
type SnapshotInvalidator interface {
	Invalidate(ctx context.Context, orgID string)
}

// Handler handles HTTP requests for doctors and structures.
type Handler struct {
	repo      Repository
	snapshots SnapshotInvalidator
	metrics   *metrics.ScheduleMetrics
	logger    *logging.Logger
}

// NewHandler creates a new directory handler. snapshots and metrics may be
// nil when no cache or registry sits in front of the repository.
func NewHandler(repo Repository, snapshots SnapshotInvalidator, m *metrics.ScheduleMetrics, logger *logging.Logger) *Handler {
	return &Handler{
		repo:      repo,
		snapshots: snapshots,
		metrics:   m,
		logger:    logger,
	}
}

func (h *Handler) invalidateSnapshot(ctx context.Context, orgID string) {
	if h.snapshots != nil {
		h.snapshots.Invalidate(ctx, orgID)
	}
}

// ListDoctors handles GET /orgs/{orgID}/doctors requests.
func (h *Handler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgFromRequest(w, r)
	if !ok {
		return
	}

	doctors, err := h.repo.ListDoctors(r.Context(), orgID)
	if err != nil {
		h.logger.Error("failed to list doctors", "error", err, "org_id", orgID)
		http.Error(w, "failed to list doctors", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"doctors": doctors,
		"count":   len(doctors),
	})
}

// GetDoctor handles GET /orgs/{orgID}/doctors/{doctorID} requests.
func (h *Handler) GetDoctor(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgFromRequest(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "doctorID")

	doctor, err := h.repo.GetDoctor(r.Context(), orgID, id)
	if err != nil {
		h.respondRepoError(w, err, "failed to get doctor", orgID)
		return
	}
	writeJSON(w, http.StatusOK, doctor)
}

// CreateDoctor handles POST /orgs/{orgID}/doctors requests.
func (h *Handler) CreateDoctor(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgFromRequest(w, r)
	if !ok {
		return
	}

	var doctor Doctor
	if err := json.NewDecoder(r.Body).Decode(&doctor); err != nil {
		h.logger.Error("failed to decode doctor", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	created, err := h.repo.CreateDoctor(r.Context(), orgID, &doctor)
	if err != nil {
		h.respondRepoError(w, err, "failed to create doctor", orgID)
		return
	}

	h.invalidateSnapshot(r.Context(), orgID)
	h.logger.Info("doctor created", "id", created.ID, "org_id", orgID)
	writeJSON(w, http.StatusCreated, created)
}

// UpdateDoctor handles PUT /orgs/{orgID}/doctors/{doctorID} requests.
func (h *Handler) UpdateDoctor(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgFromRequest(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "doctorID")

	var doctor Doctor
	if err := json.NewDecoder(r.Body).Decode(&doctor); err != nil {
		h.logger.Error("failed to decode doctor", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	doctor.ID = id

	if err := h.repo.UpdateDoctor(r.Context(), orgID, &doctor); err != nil {
		h.respondRepoError(w, err, "failed to update doctor", orgID)
		return
	}
	h.invalidateSnapshot(r.Context(), orgID)

	updated, err := h.repo.GetDoctor(r.Context(), orgID, id)
	if err != nil {
		h.respondRepoError(w, err, "failed to reload doctor", orgID)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// PatchDoctor handles PATCH /orgs/{orgID}/doctors/{doctorID} requests with a
// merge-style partial update.
func (h *Handler) PatchDoctor(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgFromRequest(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "doctorID")

	var req struct {
		LastVisit       *string `json:"lastVisit"`
		AppointmentDate *string `json:"appointmentDate"`
		Notes           *string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	patch := DoctorPatch{
		LastVisit:       req.LastVisit,
		AppointmentDate: req.AppointmentDate,
		Notes:           req.Notes,
	}
	if err := h.repo.UpdateDoctorFields(r.Context(), orgID, id, patch); err != nil {
		h.respondRepoError(w, err, "failed to patch doctor", orgID)
		return
	}
	h.invalidateSnapshot(r.Context(), orgID)

	updated, err := h.repo.GetDoctor(r.Context(), orgID, id)
	if err != nil {
		h.respondRepoError(w, err, "failed to reload doctor", orgID)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteDoctor handles DELETE /orgs/{orgID}/doctors/{doctorID} requests.
func (h *Handler) DeleteDoctor(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgFromRequest(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "doctorID")

	if err := h.repo.DeleteDoctor(r.Context(), orgID, id); err != nil {
		h.respondRepoError(w, err, "failed to delete doctor", orgID)
		return
	}
	h.invalidateSnapshot(r.Context(), orgID)
	w.WriteHeader(http.StatusNoContent)
}

// ListStructures handles GET /orgs/{orgID}/structures requests.
func (h *Handler) ListStructures(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgFromRequest(w, r)
	if !ok {
		return
	}

	structures, err := h.repo.ListStructures(r.Context(), orgID)
	if err != nil {
		h.logger.Error("failed to list structures", "error", err, "org_id", orgID)
		http.Error(w, "failed to list structures", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"structures": structures,
		"count":      len(structures),
	})
}

// CreateStructure handles POST /orgs/{orgID}/structures requests.
func (h *Handler) CreateStructure(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgFromRequest(w, r)
	if !ok {
		return
	}

	var structure Structure
	if err := json.NewDecoder(r.Body).Decode(&structure); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	created, err := h.repo.CreateStructure(r.Context(), orgID, &structure)
	if err != nil {
		h.respondRepoError(w, err, "failed to create structure", orgID)
		return
	}

	h.invalidateSnapshot(r.Context(), orgID)
	h.logger.Info("structure created", "id", created.ID, "name", created.Name, "org_id", orgID)
	writeJSON(w, http.StatusCreated, created)
}

// UpdateStructure handles PUT /orgs/{orgID}/structures/{structureID} requests.
func (h *Handler) UpdateStructure(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgFromRequest(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "structureID")

	var structure Structure
	if err := json.NewDecoder(r.Body).Decode(&structure); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	structure.ID = id

	if err := h.repo.UpdateStructure(r.Context(), orgID, &structure); err != nil {
		h.respondRepoError(w, err, "failed to update structure", orgID)
		return
	}
	h.invalidateSnapshot(r.Context(), orgID)
	writeJSON(w, http.StatusOK, structure)
}

// DeleteStructure handles DELETE /orgs/{orgID}/structures/{structureID}
// requests. Deleting a structure also detaches it from every doctor.
func (h *Handler) DeleteStructure(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgFromRequest(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "structureID")

	if err := h.repo.DeleteStructure(r.Context(), orgID, id); err != nil {
		h.respondRepoError(w, err, "failed to delete structure", orgID)
		return
	}
	h.invalidateSnapshot(r.Context(), orgID)
	w.WriteHeader(http.StatusNoContent)
}

// ExportArchive handles GET /orgs/{orgID}/export requests, returning the full
// org dataset as a backup payload.
func (h *Handler) ExportArchive(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgFromRequest(w, r)
	if !ok {
		return
	}

	doctors, err := h.repo.ListDoctors(r.Context(), orgID)
	if err != nil {
		h.logger.Error("failed to export doctors", "error", err, "org_id", orgID)
		http.Error(w, "failed to export", http.StatusInternalServerError)
		return
	}
	structures, err := h.repo.ListStructures(r.Context(), orgID)
	if err != nil {
		h.logger.Error("failed to export structures", "error", err, "org_id", orgID)
		http.Error(w, "failed to export", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="medvisit-backup.json"`)
	writeJSON(w, http.StatusOK, Archive{Doctors: doctors, Structures: structures})
}

// ImportArchive handles POST /orgs/{orgID}/import requests, replacing the org
// dataset with the uploaded backup.
func (h *Handler) ImportArchive(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgFromRequest(w, r)
	if !ok {
		return
	}

	var archive Archive
	if err := json.NewDecoder(r.Body).Decode(&archive); err != nil {
		h.metrics.ObserveImport("error")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.repo.ReplaceAll(r.Context(), orgID, &archive); err != nil {
		h.metrics.ObserveImport("error")
		h.respondRepoError(w, err, "failed to import archive", orgID)
		return
	}
	h.metrics.ObserveImport("ok")
	h.invalidateSnapshot(r.Context(), orgID)

	h.logger.Info("archive imported", "org_id", orgID,
		"doctors", len(archive.Doctors), "structures", len(archive.Structures))
	writeJSON(w, http.StatusOK, map[string]any{
		"doctors":    len(archive.Doctors),
		"structures": len(archive.Structures),
	})
}

func (h *Handler) respondRepoError(w http.ResponseWriter, err error, msg, orgID string) {
	switch {
	case errors.Is(err, ErrDoctorNotFound), errors.Is(err, ErrStructureNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrMissingName), errors.Is(err, ErrMissingStructureName):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error(msg, "error", err, "org_id", orgID)
		http.Error(w, msg, http.StatusInternalServerError)
	}
}

func orgFromRequest(w http.ResponseWriter, r *http.Request) (string, bool) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return "", false
	}
	return orgID, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
