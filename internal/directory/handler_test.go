package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/medvisit-platform/internal/observability/metrics"
	"github.com/wolfman30/medvisit-platform/internal/tenancy"
	"github.com/wolfman30/medvisit-platform/pkg/logging"
)

func newTestRequest(method, target string, body []byte, params map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	ctx := tenancy.WithOrgID(req.Context(), testOrg)
	routeCtx := chi.NewRouteContext()
	for key, value := range params {
		routeCtx.URLParams.Add(key, value)
	}
	ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
	return req.WithContext(ctx)
}

func TestCreateDoctorHandler(t *testing.T) {
	repo := NewInMemoryRepository()
	handler := NewHandler(repo, nil, nil, logging.Default())

	body, _ := json.Marshal(Doctor{FirstName: "Anna", LastName: "Rossi"})
	req := newTestRequest(http.MethodPost, "/orgs/org-1/doctors", body, nil)
	w := httptest.NewRecorder()

	handler.CreateDoctor(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}

	var created Doctor
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if created.ID == "" {
		t.Errorf("expected generated id")
	}
	if created.FirstName != "Anna" {
		t.Errorf("expected first name Anna, got %s", created.FirstName)
	}
	if created.Availability == nil {
		t.Errorf("expected normalized availability map")
	}
}

func TestCreateDoctorHandler_Invalid(t *testing.T) {
	repo := NewInMemoryRepository()
	handler := NewHandler(repo, nil, nil, logging.Default())

	body, _ := json.Marshal(Doctor{FirstName: "Anna"})
	req := newTestRequest(http.MethodPost, "/orgs/org-1/doctors", body, nil)
	w := httptest.NewRecorder()

	handler.CreateDoctor(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestCreateDoctorHandler_InvalidJSON(t *testing.T) {
	repo := NewInMemoryRepository()
	handler := NewHandler(repo, nil, nil, logging.Default())

	req := newTestRequest(http.MethodPost, "/orgs/org-1/doctors", []byte("{"), nil)
	w := httptest.NewRecorder()

	handler.CreateDoctor(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestCreateDoctorHandler_MissingOrgContext(t *testing.T) {
	repo := NewInMemoryRepository()
	handler := NewHandler(repo, nil, nil, logging.Default())

	body, _ := json.Marshal(Doctor{FirstName: "Anna", LastName: "Rossi"})
	req := httptest.NewRequest(http.MethodPost, "/orgs/org-1/doctors", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.CreateDoctor(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	if !strings.Contains(w.Body.String(), "missing org context") {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestGetDoctorHandler_NotFound(t *testing.T) {
	repo := NewInMemoryRepository()
	handler := NewHandler(repo, nil, nil, logging.Default())

	req := newTestRequest(http.MethodGet, "/orgs/org-1/doctors/missing", nil, map[string]string{"doctorID": "missing"})
	w := httptest.NewRecorder()

	handler.GetDoctor(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}

func TestUpdateDoctorHandler(t *testing.T) {
	repo := NewInMemoryRepository()
	handler := NewHandler(repo, nil, nil, logging.Default())
	created := seedDoctor(t, repo, "Anna", "Rossi")

	created.Notes = "aggiornato"
	body, _ := json.Marshal(created)
	req := newTestRequest(http.MethodPut, "/orgs/org-1/doctors/"+created.ID, body, map[string]string{"doctorID": created.ID})
	w := httptest.NewRecorder()

	handler.UpdateDoctor(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	var updated Doctor
	if err := json.NewDecoder(w.Body).Decode(&updated); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if updated.Notes != "aggiornato" {
		t.Errorf("expected notes updated, got %q", updated.Notes)
	}
}

func TestPatchDoctorHandler(t *testing.T) {
	repo := NewInMemoryRepository()
	handler := NewHandler(repo, nil, nil, logging.Default())
	created := seedDoctor(t, repo, "Anna", "Rossi")

	body := []byte(`{"lastVisit":"2026-03-15"}`)
	req := newTestRequest(http.MethodPatch, "/orgs/org-1/doctors/"+created.ID, body, map[string]string{"doctorID": created.ID})
	w := httptest.NewRecorder()

	handler.PatchDoctor(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	var updated Doctor
	if err := json.NewDecoder(w.Body).Decode(&updated); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if updated.LastVisit != "2026-03-15" {
		t.Errorf("expected last visit set, got %q", updated.LastVisit)
	}
}

func TestDeleteDoctorHandler(t *testing.T) {
	repo := NewInMemoryRepository()
	handler := NewHandler(repo, nil, nil, logging.Default())
	created := seedDoctor(t, repo, "Anna", "Rossi")

	req := newTestRequest(http.MethodDelete, "/orgs/org-1/doctors/"+created.ID, nil, map[string]string{"doctorID": created.ID})
	w := httptest.NewRecorder()

	handler.DeleteDoctor(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, w.Code)
	}

	req = newTestRequest(http.MethodDelete, "/orgs/org-1/doctors/"+created.ID, nil, map[string]string{"doctorID": created.ID})
	w = httptest.NewRecorder()
	handler.DeleteDoctor(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}

func TestStructureHandlers(t *testing.T) {
	repo := NewInMemoryRepository()
	handler := NewHandler(repo, nil, nil, logging.Default())

	body, _ := json.Marshal(Structure{Name: "Clinica Aurora", Address: "Via Roma 1"})
	req := newTestRequest(http.MethodPost, "/orgs/org-1/structures", body, nil)
	w := httptest.NewRecorder()
	handler.CreateStructure(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, w.Code)
	}
	var created Structure
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	req = newTestRequest(http.MethodGet, "/orgs/org-1/structures", nil, nil)
	w = httptest.NewRecorder()
	handler.ListStructures(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	var listed struct {
		Structures []Structure `json:"structures"`
		Count      int         `json:"count"`
	}
	if err := json.NewDecoder(w.Body).Decode(&listed); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if listed.Count != 1 || listed.Structures[0].Name != "Clinica Aurora" {
		t.Errorf("unexpected list response: %+v", listed)
	}

	req = newTestRequest(http.MethodDelete, "/orgs/org-1/structures/"+created.ID, nil, map[string]string{"structureID": created.ID})
	w = httptest.NewRecorder()
	handler.DeleteStructure(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, w.Code)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	repo := NewInMemoryRepository()
	handler := NewHandler(repo, nil, nil, logging.Default())

	structure := seedStructure(t, repo, "Clinica Aurora")
	seedDoctor(t, repo, "Anna", "Rossi", structure.ID)

	req := newTestRequest(http.MethodGet, "/orgs/org-1/export", nil, nil)
	w := httptest.NewRecorder()
	handler.ExportArchive(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Errorf("expected attachment disposition, got %q", cd)
	}
	exported := w.Body.Bytes()

	// Import the export into a fresh repository.
	freshRepo := NewInMemoryRepository()
	freshHandler := NewHandler(freshRepo, nil, nil, logging.Default())
	req = newTestRequest(http.MethodPost, "/orgs/org-1/import", exported, nil)
	w = httptest.NewRecorder()
	freshHandler.ImportArchive(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	doctors, err := freshRepo.ListDoctors(context.Background(), testOrg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doctors) != 1 || doctors[0].LastName != "Rossi" {
		t.Errorf("unexpected doctors after import: %+v", doctors)
	}
	structures, err := freshRepo.ListStructures(context.Background(), testOrg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(structures) != 1 || structures[0].Name != "Clinica Aurora" {
		t.Errorf("unexpected structures after import: %+v", structures)
	}
}

func TestImportArchive_Invalid(t *testing.T) {
	repo := NewInMemoryRepository()
	handler := NewHandler(repo, nil, nil, logging.Default())

	body := []byte(`{"doctors":[{"firstName":"Anna"}]}`)
	req := newTestRequest(http.MethodPost, "/orgs/org-1/import", body, nil)
	w := httptest.NewRecorder()
	handler.ImportArchive(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

type recordingInvalidator struct {
	orgs []string
}

func (ri *recordingInvalidator) Invalidate(_ context.Context, orgID string) {
	ri.orgs = append(ri.orgs, orgID)
}

func TestMutationsInvalidateSnapshot(t *testing.T) {
	repo := NewInMemoryRepository()
	inv := &recordingInvalidator{}
	handler := NewHandler(repo, inv, nil, logging.Default())

	body, _ := json.Marshal(Doctor{FirstName: "Anna", LastName: "Rossi"})
	w := httptest.NewRecorder()
	handler.CreateDoctor(w, newTestRequest(http.MethodPost, "/orgs/org-1/doctors", body, nil))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, w.Code)
	}
	if len(inv.orgs) != 1 || inv.orgs[0] != testOrg {
		t.Fatalf("expected one invalidation for %s, got %v", testOrg, inv.orgs)
	}

	// A failed mutation must leave the cache untouched.
	w = httptest.NewRecorder()
	handler.DeleteDoctor(w, newTestRequest(http.MethodDelete, "/orgs/org-1/doctors/missing", nil,
		map[string]string{"doctorID": "missing"}))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
	if len(inv.orgs) != 1 {
		t.Fatalf("expected no invalidation on failure, got %v", inv.orgs)
	}
}

func TestImportArchiveRecordsMetric(t *testing.T) {
	repo := NewInMemoryRepository()
	reg := prometheus.NewRegistry()
	handler := NewHandler(repo, nil, metrics.NewScheduleMetrics(reg), logging.Default())

	body, _ := json.Marshal(Archive{Doctors: []Doctor{{FirstName: "Anna", LastName: "Rossi"}}})
	w := httptest.NewRecorder()
	handler.ImportArchive(w, newTestRequest(http.MethodPost, "/orgs/org-1/import", body, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	handler.ImportArchive(w, newTestRequest(http.MethodPost, "/orgs/org-1/import",
		[]byte(`{"doctors":[{"firstName":"Anna"}]}`), nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}

	rr := httptest.NewRecorder()
	promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).ServeHTTP(rr,
		httptest.NewRequest(http.MethodGet, "/metrics", nil))
	out := rr.Body.String()
	if !strings.Contains(out, `medvisit_directory_imports_total{status="ok"} 1`) {
		t.Errorf("expected one successful import, got: %s", out)
	}
	if !strings.Contains(out, `medvisit_directory_imports_total{status="error"} 1`) {
		t.Errorf("expected one failed import, got: %s", out)
	}
}
