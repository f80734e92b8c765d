package router

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/medvisit-platform/internal/tenancy"
)

const orgHeader = "X-Org-Id"

// requireOrgID middleware resolves the tenant from the orgID route param,
// falling back to the X-Org-Id header, and stores it in the request context.
func requireOrgID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		orgID := strings.TrimSpace(chi.URLParam(r, "orgID"))
		if orgID == "" {
			orgID = strings.TrimSpace(r.Header.Get(orgHeader))
		}
		if orgID == "" {
			http.Error(w, "missing org id", http.StatusBadRequest)
			return
		}
		ctx := tenancy.WithOrgID(r.Context(), orgID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
