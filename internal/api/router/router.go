// Package router wires the HTTP surface together.
package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/medvisit-platform/internal/directory"
	"github.com/wolfman30/medvisit-platform/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/medvisit-platform/internal/http/middleware"
	"github.com/wolfman30/medvisit-platform/internal/visits"
	"github.com/wolfman30/medvisit-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	DirectoryHandler   *directory.Handler
	VisitsHandler      *visits.Handler
	ReportHandler      *handlers.ReportHandler
	PlannerHandler     *handlers.PlannerHandler
	AdminAuthSecret    string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// RateLimitPerSecond enables per-IP rate limiting when > 0.
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// New creates a new Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if cfg.RateLimitPerSecond > 0 {
		r.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
	}

	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/orgs/{orgID}", func(org chi.Router) {
		org.Use(requireOrgID)

		// Read-only tenant routes.
		if cfg.DirectoryHandler != nil {
			org.Get("/doctors", cfg.DirectoryHandler.ListDoctors)
			org.Get("/doctors/{doctorID}", cfg.DirectoryHandler.GetDoctor)
			org.Get("/structures", cfg.DirectoryHandler.ListStructures)
			org.Get("/export", cfg.DirectoryHandler.ExportArchive)
		}
		if cfg.ReportHandler != nil {
			org.Get("/report", cfg.ReportHandler.Get)
		}
		if cfg.PlannerHandler != nil {
			org.Get("/planner", cfg.PlannerHandler.Get)
		}
		if cfg.VisitsHandler != nil {
			org.Get("/doctors/{doctorID}/visits", cfg.VisitsHandler.History)
		}

		// Mutations require the admin JWT when a secret is configured.
		org.Group(func(mut chi.Router) {
			if cfg.AdminAuthSecret != "" {
				mut.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			}
			if cfg.DirectoryHandler != nil {
				mut.Post("/doctors", cfg.DirectoryHandler.CreateDoctor)
				mut.Put("/doctors/{doctorID}", cfg.DirectoryHandler.UpdateDoctor)
				mut.Patch("/doctors/{doctorID}", cfg.DirectoryHandler.PatchDoctor)
				mut.Delete("/doctors/{doctorID}", cfg.DirectoryHandler.DeleteDoctor)
				mut.Post("/structures", cfg.DirectoryHandler.CreateStructure)
				mut.Put("/structures/{structureID}", cfg.DirectoryHandler.UpdateStructure)
				mut.Delete("/structures/{structureID}", cfg.DirectoryHandler.DeleteStructure)
				mut.Post("/import", cfg.DirectoryHandler.ImportArchive)
			}
			if cfg.VisitsHandler != nil {
				mut.Post("/doctors/{doctorID}/visited-today", cfg.VisitsHandler.MarkVisitedToday)
			}
		})
	})

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
