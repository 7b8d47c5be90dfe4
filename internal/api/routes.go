// Package api is the authenticated administrative HTTP surface:
// campaign CRUD and lifecycle, templates, transport settings,
// reporting reads, and the audit log.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes builds the admin router. Authentication is terminated
// upstream; the identity arrives in the X-Auth-User header.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Auth-User"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/", h.ListCampaigns)
			r.Post("/", h.CreateCampaign)
			r.Post("/estimate", h.EstimateTargets)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetCampaign)
				r.Put("/", h.UpdateCampaign)
				r.Delete("/", h.DeleteCampaign)

				r.Post("/schedule", h.ScheduleCampaign)
				r.Post("/pause", h.PauseCampaign)
				r.Post("/resume", h.ResumeCampaign)
				r.Post("/stop", h.StopCampaign)
				r.Post("/run-now", h.RunCampaignNow)

				r.Get("/estimate", h.EstimateCampaignTargets)
				r.Get("/runs", h.ListRuns)
				r.Get("/results", h.CampaignSummary)
				r.Get("/results/daily", h.CampaignDaily)
				r.Get("/results/departments", h.CampaignDepartments)
				r.Get("/results/users", h.CampaignUsers)
			})
		})

		r.Route("/templates", func(r chi.Router) {
			r.Get("/", h.ListTemplates)
			r.Post("/", h.CreateTemplate)
			r.Get("/{id}", h.GetTemplate)
			r.Put("/{id}", h.UpdateTemplate)
			r.Delete("/{id}", h.DeleteTemplate)
		})

		r.Route("/settings/smtp", func(r chi.Router) {
			r.Get("/", h.GetTransportSettings)
			r.Put("/", h.SaveTransportSettings)
			r.Post("/test", h.TestTransportSettings)
		})

		r.Get("/audit", h.ListAudit)
	})

	return r
}

// actorFrom extracts the upstream identity for auditing. An unnamed
// caller is recorded as "unknown" rather than rejected; access control
// happens before this service.
func actorFrom(r *http.Request) (name, ip string) {
	name = r.Header.Get("X-Auth-User")
	if name == "" {
		name = "unknown"
	}
	return name, r.RemoteAddr
}
