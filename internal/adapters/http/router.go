package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pixeltoplanet/carbonfooter-service/internal/application"
	"github.com/pixeltoplanet/carbonfooter-service/internal/ports"
)

func NewRouter(handler *Handler, verifier ports.TokenVerifier, metrics *Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	if metrics != nil {
		r.Use(metrics.middleware)
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, "ok", nil) })
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, "ready", nil) })
	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(optionalAuth(verifier))
			r.Post("/pages/{id}/view", handler.pageView)
			r.Get("/pages/{id}/emissions", handler.pageEmissions)
			r.Get("/stats", handler.siteStats)
		})
		r.Group(func(r chi.Router) {
			r.Use(requireRole(verifier, application.RoleEditor, application.RoleAdmin))
			r.Post("/pages/{id}/measure", handler.measurePage)
			r.Get("/pages/heaviest", handler.heaviestPages)
			r.Get("/pages/untested", handler.untestedPages)
		})
		r.Group(func(r chi.Router) {
			r.Use(requireRole(verifier, application.RoleAdmin))
			r.Delete("/data", handler.clearData)
			r.Get("/export", handler.exportData)
		})
	})
	return r
}
