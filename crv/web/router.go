// Package web assembles the HTTP router.
package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/claimrecon/crv-app/crv/api"
	"github.com/claimrecon/crv-app/crv/logging"
	crvmiddleware "github.com/claimrecon/crv-app/middleware"
)

func NewAPIRouter(h *api.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, crvmiddleware.NewTransactionID,
		logging.NewStructuredLogger(), middleware.Recoverer, ConnectionClose)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/claims/$validate", h.ValidateClaim)
		r.Post("/patients/$match", h.MatchPatients)
		r.Post("/rates/$correct", h.ApplyRateCorrection)
	})
	r.Get("/_version", h.GetVersion)
	r.Get("/_health", h.HealthCheck)

	return r
}

// ConnectionClose sets Connection: close on every response.
func ConnectionClose(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Connection", "close")
		next.ServeHTTP(w, r)
	})
}
