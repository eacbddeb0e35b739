package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lillie/clipd/internal/config"
)

func CoreRoutes(r chi.Router, d *Deps) {
	r.Get("/health", d.handleHealth)
}

func (d *Deps) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, 200, map[string]interface{}{
		"status":  "ok",
		"version": config.Version,
		"jobs":    d.Registry.Len(),
	})
}
