package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lillie/clipd/internal/middleware"
)

// Operator-only monitoring surface over the live job registry.
func OperationRoutes(r chi.Router, d *Deps) {
	r.With(middleware.Auth).Get("/operations", d.handleOperations)
	r.With(middleware.Auth).Get("/operations/{operation}", d.handleOperation)
}

func (d *Deps) handleOperations(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())
	if !identity.Elevated {
		respondMessage(w, 401, "Unauthorized")
		return
	}
	respondJSON(w, 200, d.Registry.Snapshot())
}

func (d *Deps) handleOperation(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())
	if !identity.Elevated {
		respondMessage(w, 401, "Unauthorized")
		return
	}

	id, ok := parseUint(chi.URLParam(r, "operation"))
	if !ok {
		respondMessage(w, 404, "Not found")
		return
	}
	state := d.Registry.Get(id)
	if state == nil {
		respondMessage(w, 404, "Not found")
		return
	}
	respondJSON(w, 200, state.Snapshot())
}
