package routes

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lillie/clipd/internal/middleware"
	"github.com/lillie/clipd/internal/services"
	"github.com/lillie/clipd/internal/util"
)

func ClipRoutes(r chi.Router, d *Deps) {
	r.With(middleware.Auth).Post("/clips/{clip}/edit", d.handleEdit)
}

// handleEdit re-encodes a sub-range of an already-processed clip into a
// new record pointing back at its parent.
func (d *Deps) handleEdit(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())

	clipID, ok := parseUint(chi.URLParam(r, "clip"))
	if !ok {
		respondMessage(w, 403, "Invalid clip id")
		return
	}

	rawSeek := r.FormValue("seek")
	rawTo := r.FormValue("to")
	seek := util.ValidateTimeParam(rawSeek)
	to := util.ValidateTimeParam(rawTo)
	if (rawSeek != "" && seek == "") || (rawTo != "" && to == "") {
		respondMessage(w, 403, "Invalid seek/to value")
		return
	}

	job, err := d.Pipeline.PrepareEdit(r.Context(), services.EditRequest{
		Owner:    identity.ID,
		Username: identity.Username,
		ClipID:   clipID,
		Seek:     seek,
		To:       to,
	})
	if err != nil {
		switch services.KindOf(err) {
		case services.KindValidation:
			respondMessage(w, 403, err.Error())
		case services.KindProbe:
			respondMessage(w, 403, "Could not read the source clip")
		default:
			log.Printf("[Edit] %v", err)
			respondMessage(w, 500, "There was an error editing your clip")
		}
		return
	}

	respondJSON(w, 200, map[string]string{"file": job.Title()})
	go d.Pipeline.Process(context.Background(), job)
}
