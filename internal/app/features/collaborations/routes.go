// internal/app/features/collaborations/routes.go
package collaborations

import (
	"github.com/peerhub/peerhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// RequestRoutes returns the collaboration-request subrouter; mounted at
// /collaboration-requests.
func RequestRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/", h.ServeMine)
	r.Get("/pending", h.ServePending)
	r.Post("/{requestID}/accept", h.ServeAccept)
	r.Post("/{requestID}/reject", h.ServeReject)
	return r
}

// ActiveRoutes returns the active-collaborations subrouter; mounted at
// /collaborations.
func ActiveRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/", h.ServeActive)
	return r
}
