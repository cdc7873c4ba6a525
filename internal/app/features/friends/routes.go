// internal/app/features/friends/routes.go
package friends

import (
	"github.com/peerhub/peerhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the friends subrouter; mounted at /friends.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/", h.ServeList)
	r.Get("/pending", h.ServePending)
	r.Post("/requests/{userID}", h.ServeSend)
	r.Post("/requests/{userID}/accept", h.ServeAccept)
	r.Post("/requests/{userID}/reject", h.ServeReject)
	r.Delete("/{userID}", h.ServeUnfriend)
	return r
}
