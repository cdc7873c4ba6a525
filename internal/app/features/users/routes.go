// internal/app/features/users/routes.go
package users

import (
	"github.com/peerhub/peerhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the user directory subrouter; mounted at /users.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/search", h.ServeSearch)
	return r
}
