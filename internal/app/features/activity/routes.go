// internal/app/features/activity/routes.go
package activity

import (
	"github.com/peerhub/peerhub/internal/app/system/auth"
	"github.com/peerhub/peerhub/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes returns the activity subrouter; mounted at /activity. Admin only.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Use(sm.RequireRole(authz.RoleAdmin))
	r.Get("/", h.ServeQuery)
	return r
}
