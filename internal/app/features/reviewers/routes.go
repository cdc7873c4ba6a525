// internal/app/features/reviewers/routes.go
package reviewers

import (
	"github.com/peerhub/peerhub/internal/app/system/auth"
	"github.com/peerhub/peerhub/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes returns the reviewer-application subrouter; mounted at
// /reviewer-applications. Decision endpoints require the admin role.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Post("/", h.ServeSubmit)
	r.Get("/me", h.ServeStatus)
	r.Delete("/me", h.ServeWithdraw)

	r.Group(func(r chi.Router) {
		r.Use(sm.RequireRole(authz.RoleAdmin))
		r.Get("/", h.ServeList)
		r.Post("/{userID}/approve", h.ServeApprove)
		r.Post("/{userID}/reject", h.ServeReject)
		r.Post("/{userID}/revoke", h.ServeRevoke)
	})
	return r
}
