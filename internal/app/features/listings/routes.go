// internal/app/features/listings/routes.go
package listings

import (
	"github.com/peerhub/peerhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the listings subrouter; mounted at /listings.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Post("/", h.ServeCreate)
	r.Get("/", h.ServeList)
	r.Get("/{listingID}", h.ServeGet)
	r.Put("/{listingID}", h.ServeUpdate)
	r.Delete("/{listingID}", h.ServeDelete)
	return r
}
