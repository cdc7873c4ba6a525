// internal/app/features/inbox/routes.go
package inbox

import (
	"github.com/peerhub/peerhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the inbox subrouter; mounted at /inbox.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/", h.ServeList)
	r.Get("/unread-count", h.ServeUnreadCount)
	r.Post("/{messageID}/read", h.ServeMarkRead)
	r.Get("/ws", h.ServeFeed)
	return r
}
