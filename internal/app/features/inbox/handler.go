// internal/app/features/inbox/handler.go
package inbox

import (
	"net/http"

	messagestore "github.com/peerhub/peerhub/internal/app/store/messages"
	"github.com/peerhub/peerhub/internal/app/system/authz"
	"github.com/peerhub/peerhub/internal/app/system/httpjson"
	"github.com/peerhub/peerhub/internal/app/system/notify"
	"github.com/peerhub/peerhub/internal/app/system/paging"
	"github.com/peerhub/peerhub/internal/app/system/wsfeed"
	"github.com/peerhub/peerhub/internal/app/workflows"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the notification inbox: paged history, unread count, mark
// read, and the live websocket feed.
type Handler struct {
	Messages *messagestore.Store
	Notifier *notify.Dispatcher
	Feed     *wsfeed.Hub
	Log      *zap.Logger
}

func NewHandler(messages *messagestore.Store, notifier *notify.Dispatcher, feed *wsfeed.Hub, logger *zap.Logger) *Handler {
	return &Handler{Messages: messages, Notifier: notifier, Feed: feed, Log: logger}
}

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (authz.Principal, bool) {
	actor, ok := authz.FromRequest(r)
	if !ok {
		httpjson.Write(w, http.StatusUnauthorized, map[string]string{"error": "sign in required"})
	}
	return actor, ok
}

// ServeList handles GET /inbox, newest first with look-ahead paging.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}

	start := paging.ParseStart(r)
	msgs, err := h.Messages.ListByRecipient(r.Context(), actor.UserID, int64(start-1), paging.LimitPlusOne())
	if err != nil {
		httpjson.WriteError(w, h.Log, workflows.WrapStore("list inbox", err))
		return
	}
	page := paging.TrimPage(&msgs, start)

	httpjson.Write(w, http.StatusOK, map[string]any{
		"messages": msgs,
		"has_prev": page.HasPrev,
		"has_next": page.HasNext,
	})
}

// ServeUnreadCount handles GET /inbox/unread-count.
func (h *Handler) ServeUnreadCount(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}

	count, err := h.Messages.CountUnread(r.Context(), actor.UserID)
	if err != nil {
		httpjson.WriteError(w, h.Log, workflows.WrapStore("count unread", err))
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]int64{"unread": count})
}

// ServeMarkRead handles POST /inbox/{messageID}/read. Marking a missing or
// already-read message still returns 200; the inbox poll reconciles.
func (h *Handler) ServeMarkRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}
	messageID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "messageID"))
	if err != nil {
		httpjson.Write(w, http.StatusUnprocessableEntity, map[string]string{"error": "malformed message id"})
		return
	}

	h.Notifier.MarkRead(r.Context(), actor.UserID, messageID)
	httpjson.Write(w, http.StatusOK, map[string]string{"status": "read"})
}

// ServeFeed handles GET /inbox/ws: upgrade to the live notification feed.
func (h *Handler) ServeFeed(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}
	h.Feed.Serve(w, r, actor.UserID)
}
