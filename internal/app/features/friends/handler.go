// internal/app/features/friends/handler.go
package friends

import (
	"net/http"

	"github.com/peerhub/peerhub/internal/app/system/authz"
	"github.com/peerhub/peerhub/internal/app/system/httpjson"
	"github.com/peerhub/peerhub/internal/app/workflows/relationship"
	"github.com/peerhub/peerhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the friend-request workflow endpoints.
type Handler struct {
	Ledger *relationship.Ledger
	Log    *zap.Logger
}

func NewHandler(ledger *relationship.Ledger, logger *zap.Logger) *Handler {
	return &Handler{Ledger: ledger, Log: logger}
}

type userSummary struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

func summarize(users []models.User) []userSummary {
	out := make([]userSummary, 0, len(users))
	for i := range users {
		out = append(out, userSummary{
			ID:       users[i].ID.Hex(),
			FullName: users[i].FullName,
			Role:     users[i].Role,
		})
	}
	return out
}

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (authz.Principal, bool) {
	actor, ok := authz.FromRequest(r)
	if !ok {
		httpjson.Write(w, http.StatusUnauthorized, map[string]string{"error": "sign in required"})
	}
	return actor, ok
}

func pathUserID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userID"))
	if err != nil {
		httpjson.Write(w, http.StatusUnprocessableEntity, map[string]string{"error": "malformed user id"})
		return primitive.NilObjectID, false
	}
	return id, true
}

// ServeList handles GET /friends.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}

	friends, err := h.Ledger.Friends(r.Context(), actor)
	if err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]any{"friends": summarize(friends)})
}

// ServePending handles GET /friends/pending: both directions at once, the
// way the requests screen renders them.
func (h *Handler) ServePending(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}

	sent, received, err := h.Ledger.Pending(r.Context(), actor)
	if err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]any{
		"sent":     summarize(sent),
		"received": summarize(received),
	})
}

// ServeSend handles POST /friends/requests/{userID}.
func (h *Handler) ServeSend(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}
	otherID, ok := pathUserID(w, r)
	if !ok {
		return
	}

	if err := h.Ledger.SendRequest(r.Context(), actor, otherID); err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, map[string]string{"status": "request sent"})
}

// ServeAccept handles POST /friends/requests/{userID}/accept.
func (h *Handler) ServeAccept(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, true)
}

// ServeReject handles POST /friends/requests/{userID}/reject.
func (h *Handler) ServeReject(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, false)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, accept bool) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}
	otherID, ok := pathUserID(w, r)
	if !ok {
		return
	}

	if err := h.Ledger.Respond(r.Context(), actor, otherID, accept); err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}
	status := "rejected"
	if accept {
		status = "accepted"
	}
	httpjson.Write(w, http.StatusOK, map[string]string{"status": status})
}

// ServeUnfriend handles DELETE /friends/{userID}.
func (h *Handler) ServeUnfriend(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}
	otherID, ok := pathUserID(w, r)
	if !ok {
		return
	}

	if err := h.Ledger.Unfriend(r.Context(), actor, otherID); err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]string{"status": "unfriended"})
}
