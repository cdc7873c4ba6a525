// internal/app/features/collaborations/handler.go
package collaborations

import (
	"net/http"

	"github.com/peerhub/peerhub/internal/app/system/authz"
	"github.com/peerhub/peerhub/internal/app/system/httpjson"
	"github.com/peerhub/peerhub/internal/app/workflows/listingcollab"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the collaboration request lifecycle endpoints.
type Handler struct {
	Workflow *listingcollab.Workflow
	Log      *zap.Logger
}

func NewHandler(wf *listingcollab.Workflow, logger *zap.Logger) *Handler {
	return &Handler{Workflow: wf, Log: logger}
}

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (authz.Principal, bool) {
	actor, ok := authz.FromRequest(r)
	if !ok {
		httpjson.Write(w, http.StatusUnauthorized, map[string]string{"error": "sign in required"})
	}
	return actor, ok
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, param))
	if err != nil {
		httpjson.Write(w, http.StatusUnprocessableEntity, map[string]string{"error": "malformed id"})
		return primitive.NilObjectID, false
	}
	return id, true
}

// ServeRequest handles POST /listings/{listingID}/collaboration-requests.
func (h *Handler) ServeRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}
	listingID, ok := pathID(w, r, "listingID")
	if !ok {
		return
	}

	req, err := h.Workflow.Request(r.Context(), actor, listingID)
	if err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, req)
}

// ServeAccept handles POST /collaboration-requests/{requestID}/accept.
func (h *Handler) ServeAccept(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}
	requestID, ok := pathID(w, r, "requestID")
	if !ok {
		return
	}

	if err := h.Workflow.Accept(r.Context(), actor, requestID); err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]string{"status": "accepted"})
}

// ServeReject handles POST /collaboration-requests/{requestID}/reject.
func (h *Handler) ServeReject(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}
	requestID, ok := pathID(w, r, "requestID")
	if !ok {
		return
	}

	if err := h.Workflow.Reject(r.Context(), actor, requestID); err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]string{"status": "rejected"})
}

// ServeMine handles GET /collaboration-requests: requests the caller made.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}

	reqs, err := h.Workflow.RequestsByActor(r.Context(), actor)
	if err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]any{"requests": reqs})
}

// ServePending handles GET /collaboration-requests/pending: pending requests
// awaiting the caller's decision as listing owner.
func (h *Handler) ServePending(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}

	reqs, err := h.Workflow.PendingForOwner(r.Context(), actor)
	if err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]any{"requests": reqs})
}

// ServeRemove handles DELETE /listings/{listingID}/collaborators/{userID}:
// the owner (or an admin) removes a collaborator, or a collaborator leaves.
func (h *Handler) ServeRemove(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}
	listingID, ok := pathID(w, r, "listingID")
	if !ok {
		return
	}
	collaboratorID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}

	if err := h.Workflow.RemoveCollaborator(r.Context(), actor, listingID, collaboratorID); err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]string{"status": "removed"})
}

// ServeActive handles GET /collaborations: collaborations the caller is in,
// either side.
func (h *Handler) ServeActive(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}

	collabs, err := h.Workflow.ActiveCollaborations(r.Context(), actor)
	if err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]any{"collaborations": collabs})
}
