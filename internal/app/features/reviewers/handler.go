// internal/app/features/reviewers/handler.go
package reviewers

import (
	"context"
	"net/http"

	"github.com/peerhub/peerhub/internal/app/system/authz"
	"github.com/peerhub/peerhub/internal/app/system/httpjson"
	"github.com/peerhub/peerhub/internal/app/workflows/reviewerapp"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the reviewer application endpoints: the applicant side
// (submit, status, withdraw) and the admin decision side.
type Handler struct {
	Workflow *reviewerapp.Workflow
	Log      *zap.Logger
}

func NewHandler(wf *reviewerapp.Workflow, logger *zap.Logger) *Handler {
	return &Handler{Workflow: wf, Log: logger}
}

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (authz.Principal, bool) {
	actor, ok := authz.FromRequest(r)
	if !ok {
		httpjson.Write(w, http.StatusUnauthorized, map[string]string{"error": "sign in required"})
	}
	return actor, ok
}

func pathApplicantID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userID"))
	if err != nil {
		httpjson.Write(w, http.StatusUnprocessableEntity, map[string]string{"error": "malformed user id"})
		return primitive.NilObjectID, false
	}
	return id, true
}

type submitBody struct {
	FullName        string   `json:"full_name"`
	Institution     string   `json:"institution"`
	ExpertiseTags   []string `json:"expertise_tags"`
	YearsExperience int      `json:"years_experience"`
	CVURL           string   `json:"cv_url"`
	Publications    string   `json:"publications"`
	AcceptedTerms   bool     `json:"accepted_terms"`
}

type reasonBody struct {
	Reason string `json:"reason"`
}

// ServeSubmit handles POST /reviewer-applications.
func (h *Handler) ServeSubmit(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}

	var body submitBody
	if !httpjson.Decode(w, r, &body) {
		return
	}

	app, err := h.Workflow.Submit(r.Context(), actor, reviewerapp.SubmitInput{
		FullName:        body.FullName,
		Institution:     body.Institution,
		ExpertiseTags:   body.ExpertiseTags,
		YearsExperience: body.YearsExperience,
		CVURL:           body.CVURL,
		Publications:    body.Publications,
		AcceptedTerms:   body.AcceptedTerms,
	})
	if err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, app)
}

// ServeStatus handles GET /reviewer-applications/me. 404 when the caller
// never applied or withdrew.
func (h *Handler) ServeStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}

	app, err := h.Workflow.Status(r.Context(), actor)
	if err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, app)
}

// ServeWithdraw handles DELETE /reviewer-applications/me.
func (h *Handler) ServeWithdraw(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}

	if err := h.Workflow.Withdraw(r.Context(), actor); err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]string{"status": "withdrawn"})
}

// ServeList handles GET /reviewer-applications?status=… (admin). The
// response carries per-status counts for the dashboard header alongside
// the filtered list.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}

	apps, err := h.Workflow.ListForReview(r.Context(), actor, r.URL.Query().Get("status"))
	if err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}
	counts, err := h.Workflow.DashboardCounts(r.Context(), actor)
	if err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]any{
		"applications": apps,
		"counts":       counts,
	})
}

// ServeApprove handles POST /reviewer-applications/{userID}/approve (admin).
func (h *Handler) ServeApprove(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}
	applicantID, ok := pathApplicantID(w, r)
	if !ok {
		return
	}

	if err := h.Workflow.Approve(r.Context(), actor, applicantID); err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]string{"status": "approved"})
}

// ServeReject handles POST /reviewer-applications/{userID}/reject (admin).
func (h *Handler) ServeReject(w http.ResponseWriter, r *http.Request) {
	h.decideWithReason(w, r, h.Workflow.Reject, "rejected")
}

// ServeRevoke handles POST /reviewer-applications/{userID}/revoke (admin).
func (h *Handler) ServeRevoke(w http.ResponseWriter, r *http.Request) {
	h.decideWithReason(w, r, h.Workflow.Revoke, "revoked")
}

func (h *Handler) decideWithReason(
	w http.ResponseWriter,
	r *http.Request,
	decide func(ctx context.Context, actor authz.Principal, applicantID primitive.ObjectID, reason string) error,
	status string,
) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}
	applicantID, ok := pathApplicantID(w, r)
	if !ok {
		return
	}

	var body reasonBody
	if !httpjson.Decode(w, r, &body) {
		return
	}

	if err := decide(r.Context(), actor, applicantID, body.Reason); err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]string{"status": status})
}
