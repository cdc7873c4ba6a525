// internal/app/workflows/reviewerapp/workflow.go
package reviewerapp

import (
	"context"
	"fmt"
	"strings"

	"github.com/peerhub/peerhub/internal/app/store/audit"
	reviewerappstore "github.com/peerhub/peerhub/internal/app/store/reviewerapps"
	userstore "github.com/peerhub/peerhub/internal/app/store/users"
	"github.com/peerhub/peerhub/internal/app/system/auditlog"
	"github.com/peerhub/peerhub/internal/app/system/authz"
	"github.com/peerhub/peerhub/internal/app/system/metrics"
	"github.com/peerhub/peerhub/internal/app/system/normalize"
	"github.com/peerhub/peerhub/internal/app/system/notify"
	"github.com/peerhub/peerhub/internal/app/system/txn"
	"github.com/peerhub/peerhub/internal/app/workflows"
	"github.com/peerhub/peerhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Workflow runs the reviewer application lifecycle: submit, approve,
// reject, revoke, withdraw. One application document per applicant, keyed
// by the applicant's user id, so "the user's application" is a single
// lookup and resubmission replaces rather than accumulates.
type Workflow struct {
	apps     *reviewerappstore.Store
	users    *userstore.Store
	client   *mongo.Client
	notifier *notify.Dispatcher
	audit    *auditlog.Logger
	log      *zap.Logger
}

func New(
	apps *reviewerappstore.Store,
	users *userstore.Store,
	client *mongo.Client,
	notifier *notify.Dispatcher,
	audit *auditlog.Logger,
	log *zap.Logger,
) *Workflow {
	return &Workflow{
		apps:     apps,
		users:    users,
		client:   client,
		notifier: notifier,
		audit:    audit,
		log:      log,
	}
}

// SubmitInput carries the application form fields.
type SubmitInput struct {
	FullName        string
	Institution     string
	ExpertiseTags   []string
	YearsExperience int
	CVURL           string
	Publications    string
	AcceptedTerms   bool
}

func (in SubmitInput) validate() error {
	fields := map[string]string{}
	if normalize.Name(in.FullName) == "" {
		fields["fullName"] = "full name is required"
	}
	if strings.TrimSpace(in.Institution) == "" {
		fields["institution"] = "institution is required"
	}
	if len(in.ExpertiseTags) == 0 {
		fields["expertiseTags"] = "at least one expertise tag is required"
	}
	if in.YearsExperience <= 0 {
		fields["yearsExperience"] = "years of experience must be a positive number"
	}
	if strings.TrimSpace(in.CVURL) == "" {
		fields["cvUrl"] = "a CV link is required"
	}
	if !in.AcceptedTerms {
		fields["acceptedTerms"] = "the reviewer terms must be accepted"
	}
	if len(fields) > 0 {
		return &workflows.ValidationError{Fields: fields}
	}
	return nil
}

// Submit creates or replaces the actor's application with status
// in_progress. A rejected applicant may reapply in place. An approved
// reviewer may not submit while the approval stands, and a revoked one
// keeps the revocation record until they withdraw it and start over.
func (w *Workflow) Submit(ctx context.Context, actor authz.Principal, in SubmitInput) (models.ReviewerApplication, error) {
	if err := in.validate(); err != nil {
		return models.ReviewerApplication{}, err
	}

	existing, err := w.apps.Get(ctx, actor.UserID)
	if err != nil && err != mongo.ErrNoDocuments {
		return models.ReviewerApplication{}, workflows.WrapStore("submit application", err)
	}
	if existing != nil &&
		(existing.Status == models.ApplicationApproved || existing.Status == models.ApplicationRevoked) {
		return models.ReviewerApplication{}, &workflows.InvalidTransitionError{
			Entity: "reviewer application",
			From:   existing.Status,
			Op:     "submit",
		}
	}

	app, err := w.apps.Upsert(ctx, models.ReviewerApplication{
		ID:              actor.UserID,
		FullName:        normalize.Name(in.FullName),
		Institution:     strings.TrimSpace(in.Institution),
		ExpertiseTags:   in.ExpertiseTags,
		YearsExperience: in.YearsExperience,
		CVURL:           strings.TrimSpace(in.CVURL),
		Publications:    strings.TrimSpace(in.Publications),
		AcceptedTerms:   in.AcceptedTerms,
	})
	if err != nil {
		return models.ReviewerApplication{}, workflows.WrapStore("submit application", err)
	}

	metrics.ReviewerTransitions.WithLabelValues("submitted").Inc()
	w.audit.Workflow(ctx, actor, audit.EventApplicationSubmitted, actor.UserID.Hex(), map[string]string{
		"institution": app.Institution,
	})
	return app, nil
}

// Approve moves an in-progress application to approved and grants the
// applicant the reviewer role. Admin only. The status write and the role
// flip run in one transaction.
func (w *Workflow) Approve(ctx context.Context, actor authz.Principal, applicantID primitive.ObjectID) error {
	if !actor.IsAdmin() {
		return &workflows.UnauthorizedError{Reason: "only admins may approve applications"}
	}

	err := txn.WithTransaction(ctx, w.client, w.log, func(ctx context.Context) error {
		if err := w.apps.Transition(ctx, applicantID, models.ApplicationInProgress, models.ApplicationApproved, "", actor.UserID); err != nil {
			return err
		}
		return w.users.SetRole(ctx, applicantID, authz.RoleReviewer)
	})
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return w.transitionConflict(ctx, applicantID, "approve")
		}
		return workflows.WrapStore("approve application", err)
	}

	w.notifier.Notify(ctx, applicantID, models.MessageReviewRequest, map[string]string{
		"kind": "application_approved",
	})
	metrics.ReviewerTransitions.WithLabelValues("approved").Inc()
	w.audit.Workflow(ctx, actor, audit.EventApplicationApproved, applicantID.Hex(), nil)
	return nil
}

// Reject moves an in-progress application to rejected with a required
// reason the applicant can read. Admin only. The applicant keeps their
// current role and may reapply.
func (w *Workflow) Reject(ctx context.Context, actor authz.Principal, applicantID primitive.ObjectID, reason string) error {
	if !actor.IsAdmin() {
		return &workflows.UnauthorizedError{Reason: "only admins may reject applications"}
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return workflows.Validation("reason", "a rejection reason is required")
	}

	if err := w.apps.Transition(ctx, applicantID, models.ApplicationInProgress, models.ApplicationRejected, reason, actor.UserID); err != nil {
		if err == mongo.ErrNoDocuments {
			return w.transitionConflict(ctx, applicantID, "reject")
		}
		return workflows.WrapStore("reject application", err)
	}

	w.notifier.Notify(ctx, applicantID, models.MessageSystemNotification, map[string]string{
		"kind":   "application_rejected",
		"reason": reason,
	})
	metrics.ReviewerTransitions.WithLabelValues("rejected").Inc()
	w.audit.Workflow(ctx, actor, audit.EventApplicationRejected, applicantID.Hex(), map[string]string{
		"reason": reason,
	})
	return nil
}

// Revoke moves an approved application to revoked with a required reason
// and demotes the user to revokedResearcher. Admin only.
func (w *Workflow) Revoke(ctx context.Context, actor authz.Principal, applicantID primitive.ObjectID, reason string) error {
	if !actor.IsAdmin() {
		return &workflows.UnauthorizedError{Reason: "only admins may revoke reviewer status"}
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return workflows.Validation("reason", "a revocation reason is required")
	}

	err := txn.WithTransaction(ctx, w.client, w.log, func(ctx context.Context) error {
		if err := w.apps.Transition(ctx, applicantID, models.ApplicationApproved, models.ApplicationRevoked, reason, actor.UserID); err != nil {
			return err
		}
		return w.users.SetRole(ctx, applicantID, authz.RoleRevokedResearcher)
	})
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return w.transitionConflict(ctx, applicantID, "revoke")
		}
		return workflows.WrapStore("revoke reviewer status", err)
	}

	w.notifier.Notify(ctx, applicantID, models.MessageSystemNotification, map[string]string{
		"kind":   "reviewer_status_revoked",
		"reason": reason,
	})
	metrics.ReviewerTransitions.WithLabelValues("revoked").Inc()
	w.audit.Workflow(ctx, actor, audit.EventApplicationRevoked, applicantID.Hex(), map[string]string{
		"reason": reason,
	})
	return nil
}

// Withdraw deletes the actor's own application, returning them to the
// "no application" state. A reviewer who withdraws gives up the role and
// goes back to researcher.
func (w *Workflow) Withdraw(ctx context.Context, actor authz.Principal) error {
	app, err := w.apps.Get(ctx, actor.UserID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return fmt.Errorf("no application to withdraw: %w", workflows.ErrNotFound)
		}
		return workflows.WrapStore("withdraw application", err)
	}

	err = txn.WithTransaction(ctx, w.client, w.log, func(ctx context.Context) error {
		if err := w.apps.Delete(ctx, actor.UserID); err != nil {
			return err
		}
		if app.Status == models.ApplicationApproved {
			return w.users.SetRole(ctx, actor.UserID, authz.RoleResearcher)
		}
		return nil
	})
	if err != nil {
		return workflows.WrapStore("withdraw application", err)
	}

	metrics.ReviewerTransitions.WithLabelValues("withdrawn").Inc()
	w.audit.Workflow(ctx, actor, audit.EventApplicationWithdrawn, actor.UserID.Hex(), nil)
	return nil
}

// Status returns the actor's application, or ErrNotFound when they never
// applied (or withdrew).
func (w *Workflow) Status(ctx context.Context, actor authz.Principal) (*models.ReviewerApplication, error) {
	app, err := w.apps.Get(ctx, actor.UserID)
	if err != nil {
		return nil, workflows.WrapStore("application status", err)
	}
	return app, nil
}

// ListForReview returns applications for the admin dashboard, optionally
// filtered by status.
func (w *Workflow) ListForReview(ctx context.Context, actor authz.Principal, status string) ([]models.ReviewerApplication, error) {
	if !actor.IsAdmin() {
		return nil, &workflows.UnauthorizedError{Reason: "only admins may list applications"}
	}
	apps, err := w.apps.ListByStatus(ctx, normalize.Status(status))
	if err != nil {
		return nil, workflows.WrapStore("list applications", err)
	}
	return apps, nil
}

// DashboardCounts returns application counts per status for the admin
// dashboard header.
func (w *Workflow) DashboardCounts(ctx context.Context, actor authz.Principal) (map[string]int64, error) {
	if !actor.IsAdmin() {
		return nil, &workflows.UnauthorizedError{Reason: "only admins may list applications"}
	}
	counts, err := w.apps.CountByStatus(ctx)
	if err != nil {
		return nil, workflows.WrapStore("count applications", err)
	}
	return counts, nil
}

// transitionConflict distinguishes "no such application" from "wrong
// status" after a guarded Transition matched nothing.
func (w *Workflow) transitionConflict(ctx context.Context, applicantID primitive.ObjectID, op string) error {
	app, err := w.apps.Get(ctx, applicantID)
	if err != nil {
		return fmt.Errorf("%s: application: %w", op, workflows.ErrNotFound)
	}
	return &workflows.InvalidTransitionError{Entity: "reviewer application", From: app.Status, Op: op}
}
