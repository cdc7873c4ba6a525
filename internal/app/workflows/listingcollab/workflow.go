// internal/app/workflows/listingcollab/workflow.go
package listingcollab

import (
	"context"
	"fmt"

	"github.com/peerhub/peerhub/internal/app/store/audit"
	requeststore "github.com/peerhub/peerhub/internal/app/store/collabrequests"
	collaborationstore "github.com/peerhub/peerhub/internal/app/store/collaborations"
	listingstore "github.com/peerhub/peerhub/internal/app/store/listings"
	"github.com/peerhub/peerhub/internal/app/system/auditlog"
	"github.com/peerhub/peerhub/internal/app/system/authz"
	"github.com/peerhub/peerhub/internal/app/system/metrics"
	"github.com/peerhub/peerhub/internal/app/system/notify"
	"github.com/peerhub/peerhub/internal/app/system/txn"
	"github.com/peerhub/peerhub/internal/app/workflows"
	"github.com/peerhub/peerhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Workflow runs the listing collaboration request lifecycle: request,
// accept, reject. A request is a standalone document; accepting one
// creates a collaboration record and unions the requester into the
// listing's collaborator set.
type Workflow struct {
	listings *listingstore.Store
	requests *requeststore.Store
	collabs  *collaborationstore.Store
	client   *mongo.Client
	notifier *notify.Dispatcher
	audit    *auditlog.Logger
	log      *zap.Logger
}

func New(
	listings *listingstore.Store,
	requests *requeststore.Store,
	collabs *collaborationstore.Store,
	client *mongo.Client,
	notifier *notify.Dispatcher,
	audit *auditlog.Logger,
	log *zap.Logger,
) *Workflow {
	return &Workflow{
		listings: listings,
		requests: requests,
		collabs:  collabs,
		client:   client,
		notifier: notifier,
		audit:    audit,
		log:      log,
	}
}

// Request creates a pending collaboration request from the actor against
// listingID. At most one pending request may exist per (listing, requester);
// the unique partial index enforces that even under races.
func (w *Workflow) Request(ctx context.Context, actor authz.Principal, listingID primitive.ObjectID) (models.CollaborationRequest, error) {
	listing, err := w.listings.GetByID(ctx, listingID)
	if err != nil {
		return models.CollaborationRequest{}, workflows.WrapStore("request collaboration", err)
	}

	if listing.OwnerID == actor.UserID {
		return models.CollaborationRequest{}, workflows.Validation("listingId", "cannot request collaboration on your own listing")
	}
	if listing.Status != models.ListingOpen {
		return models.CollaborationRequest{}, &workflows.InvalidTransitionError{
			Entity: "listing",
			From:   listing.Status,
			Op:     "request collaboration",
		}
	}

	active, err := w.collabs.Exists(ctx, listingID, actor.UserID)
	if err != nil {
		return models.CollaborationRequest{}, workflows.WrapStore("request collaboration", err)
	}
	if active {
		return models.CollaborationRequest{}, fmt.Errorf("already collaborating on this listing: %w", workflows.ErrDuplicate)
	}

	req, err := w.requests.Create(ctx, models.CollaborationRequest{
		ListingID:     listingID,
		ResearcherID:  listing.OwnerID,
		RequesterID:   actor.UserID,
		RequesterName: actor.Name,
	})
	if err != nil {
		if err == requeststore.ErrDuplicatePending {
			return models.CollaborationRequest{}, fmt.Errorf("request already pending for this listing: %w", workflows.ErrDuplicate)
		}
		return models.CollaborationRequest{}, workflows.WrapStore("request collaboration", err)
	}

	w.notifier.Notify(ctx, listing.OwnerID, models.MessageCollaborationRequest, map[string]string{
		"request_id":     req.ID.Hex(),
		"listing_id":     listingID.Hex(),
		"listing_title":  listing.Title,
		"requester_id":   actor.UserID.Hex(),
		"requester_name": actor.Name,
	})
	metrics.CollaborationRequests.WithLabelValues("requested").Inc()
	w.audit.Workflow(ctx, actor, audit.EventCollabRequested, req.ID.Hex(), map[string]string{
		"listing_id": listingID.Hex(),
	})
	return req, nil
}

// Accept resolves a pending request in the requester's favor: the request
// flips to accepted, a collaboration record appears for the pair, and the
// requester joins the listing's collaborator set. Only the listing owner
// or an admin may accept. The three writes run in one transaction; each is
// idempotent so the sequential fallback tolerates replays.
//
// Accepting an already-accepted request whose collaboration record is
// missing re-runs the side effects: the sequential fallback can stop
// between the status flip and the collaboration writes, and re-accepting
// is the repair path for that state.
func (w *Workflow) Accept(ctx context.Context, actor authz.Principal, requestID primitive.ObjectID) error {
	req, err := w.loadForDecision(ctx, actor, requestID, "accept")
	if err != nil {
		return err
	}

	switch req.Status {
	case models.RequestPending:
		err = txn.WithTransaction(ctx, w.client, w.log, func(ctx context.Context) error {
			if _, err := w.requests.Resolve(ctx, requestID, models.RequestAccepted); err != nil {
				return err
			}
			return w.applyAccept(ctx, req)
		})
		if err != nil {
			if err == mongo.ErrNoDocuments {
				// Resolve matched nothing: the request left pending between
				// our read and the write.
				return &workflows.InvalidTransitionError{Entity: "collaboration request", From: req.Status, Op: "accept"}
			}
			return workflows.WrapStore("accept collaboration request", err)
		}
	case models.RequestAccepted:
		settled, err := w.collabs.Exists(ctx, req.ListingID, req.RequesterID)
		if err != nil {
			return workflows.WrapStore("accept collaboration request", err)
		}
		if settled {
			return &workflows.InvalidTransitionError{Entity: "collaboration request", From: req.Status, Op: "accept"}
		}
		err = txn.WithTransaction(ctx, w.client, w.log, func(ctx context.Context) error {
			return w.applyAccept(ctx, req)
		})
		if err != nil {
			return workflows.WrapStore("accept collaboration request", err)
		}
	default:
		return &workflows.InvalidTransitionError{Entity: "collaboration request", From: req.Status, Op: "accept"}
	}

	listing, lerr := w.listings.GetByID(ctx, req.ListingID)
	title := ""
	if lerr == nil {
		title = listing.Title
	}
	w.notifier.Notify(ctx, req.RequesterID, models.MessageSystemNotification, map[string]string{
		"kind":          "collaboration_accepted",
		"listing_id":    req.ListingID.Hex(),
		"listing_title": title,
	})
	metrics.CollaborationRequests.WithLabelValues("accepted").Inc()
	w.audit.Workflow(ctx, actor, audit.EventCollabAccepted, requestID.Hex(), map[string]string{
		"listing_id":   req.ListingID.Hex(),
		"requester_id": req.RequesterID.Hex(),
	})
	return nil
}

// applyAccept runs the accept side effects: the collaboration record and
// the listing's collaborator set. Both writes are idempotent.
func (w *Workflow) applyAccept(ctx context.Context, req *models.CollaborationRequest) error {
	if _, err := w.collabs.Upsert(ctx, req.ListingID, req.ResearcherID, req.RequesterID); err != nil {
		return err
	}
	return w.listings.AddCollaborator(ctx, req.ListingID, req.RequesterID)
}

// Reject resolves a pending request against the requester. The listing and
// collaboration records are untouched.
func (w *Workflow) Reject(ctx context.Context, actor authz.Principal, requestID primitive.ObjectID) error {
	req, err := w.loadForDecision(ctx, actor, requestID, "reject")
	if err != nil {
		return err
	}
	if req.Status != models.RequestPending {
		return &workflows.InvalidTransitionError{Entity: "collaboration request", From: req.Status, Op: "reject"}
	}

	if _, err := w.requests.Resolve(ctx, requestID, models.RequestRejected); err != nil {
		if err == mongo.ErrNoDocuments {
			return &workflows.InvalidTransitionError{Entity: "collaboration request", From: req.Status, Op: "reject"}
		}
		return workflows.WrapStore("reject collaboration request", err)
	}

	w.notifier.Notify(ctx, req.RequesterID, models.MessageSystemNotification, map[string]string{
		"kind":       "collaboration_rejected",
		"listing_id": req.ListingID.Hex(),
	})
	metrics.CollaborationRequests.WithLabelValues("rejected").Inc()
	w.audit.Workflow(ctx, actor, audit.EventCollabRejected, requestID.Hex(), map[string]string{
		"listing_id":   req.ListingID.Hex(),
		"requester_id": req.RequesterID.Hex(),
	})
	return nil
}

// loadForDecision fetches the request and checks the actor may decide it:
// the listing owner recorded on the request, or an admin. Status checks are
// the caller's business; accept has a repair path for non-pending requests.
func (w *Workflow) loadForDecision(ctx context.Context, actor authz.Principal, requestID primitive.ObjectID, op string) (*models.CollaborationRequest, error) {
	req, err := w.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, workflows.WrapStore(op+" collaboration request", err)
	}
	if req.ResearcherID != actor.UserID && !actor.IsAdmin() {
		return nil, &workflows.UnauthorizedError{Reason: "only the listing owner may " + op + " this request"}
	}
	return req, nil
}

// RemoveCollaborator ends an active collaboration: the listing owner or an
// admin removes the collaborator, or the collaborator leaves on their own.
// The collaboration record goes away and the user leaves the listing's
// collaborator set; past requests keep their history.
func (w *Workflow) RemoveCollaborator(ctx context.Context, actor authz.Principal, listingID, collaboratorID primitive.ObjectID) error {
	listing, err := w.listings.GetByID(ctx, listingID)
	if err != nil {
		return workflows.WrapStore("remove collaborator", err)
	}
	if !actor.Is(listing.OwnerID) && !actor.Is(collaboratorID) && !actor.IsAdmin() {
		return &workflows.UnauthorizedError{Reason: "only the listing owner or the collaborator may end a collaboration"}
	}

	err = txn.WithTransaction(ctx, w.client, w.log, func(ctx context.Context) error {
		if err := w.collabs.Delete(ctx, listingID, collaboratorID); err != nil {
			return err
		}
		return w.listings.RemoveCollaborator(ctx, listingID, collaboratorID)
	})
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return fmt.Errorf("no active collaboration for this user: %w", workflows.ErrNotFound)
		}
		return workflows.WrapStore("remove collaborator", err)
	}

	// Tell the other party, whichever side acted.
	recipient := collaboratorID
	if actor.Is(collaboratorID) {
		recipient = listing.OwnerID
	}
	w.notifier.Notify(ctx, recipient, models.MessageSystemNotification, map[string]string{
		"kind":          "collaboration_ended",
		"listing_id":    listingID.Hex(),
		"listing_title": listing.Title,
	})
	metrics.CollaborationRequests.WithLabelValues("removed").Inc()
	w.audit.Workflow(ctx, actor, audit.EventCollabRemoved, listingID.Hex(), map[string]string{
		"collaborator_id": collaboratorID.Hex(),
	})
	return nil
}

// PendingForOwner returns the pending requests awaiting the actor's
// decision across all of their listings.
func (w *Workflow) PendingForOwner(ctx context.Context, actor authz.Principal) ([]models.CollaborationRequest, error) {
	ownerID := actor.UserID
	reqs, err := w.requests.List(ctx, requeststore.ListFilter{
		ResearcherID: &ownerID,
		Status:       models.RequestPending,
	})
	if err != nil {
		return nil, workflows.WrapStore("list pending requests", err)
	}
	return reqs, nil
}

// RequestsByActor returns the requests the actor has made, any status,
// newest first.
func (w *Workflow) RequestsByActor(ctx context.Context, actor authz.Principal) ([]models.CollaborationRequest, error) {
	requesterID := actor.UserID
	reqs, err := w.requests.List(ctx, requeststore.ListFilter{RequesterID: &requesterID})
	if err != nil {
		return nil, workflows.WrapStore("list requests", err)
	}
	return reqs, nil
}

// ActiveCollaborations returns collaborations the actor participates in,
// on either side.
func (w *Workflow) ActiveCollaborations(ctx context.Context, actor authz.Principal) ([]models.Collaboration, error) {
	collabs, err := w.collabs.ListForUser(ctx, actor.UserID)
	if err != nil {
		return nil, workflows.WrapStore("list collaborations", err)
	}
	return collabs, nil
}
