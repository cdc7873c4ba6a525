package listingcollab

import (
	"errors"
	"testing"

	requeststore "github.com/peerhub/peerhub/internal/app/store/collabrequests"
	collaborationstore "github.com/peerhub/peerhub/internal/app/store/collaborations"
	listingstore "github.com/peerhub/peerhub/internal/app/store/listings"
	"github.com/peerhub/peerhub/internal/app/system/indexes"
	"github.com/peerhub/peerhub/internal/app/workflows"
	"github.com/peerhub/peerhub/internal/domain/models"
	"github.com/peerhub/peerhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func setupWorkflow(t *testing.T) (*Workflow, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)

	// The duplicate-pending guard is the partial unique index.
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("failed to ensure indexes: %v", err)
	}

	wf := New(
		listingstore.New(db),
		requeststore.New(db),
		collaborationstore.New(db),
		db.Client(),
		nil,
		nil,
		zap.NewNop(),
	)
	return wf, testutil.NewFixtures(t, db)
}

func TestRequest_CreatesPending(t *testing.T) {
	wf, f := setupWorkflow(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := f.CreateResearcher(ctx, "Owner One", "owner@test.edu")
	requester := f.CreateResearcher(ctx, "Req Uester", "req@test.edu")
	listing := f.CreateListing(ctx, owner.ID, "Coral Reef Acoustics")

	req, err := wf.Request(ctx, testutil.Principal(requester), listing.ID)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if req.Status != models.RequestPending {
		t.Errorf("expected status pending, got %q", req.Status)
	}
	if req.ResearcherID != owner.ID || req.RequesterID != requester.ID {
		t.Error("request must record the listing owner and the requester")
	}
}

func TestRequest_OwnListing(t *testing.T) {
	wf, f := setupWorkflow(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := f.CreateResearcher(ctx, "Owner One", "owner@test.edu")
	listing := f.CreateListing(ctx, owner.ID, "Coral Reef Acoustics")

	_, err := wf.Request(ctx, testutil.Principal(owner), listing.ID)
	var verr *workflows.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestRequest_ClosedListing(t *testing.T) {
	wf, f := setupWorkflow(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := f.CreateResearcher(ctx, "Owner One", "owner@test.edu")
	requester := f.CreateResearcher(ctx, "Req Uester", "req@test.edu")
	listing := f.CreateListing(ctx, owner.ID, "Coral Reef Acoustics")

	_, err := f.DB().Collection("research_listings").UpdateOne(ctx,
		bson.M{"_id": listing.ID},
		bson.M{"$set": bson.M{"status": models.ListingClosed}},
	)
	if err != nil {
		t.Fatalf("failed to close listing: %v", err)
	}

	_, err = wf.Request(ctx, testutil.Principal(requester), listing.ID)
	var terr *workflows.InvalidTransitionError
	if !errors.As(err, &terr) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
}

func TestRequest_DuplicatePending(t *testing.T) {
	wf, f := setupWorkflow(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := f.CreateResearcher(ctx, "Owner One", "owner@test.edu")
	requester := f.CreateResearcher(ctx, "Req Uester", "req@test.edu")
	listing := f.CreateListing(ctx, owner.ID, "Coral Reef Acoustics")

	if _, err := wf.Request(ctx, testutil.Principal(requester), listing.ID); err != nil {
		t.Fatalf("first Request failed: %v", err)
	}
	_, err := wf.Request(ctx, testutil.Principal(requester), listing.ID)
	if !errors.Is(err, workflows.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestAccept_CreatesCollaborationAndJoinsListing(t *testing.T) {
	wf, f := setupWorkflow(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := f.CreateResearcher(ctx, "Owner One", "owner@test.edu")
	requester := f.CreateResearcher(ctx, "Req Uester", "req@test.edu")
	listing := f.CreateListing(ctx, owner.ID, "Coral Reef Acoustics")
	req := f.CreatePendingRequest(ctx, listing, requester)

	if err := wf.Accept(ctx, testutil.Principal(owner), req.ID); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	got, err := requeststore.New(f.DB()).GetByID(ctx, req.ID)
	if err != nil {
		t.Fatalf("reload request: %v", err)
	}
	if got.Status != models.RequestAccepted {
		t.Errorf("expected status accepted, got %q", got.Status)
	}
	if got.RespondedAt == nil {
		t.Error("expected responded_at to be stamped")
	}

	active, err := collaborationstore.New(f.DB()).Exists(ctx, listing.ID, requester.ID)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !active {
		t.Error("expected a collaboration record for the pair")
	}

	gotListing, err := listingstore.New(f.DB()).GetByID(ctx, listing.ID)
	if err != nil {
		t.Fatalf("reload listing: %v", err)
	}
	if !gotListing.HasCollaborator(requester.ID) {
		t.Error("expected requester in the listing's collaborator set")
	}
}

func TestAccept_OnlyOwnerOrAdmin(t *testing.T) {
	wf, f := setupWorkflow(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := f.CreateResearcher(ctx, "Owner One", "owner@test.edu")
	requester := f.CreateResearcher(ctx, "Req Uester", "req@test.edu")
	bystander := f.CreateResearcher(ctx, "By Stander", "by@test.edu")
	admin := f.CreateAdmin(ctx, "Ad Min", "admin@test.edu")
	listing := f.CreateListing(ctx, owner.ID, "Coral Reef Acoustics")
	req := f.CreatePendingRequest(ctx, listing, requester)

	err := wf.Accept(ctx, testutil.Principal(bystander), req.ID)
	var uerr *workflows.UnauthorizedError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected UnauthorizedError for bystander, got %v", err)
	}
	// The requester cannot accept their own request either.
	if err := wf.Accept(ctx, testutil.Principal(requester), req.ID); !errors.As(err, &uerr) {
		t.Fatalf("expected UnauthorizedError for requester, got %v", err)
	}

	if err := wf.Accept(ctx, testutil.Principal(admin), req.ID); err != nil {
		t.Fatalf("admin Accept failed: %v", err)
	}
}

func TestAccept_AlreadyResolved(t *testing.T) {
	wf, f := setupWorkflow(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := f.CreateResearcher(ctx, "Owner One", "owner@test.edu")
	requester := f.CreateResearcher(ctx, "Req Uester", "req@test.edu")
	listing := f.CreateListing(ctx, owner.ID, "Coral Reef Acoustics")
	req := f.CreatePendingRequest(ctx, listing, requester)

	if err := wf.Accept(ctx, testutil.Principal(owner), req.ID); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	err := wf.Accept(ctx, testutil.Principal(owner), req.ID)
	var terr *workflows.InvalidTransitionError
	if !errors.As(err, &terr) {
		t.Fatalf("expected InvalidTransitionError on second accept, got %v", err)
	}
}

func TestReject_LeavesListingUntouched(t *testing.T) {
	wf, f := setupWorkflow(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := f.CreateResearcher(ctx, "Owner One", "owner@test.edu")
	requester := f.CreateResearcher(ctx, "Req Uester", "req@test.edu")
	listing := f.CreateListing(ctx, owner.ID, "Coral Reef Acoustics")
	req := f.CreatePendingRequest(ctx, listing, requester)

	if err := wf.Reject(ctx, testutil.Principal(owner), req.ID); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}

	got, _ := requeststore.New(f.DB()).GetByID(ctx, req.ID)
	if got.Status != models.RequestRejected {
		t.Errorf("expected status rejected, got %q", got.Status)
	}

	active, _ := collaborationstore.New(f.DB()).Exists(ctx, listing.ID, requester.ID)
	if active {
		t.Error("reject must not create a collaboration")
	}
	gotListing, _ := listingstore.New(f.DB()).GetByID(ctx, listing.ID)
	if gotListing.HasCollaborator(requester.ID) {
		t.Error("reject must not touch the collaborator set")
	}

	// A rejected requester may ask again.
	if _, err := wf.Request(ctx, testutil.Principal(requester), listing.ID); err != nil {
		t.Fatalf("re-request after reject failed: %v", err)
	}
}

func TestPendingForOwner_ListsAwaitingRequests(t *testing.T) {
	wf, f := setupWorkflow(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := f.CreateResearcher(ctx, "Owner One", "owner@test.edu")
	reqA := f.CreateResearcher(ctx, "Req Alpha", "a@test.edu")
	reqB := f.CreateResearcher(ctx, "Req Beta", "b@test.edu")
	listing := f.CreateListing(ctx, owner.ID, "Coral Reef Acoustics")

	f.CreatePendingRequest(ctx, listing, reqA)
	reqFromB := f.CreatePendingRequest(ctx, listing, reqB)

	if err := wf.Reject(ctx, testutil.Principal(owner), reqFromB.ID); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}

	pending, err := wf.PendingForOwner(ctx, testutil.Principal(owner))
	if err != nil {
		t.Fatalf("PendingForOwner failed: %v", err)
	}
	if len(pending) != 1 || pending[0].RequesterID != reqA.ID {
		t.Errorf("expected only the unresolved request, got %d", len(pending))
	}

	mine, err := wf.RequestsByActor(ctx, testutil.Principal(reqB))
	if err != nil {
		t.Fatalf("RequestsByActor failed: %v", err)
	}
	if len(mine) != 1 || mine[0].Status != models.RequestRejected {
		t.Errorf("expected reqB to see their rejected request, got %d", len(mine))
	}
}

func TestActiveCollaborations_BothSides(t *testing.T) {
	wf, f := setupWorkflow(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := f.CreateResearcher(ctx, "Owner One", "owner@test.edu")
	requester := f.CreateResearcher(ctx, "Req Uester", "req@test.edu")
	listing := f.CreateListing(ctx, owner.ID, "Coral Reef Acoustics")
	req := f.CreatePendingRequest(ctx, listing, requester)

	if err := wf.Accept(ctx, testutil.Principal(owner), req.ID); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	forOwner, err := wf.ActiveCollaborations(ctx, testutil.Principal(owner))
	if err != nil {
		t.Fatalf("ActiveCollaborations(owner) failed: %v", err)
	}
	forRequester, err := wf.ActiveCollaborations(ctx, testutil.Principal(requester))
	if err != nil {
		t.Fatalf("ActiveCollaborations(requester) failed: %v", err)
	}
	if len(forOwner) != 1 || len(forRequester) != 1 {
		t.Errorf("expected the collaboration visible to both sides, got %d/%d", len(forOwner), len(forRequester))
	}
}

func TestAccept_FinishesInterruptedAccept(t *testing.T) {
	wf, f := setupWorkflow(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := f.CreateResearcher(ctx, "Owner One", "owner@test.edu")
	requester := f.CreateResearcher(ctx, "Req Uester", "req@test.edu")
	listing := f.CreateListing(ctx, owner.ID, "Coral Reef Acoustics")
	req := f.CreatePendingRequest(ctx, listing, requester)

	// A sequential (no-transaction) accept that stopped after the status
	// flip: the request reads accepted but the collaboration never landed.
	_, err := f.DB().Collection("collaboration_requests").UpdateOne(ctx,
		bson.M{"_id": req.ID},
		bson.M{"$set": bson.M{"status": models.RequestAccepted}},
	)
	if err != nil {
		t.Fatalf("failed to plant interrupted accept: %v", err)
	}

	if err := wf.Accept(ctx, testutil.Principal(owner), req.ID); err != nil {
		t.Fatalf("re-accept should finish the side effects, got %v", err)
	}

	exists, err := wf.collabs.Exists(ctx, listing.ID, requester.ID)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("expected the collaboration record to be created")
	}
	got, err := wf.listings.GetByID(ctx, listing.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !got.HasCollaborator(requester.ID) {
		t.Error("expected the requester in the listing's collaborator set")
	}

	// With the side effects settled, another accept is a double accept.
	err = wf.Accept(ctx, testutil.Principal(owner), req.ID)
	var terr *workflows.InvalidTransitionError
	if !errors.As(err, &terr) {
		t.Fatalf("expected InvalidTransitionError on settled request, got %v", err)
	}
}

func TestRemoveCollaborator_EndsCollaboration(t *testing.T) {
	wf, f := setupWorkflow(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := f.CreateResearcher(ctx, "Owner One", "owner@test.edu")
	requester := f.CreateResearcher(ctx, "Req Uester", "req@test.edu")
	bystander := f.CreateResearcher(ctx, "By Stander", "by@test.edu")
	listing := f.CreateListing(ctx, owner.ID, "Coral Reef Acoustics")
	req := f.CreatePendingRequest(ctx, listing, requester)

	if err := wf.Accept(ctx, testutil.Principal(owner), req.ID); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	err := wf.RemoveCollaborator(ctx, testutil.Principal(bystander), listing.ID, requester.ID)
	var uerr *workflows.UnauthorizedError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected UnauthorizedError for a bystander, got %v", err)
	}

	// The collaborator may leave on their own.
	if err := wf.RemoveCollaborator(ctx, testutil.Principal(requester), listing.ID, requester.ID); err != nil {
		t.Fatalf("RemoveCollaborator failed: %v", err)
	}

	exists, err := wf.collabs.Exists(ctx, listing.ID, requester.ID)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("expected the collaboration record removed")
	}
	got, err := wf.listings.GetByID(ctx, listing.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.HasCollaborator(requester.ID) {
		t.Error("expected the requester out of the listing's collaborator set")
	}

	if err := wf.RemoveCollaborator(ctx, testutil.Principal(owner), listing.ID, requester.ID); !errors.Is(err, workflows.ErrNotFound) {
		t.Fatalf("expected ErrNotFound once the collaboration is gone, got %v", err)
	}

	// The listing is still open, so the former collaborator may request again.
	if _, err := wf.Request(ctx, testutil.Principal(requester), listing.ID); err != nil {
		t.Fatalf("Request after removal failed: %v", err)
	}
}
