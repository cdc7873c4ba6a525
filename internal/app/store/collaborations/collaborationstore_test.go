package collaborationstore

import (
	"testing"

	"github.com/peerhub/peerhub/internal/domain/models"
	"github.com/peerhub/peerhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestUpsert_IdempotentOnPair(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	listing := primitive.NewObjectID()
	owner := primitive.NewObjectID()
	collaborator := primitive.NewObjectID()

	first, err := store.Upsert(ctx, listing, owner, collaborator)
	if err != nil {
		t.Fatalf("first Upsert failed: %v", err)
	}
	if first.Status != models.CollaborationActive {
		t.Errorf("expected active status, got %q", first.Status)
	}

	second, err := store.Upsert(ctx, listing, owner, collaborator)
	if err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}
	if second.ID != first.ID {
		t.Error("expected replayed upsert to return the same document")
	}
	if !second.JoinedAt.Equal(first.JoinedAt) {
		t.Error("replayed upsert must not move joined_at")
	}

	n, err := store.CountByListing(ctx, listing)
	if err != nil {
		t.Fatalf("CountByListing failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected exactly 1 collaboration, got %d", n)
	}
}

func TestListForUser_EitherSide(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := primitive.NewObjectID()
	collaborator := primitive.NewObjectID()
	stranger := primitive.NewObjectID()

	if _, err := store.Upsert(ctx, primitive.NewObjectID(), owner, collaborator); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	for _, id := range []primitive.ObjectID{owner, collaborator} {
		got, err := store.ListForUser(ctx, id)
		if err != nil {
			t.Fatalf("ListForUser failed: %v", err)
		}
		if len(got) != 1 {
			t.Errorf("expected 1 collaboration for %s, got %d", id.Hex(), len(got))
		}
	}

	got, err := store.ListForUser(ctx, stranger)
	if err != nil {
		t.Fatalf("ListForUser failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no collaborations for a stranger, got %d", len(got))
	}
}

func TestDelete_ReportsMissing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	listing := primitive.NewObjectID()
	collaborator := primitive.NewObjectID()

	if _, err := store.Upsert(ctx, listing, primitive.NewObjectID(), collaborator); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	if err := store.Delete(ctx, listing, collaborator); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	ok, err := store.Exists(ctx, listing, collaborator)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if ok {
		t.Error("expected collaboration to be gone")
	}

	if err := store.Delete(ctx, listing, collaborator); err != mongo.ErrNoDocuments {
		t.Fatalf("expected mongo.ErrNoDocuments on second delete, got %v", err)
	}
}
