package userstore

import (
	"testing"

	"github.com/peerhub/peerhub/internal/app/system/authz"
	"github.com/peerhub/peerhub/internal/app/system/indexes"
	"github.com/peerhub/peerhub/internal/domain/models"
	"github.com/peerhub/peerhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	db := testutil.SetupTestDB(t)

	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("failed to ensure indexes: %v", err)
	}
	return New(db)
}

func TestCreate_NormalizesAndDefaults(t *testing.T) {
	store := setupStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, err := store.Create(ctx, models.User{
		FullName: "  Alice   Moreau ",
		Email:    " Alice@Test.EDU ",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if u.FullName != "Alice Moreau" {
		t.Errorf("expected collapsed full name, got %q", u.FullName)
	}
	if u.Email != "alice@test.edu" {
		t.Errorf("expected normalized email, got %q", u.Email)
	}
	if u.Role != authz.RoleResearcher {
		t.Errorf("expected default role researcher, got %q", u.Role)
	}
}

func TestCreate_DuplicateEmail(t *testing.T) {
	store := setupStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Create(ctx, models.User{FullName: "Alice Moreau", Email: "alice@test.edu"}); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	_, err := store.Create(ctx, models.User{FullName: "Other Alice", Email: "ALICE@test.edu"})
	if err != ErrDuplicateEmail {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestCreate_RejectsUnknownRole(t *testing.T) {
	store := setupStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.Create(ctx, models.User{FullName: "Alice Moreau", Email: "alice@test.edu", Role: "superuser"})
	if err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestUpsertSignIn_CreatesThenRefreshes(t *testing.T) {
	store := setupStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	first, err := store.UpsertSignIn(ctx, "alice@test.edu", "Alice Moreau", "google")
	if err != nil {
		t.Fatalf("first UpsertSignIn failed: %v", err)
	}
	if first.Role != authz.RoleResearcher {
		t.Errorf("expected new sign-in to get researcher role, got %q", first.Role)
	}

	if err := store.SetRole(ctx, first.ID, authz.RoleReviewer); err != nil {
		t.Fatalf("SetRole failed: %v", err)
	}

	second, err := store.UpsertSignIn(ctx, "alice@test.edu", "Alice M. Moreau", "google")
	if err != nil {
		t.Fatalf("second UpsertSignIn failed: %v", err)
	}
	if second.ID != first.ID {
		t.Error("expected the same document on repeat sign-in")
	}
	if second.FullName != "Alice M. Moreau" {
		t.Errorf("expected refreshed display name, got %q", second.FullName)
	}
	if second.Role != authz.RoleReviewer {
		t.Errorf("sign-in must not reset the role, got %q", second.Role)
	}
}

func TestSearchByName_ExcludesAndLimits(t *testing.T) {
	store := setupStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice, _ := store.Create(ctx, models.User{FullName: "Morgan Alice", Email: "a@test.edu"})
	if _, err := store.Create(ctx, models.User{FullName: "Morgan Bravo", Email: "b@test.edu"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := store.Create(ctx, models.User{FullName: "Unrelated Name", Email: "c@test.edu"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	found, err := store.SearchByName(ctx, "  MORGAN ", []primitive.ObjectID{alice.ID}, 10)
	if err != nil {
		t.Fatalf("SearchByName failed: %v", err)
	}
	if len(found) != 1 || found[0].FullName != "Morgan Bravo" {
		t.Errorf("expected only Morgan Bravo, got %d results", len(found))
	}

	// A blank term returns nothing rather than everything.
	found, err = store.SearchByName(ctx, "   ", nil, 10)
	if err != nil {
		t.Fatalf("SearchByName failed: %v", err)
	}
	if len(found) != 0 {
		t.Errorf("expected no results for blank term, got %d", len(found))
	}
}
