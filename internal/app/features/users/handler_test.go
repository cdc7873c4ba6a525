package users

import (
	"net/http"
	"testing"

	userstore "github.com/peerhub/peerhub/internal/app/store/users"
	"github.com/peerhub/peerhub/internal/app/workflows/relationship"
	"github.com/peerhub/peerhub/internal/domain/models"
	"github.com/peerhub/peerhub/internal/testutil"
	"go.uber.org/zap"
)

func TestServeSearch_RequiresSignIn(t *testing.T) {
	h := NewHandler(nil, zap.NewNop())

	rec := testutil.NewRecorder()
	h.ServeSearch(rec, testutil.NewRequest(http.MethodGet, "/users/search?q=alice"))

	rec.AssertStatus(t, http.StatusUnauthorized)
	rec.AssertContains(t, "sign in required")
}

func TestServeSearch_ReturnsSummaries(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ledger := relationship.New(store, db.Client(), nil, nil, zap.NewNop())
	h := NewHandler(ledger, zap.NewNop())

	ctx, cancel := testutil.TestContext()
	defer cancel()
	self, err := store.Create(ctx, models.User{FullName: "Searcher Self", Email: "self@test.edu"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	target, err := store.Create(ctx, models.User{FullName: "Morgan Bravo", Email: "morgan@test.edu"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	rec := testutil.NewRecorder()
	req := testutil.WithUser(testutil.NewRequest(http.MethodGet, "/users/search?q=morgan"), testutil.TestUser{
		ID:   self.ID.Hex(),
		Name: self.FullName,
		Role: self.Role,
	})
	h.ServeSearch(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, target.ID.Hex())
	rec.AssertContains(t, "Morgan Bravo")
}
