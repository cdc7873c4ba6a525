package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/peerhub/peerhub/internal/app/system/authz"
	"github.com/peerhub/peerhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser creates a test user with the given role.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email, role string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:         primitive.NewObjectID(),
		FullName:   fullName,
		FullNameCI: text.Fold(fullName),
		Email:      email,
		AuthMethod: "password",
		Role:       role,
		Status:     "active",
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateResearcher creates a test user with the researcher role.
func (f *Fixtures) CreateResearcher(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, fullName, email, authz.RoleResearcher)
}

// CreateReviewer creates a test user with the reviewer role.
func (f *Fixtures) CreateReviewer(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, fullName, email, authz.RoleReviewer)
}

// CreateAdmin creates a test admin user.
func (f *Fixtures) CreateAdmin(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, fullName, email, authz.RoleAdmin)
}

// CreateListing creates an open research listing owned by ownerID.
func (f *Fixtures) CreateListing(ctx context.Context, ownerID primitive.ObjectID, title string) models.ResearchListing {
	f.t.Helper()

	now := time.Now().UTC()
	listing := models.ResearchListing{
		ID:        primitive.NewObjectID(),
		OwnerID:   ownerID,
		Title:     title,
		TitleCI:   text.Fold(title),
		Summary:   "Test listing summary",
		Area:      "computer-science",
		Status:    models.ListingOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := f.db.Collection("research_listings").InsertOne(ctx, listing); err != nil {
		f.t.Fatalf("failed to create test listing: %v", err)
	}
	return listing
}

// CreatePendingRequest creates a pending collaboration request from
// requester against the listing.
func (f *Fixtures) CreatePendingRequest(ctx context.Context, listing models.ResearchListing, requester models.User) models.CollaborationRequest {
	f.t.Helper()

	req := models.CollaborationRequest{
		ID:            primitive.NewObjectID(),
		ListingID:     listing.ID,
		ResearcherID:  listing.OwnerID,
		RequesterID:   requester.ID,
		RequesterName: requester.FullName,
		Status:        models.RequestPending,
		CreatedAt:     time.Now().UTC(),
	}

	if _, err := f.db.Collection("collaboration_requests").InsertOne(ctx, req); err != nil {
		f.t.Fatalf("failed to create test collaboration request: %v", err)
	}
	return req
}

// Principal builds the workflow actor for a fixture user.
func Principal(u models.User) authz.Principal {
	return authz.Principal{UserID: u.ID, Name: u.FullName, Role: u.Role}
}
