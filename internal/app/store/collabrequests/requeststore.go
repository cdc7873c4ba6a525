// internal/app/store/collabrequests/requeststore.go
package requeststore

import (
	"context"
	"errors"
	"time"

	"github.com/peerhub/peerhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("collaboration_requests")}
}

// ErrDuplicatePending is returned when a pending request already exists for
// the (listing, requester) pair. A unique partial index backs the guard, so
// two racing creates cannot both land.
var ErrDuplicatePending = errors.New("a pending request already exists for this listing")

// Create inserts a pending request for (listingID, requesterID).
func (s *Store) Create(ctx context.Context, req models.CollaborationRequest) (models.CollaborationRequest, error) {
	req.ID = primitive.NewObjectID()
	req.Status = models.RequestPending
	req.CreatedAt = time.Now().UTC()
	req.RespondedAt = nil

	if _, err := s.c.InsertOne(ctx, req); err != nil {
		if wafflemongo.IsDup(err) {
			return models.CollaborationRequest{}, ErrDuplicatePending
		}
		return models.CollaborationRequest{}, err
	}
	return req, nil
}

// GetByID loads a request by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.CollaborationRequest, error) {
	var req models.CollaborationRequest
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

// Resolve moves a pending request to a terminal status (accepted/rejected)
// and stamps responded_at. The filter requires status=pending, so resolving
// an already-resolved request reports mongo.ErrNoDocuments and the caller
// turns that into an invalid-transition error.
func (s *Store) Resolve(ctx context.Context, id primitive.ObjectID, status string) (time.Time, error) {
	now := time.Now().UTC()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.RequestPending},
		bson.M{"$set": bson.M{"status": status, "responded_at": now}},
	)
	if err != nil {
		return time.Time{}, err
	}
	if res.MatchedCount == 0 {
		return time.Time{}, mongo.ErrNoDocuments
	}
	return now, nil
}

// ListFilter narrows List results.
type ListFilter struct {
	ListingID    *primitive.ObjectID
	ResearcherID *primitive.ObjectID // listing owner
	RequesterID  *primitive.ObjectID
	Status       string
}

// List returns requests matching the filter, newest first.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.CollaborationRequest, error) {
	filter := bson.M{}
	if f.ListingID != nil {
		filter["listing_id"] = *f.ListingID
	}
	if f.ResearcherID != nil {
		filter["researcher_id"] = *f.ResearcherID
	}
	if f.RequesterID != nil {
		filter["requester_id"] = *f.RequesterID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var reqs []models.CollaborationRequest
	if err := cur.All(ctx, &reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

// DeleteByListing removes all requests for a listing (listing deletion).
func (s *Store) DeleteByListing(ctx context.Context, listingID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"listing_id": listingID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
