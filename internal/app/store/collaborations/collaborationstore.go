// internal/app/store/collaborations/collaborationstore.go
package collaborationstore

import (
	"context"
	"time"

	"github.com/peerhub/peerhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("collaborations")}
}

// Upsert creates the collaboration for (listingID, collaboratorID) if it
// does not exist yet. Keyed on the pair, so replaying an accept (or two
// accepts racing) yields exactly one document either way.
func (s *Store) Upsert(ctx context.Context, listingID, researcherID, collaboratorID primitive.ObjectID) (models.Collaboration, error) {
	filter := bson.M{
		"listing_id":      listingID,
		"collaborator_id": collaboratorID,
	}
	update := bson.M{
		"$setOnInsert": bson.M{
			"listing_id":      listingID,
			"researcher_id":   researcherID,
			"collaborator_id": collaboratorID,
			"status":          models.CollaborationActive,
			"joined_at":       time.Now().UTC(),
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var collab models.Collaboration
	if err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&collab); err != nil {
		return models.Collaboration{}, err
	}
	return collab, nil
}

// Exists reports whether an active collaboration exists for the pair.
func (s *Store) Exists(ctx context.Context, listingID, collaboratorID primitive.ObjectID) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{
		"listing_id":      listingID,
		"collaborator_id": collaboratorID,
	}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListForUser returns collaborations where the user is the collaborator or
// the listing owner, newest first.
func (s *Store) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Collaboration, error) {
	filter := bson.M{"$or": []bson.M{
		{"collaborator_id": userID},
		{"researcher_id": userID},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "joined_at", Value: -1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var collabs []models.Collaboration
	if err := cur.All(ctx, &collabs); err != nil {
		return nil, err
	}
	return collabs, nil
}

// CountByListing returns the number of collaborations on a listing.
func (s *Store) CountByListing(ctx context.Context, listingID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"listing_id": listingID})
}

// Delete removes the collaboration for the pair (collaborator leaves or is
// removed by the owner).
func (s *Store) Delete(ctx context.Context, listingID, collaboratorID primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{
		"listing_id":      listingID,
		"collaborator_id": collaboratorID,
	})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// DeleteByListing removes all collaborations for a listing.
func (s *Store) DeleteByListing(ctx context.Context, listingID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"listing_id": listingID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
