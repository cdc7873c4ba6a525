// internal/app/store/listings/listingstore.go
package listingstore

import (
	"context"
	"regexp"
	"time"

	"github.com/peerhub/peerhub/internal/app/system/normalize"
	"github.com/peerhub/peerhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/microcosm-cc/bluemonday"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c        *mongo.Collection
	sanitize *bluemonday.Policy
}

func New(db *mongo.Database) *Store {
	// Summaries accept limited rich text from the listing form.
	return &Store{
		c:        db.Collection("research_listings"),
		sanitize: bluemonday.UGCPolicy(),
	}
}

// GetByID loads a listing by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.ResearchListing, error) {
	var l models.ResearchListing
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&l); err != nil {
		return nil, err
	}
	return &l, nil
}

// Create inserts a new listing owned by ownerID.
func (s *Store) Create(ctx context.Context, l models.ResearchListing) (models.ResearchListing, error) {
	l.ID = primitive.NewObjectID()
	l.Title = normalize.Name(l.Title)
	l.TitleCI = text.Fold(l.Title)
	l.Summary = s.sanitize.Sanitize(l.Summary)
	if l.Status == "" {
		l.Status = models.ListingOpen
	}
	l.Collaborators = nil // only the accept workflow adds collaborators

	now := time.Now().UTC()
	l.CreatedAt = now
	l.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, l); err != nil {
		return models.ResearchListing{}, err
	}
	return l, nil
}

// Update holds the owner-editable listing fields.
type Update struct {
	Title       string
	Summary     string
	Area        string
	Methodology string
	Tags        []string
	Status      string
	EndDate     *time.Time
}

// Apply updates the editable fields of a listing. The collaborator set is
// untouched; only the collaboration workflow mutates it.
func (s *Store) Apply(ctx context.Context, id primitive.ObjectID, upd Update) error {
	title := normalize.Name(upd.Title)
	set := bson.M{
		"title":       title,
		"title_ci":    text.Fold(title),
		"summary":     s.sanitize.Sanitize(upd.Summary),
		"area":        upd.Area,
		"methodology": upd.Methodology,
		"tags":        upd.Tags,
		"status":      normalize.Status(upd.Status),
		"updated_at":  time.Now().UTC(),
	}
	if upd.EndDate != nil {
		set["end_date"] = *upd.EndDate
	}

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes a listing.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// AddCollaborator unions userID into the listing's collaborator set.
// Replaying the union is a no-op, which accept relies on.
func (s *Store) AddCollaborator(ctx context.Context, listingID, userID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": listingID}, bson.M{
		"$addToSet": bson.M{"collaborators": userID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// RemoveCollaborator removes userID from the listing's collaborator set.
func (s *Store) RemoveCollaborator(ctx context.Context, listingID, userID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": listingID}, bson.M{
		"$pull": bson.M{"collaborators": userID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// ListFilter narrows List results.
type ListFilter struct {
	OwnerID        *primitive.ObjectID
	CollaboratorID *primitive.ObjectID
	Status         string
	Area           string
	Search         string
}

// List returns listings matching the filter, newest first.
func (s *Store) List(ctx context.Context, f ListFilter, skip, limit int64) ([]models.ResearchListing, error) {
	filter := bson.M{}
	if f.OwnerID != nil {
		filter["owner_id"] = *f.OwnerID
	}
	if f.CollaboratorID != nil {
		filter["collaborators"] = *f.CollaboratorID
	}
	if f.Status != "" {
		filter["status"] = normalize.Status(f.Status)
	}
	if f.Area != "" {
		filter["area"] = f.Area
	}
	if q := text.Fold(normalize.QueryParam(f.Search)); q != "" {
		filter["title_ci"] = bson.M{"$regex": regexp.QuoteMeta(q)}
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if skip > 0 {
		opts.SetSkip(skip)
	}
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var listings []models.ResearchListing
	if err := cur.All(ctx, &listings); err != nil {
		return nil, err
	}
	return listings, nil
}
