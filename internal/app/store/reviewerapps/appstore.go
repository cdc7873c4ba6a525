// internal/app/store/reviewerapps/appstore.go
package reviewerappstore

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
	return &Store{c: db.Collection("reviewer_applications")}
}

// Get loads the application for applicantID. The document id is the
// applicant's user id, so at most one exists.
func (s *Store) Get(ctx context.Context, applicantID primitive.ObjectID) (*models.ReviewerApplication, error) {
	var app models.ReviewerApplication
	if err := s.c.FindOne(ctx, bson.M{"_id": applicantID}).Decode(&app); err != nil {
		return nil, err
	}
	return &app, nil
}

// Upsert writes the full application document at id=applicantID with
// status=in_progress, replacing any prior rejected or in-progress one.
func (s *Store) Upsert(ctx context.Context, app models.ReviewerApplication) (models.ReviewerApplication, error) {
	app.Status = models.ApplicationInProgress
	app.Reason = ""
	app.SubmittedAt = time.Now().UTC()
	app.DecidedAt = nil
	app.DecidedBy = nil

	opts := options.Replace().SetUpsert(true)
	if _, err := s.c.ReplaceOne(ctx, bson.M{"_id": app.ID}, app, opts); err != nil {
		return models.ReviewerApplication{}, err
	}
	return app, nil
}

// Transition moves the application from one status to another, recording
// who decided and why. The filter pins the expected current status, so a
// transition from any other state matches nothing and the caller reports an
// invalid transition without mutating the document.
func (s *Store) Transition(ctx context.Context, applicantID primitive.ObjectID, from, to, reason string, decidedBy primitive.ObjectID) error {
	now := time.Now().UTC()
	set := bson.M{
		"status":     to,
		"decided_at": now,
		"decided_by": decidedBy,
	}
	if reason != "" {
		set["reason"] = reason
	}

	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": applicantID, "status": from},
		bson.M{"$set": set},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes the application entirely (self-service withdraw). The user
// returns to the "no application" state and may submit again.
func (s *Store) Delete(ctx context.Context, applicantID primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": applicantID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// ListByStatus returns applications with the given status (or all when
// status is empty), newest first, for admin dashboards.
func (s *Store) ListByStatus(ctx context.Context, status string) ([]models.ReviewerApplication, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().SetSort(bson.D{{Key: "submitted_at", Value: -1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var apps []models.ReviewerApplication
	if err := cur.All(ctx, &apps); err != nil {
		return nil, err
	}
	return apps, nil
}

// CountByStatus returns counts per status for the admin dashboard header.
func (s *Store) CountByStatus(ctx context.Context) (map[string]int64, error) {
	cur, err := s.c.Aggregate(ctx, []bson.M{
		{"$group": bson.M{"_id": "$status", "n": bson.M{"$sum": 1}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	counts := make(map[string]int64)
	for cur.Next(ctx) {
		var row struct {
			ID string `bson:"_id"`
			N  int64  `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		counts[row.ID] = row.N
	}
	return counts, cur.Err()
}
