// internal/app/store/messages/messagestore.go
package messagestore

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
	return &Store{c: db.Collection("messages")}
}

// Append inserts an unread message into the recipient's inbox.
func (s *Store) Append(ctx context.Context, recipientID primitive.ObjectID, msgType string, payload map[string]string) (models.Message, error) {
	msg := models.Message{
		ID:          primitive.NewObjectID(),
		RecipientID: recipientID,
		Type:        msgType,
		Payload:     payload,
		Read:        false,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, msg); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// ListByRecipient returns the recipient's messages, newest first.
func (s *Store) ListByRecipient(ctx context.Context, recipientID primitive.ObjectID, skip, limit int64) ([]models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if skip > 0 {
		opts.SetSkip(skip)
	}
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.c.Find(ctx, bson.M{"recipient_id": recipientID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var msgs []models.Message
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// CountUnread returns the number of unread messages for the recipient.
func (s *Store) CountUnread(ctx context.Context, recipientID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"recipient_id": recipientID, "read": false})
}

// MarkRead flips the read flag on one of the recipient's messages. The
// recipient filter stops a user marking someone else's message. Returns
// mongo.ErrNoDocuments when the message no longer exists; the dispatcher
// logs and swallows that.
func (s *Store) MarkRead(ctx context.Context, recipientID, messageID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": messageID, "recipient_id": recipientID},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Watch opens a change stream over message inserts. The feed hub uses it to
// push new notifications to connected clients. Delivery is at-least-once:
// the stream may replay after reconnect, and consumers tolerate duplicates.
func (s *Store) Watch(ctx context.Context) (*mongo.ChangeStream, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"operationType": "insert"}}},
	}
	return s.c.Watch(ctx, pipeline)
}
