// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
Errors are aggregated so every problem is visible and startup can fail
fast. Two of these indexes are invariant enforcement, not performance:
the pending-request partial unique index and the collaboration pair index
are what make the workflow guarantees hold under concurrent writers.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureUsers(ctx, db); err != nil {
		problems = append(problems, "users: "+err.Error())
	}
	if err := ensureListings(ctx, db); err != nil {
		problems = append(problems, "research_listings: "+err.Error())
	}
	if err := ensureCollaborationRequests(ctx, db); err != nil {
		problems = append(problems, "collaboration_requests: "+err.Error())
	}
	if err := ensureCollaborations(ctx, db); err != nil {
		problems = append(problems, "collaborations: "+err.Error())
	}
	if err := ensureMessages(ctx, db); err != nil {
		problems = append(problems, "messages: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: ensure a set of desired indexes on one collection             */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name string `bson:"name"`
	Key  bson.D `bson:"key"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, desired []mongo.IndexModel) error {
	existing := map[string]existingIndex{} // key signature -> index
	cur, err := coll.Indexes().List(ctx)
	if err == nil {
		defer cur.Close(ctx)
		for cur.Next(ctx) {
			var idx existingIndex
			if err := cur.Decode(&idx); err != nil {
				zap.L().Warn("failed to decode existing index",
					zap.String("collection", coll.Name()),
					zap.Error(err))
				continue
			}
			existing[keySig(idx.Key)] = idx
		}
	}

	var errs []string
	for _, m := range desired {
		name := ""
		if m.Options != nil && m.Options.Name != nil {
			name = *m.Options.Name
		}
		sig := keySig(m.Keys.(bson.D))

		if ex, ok := existing[sig]; ok {
			zap.L().Debug("reusing existing index",
				zap.String("collection", coll.Name()),
				zap.String("name", ex.Name),
				zap.String("keys", sig))
			continue
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if isDuplicateKeyErr(err) {
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index, duplicates present", coll.Name(), name))
			} else {
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), name, err))
			}
			continue
		}
		zap.L().Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                             */
/* -------------------------------------------------------------------------- */

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("users")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Email is the sign-in key; must be globally unique.
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_email"),
		},
		// Name search path (folded prefix/substring scans).
		{
			Keys:    bson.D{{Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_users_fullnameci__id"),
		},
		// Admin listings by role.
		{
			Keys:    bson.D{{Key: "role", Value: 1}, {Key: "full_name_ci", Value: 1}},
			Options: options.Index().SetName("idx_users_role_fullnameci"),
		},
	})
}

func ensureListings(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("research_listings")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Browse feed: status filter, newest first.
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_listings_status_created"),
		},
		// "My listings" view.
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_listings_owner_created"),
		},
		// "Listings I collaborate on" (multikey over the id array).
		{
			Keys:    bson.D{{Key: "collaborators", Value: 1}},
			Options: options.Index().SetName("idx_listings_collaborators"),
		},
		// Title search path.
		{
			Keys:    bson.D{{Key: "title_ci", Value: 1}},
			Options: options.Index().SetName("idx_listings_titleci"),
		},
		{
			Keys:    bson.D{{Key: "area", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_listings_area_status"),
		},
	})
}

func ensureCollaborationRequests(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("collaboration_requests")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// At most one PENDING request per (listing, requester). Partial so
		// resolved requests keep their history without tripping the guard.
		{
			Keys: bson.D{
				{Key: "listing_id", Value: 1},
				{Key: "requester_id", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "status", Value: "pending"}}).
				SetName("uniq_requests_listing_requester_pending"),
		},
		// Owner's pending queue.
		{
			Keys: bson.D{
				{Key: "researcher_id", Value: 1},
				{Key: "status", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_requests_owner_status_created"),
		},
		// Requester's own request history.
		{
			Keys:    bson.D{{Key: "requester_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_requests_requester_created"),
		},
		// Cascade deletes when a listing goes away.
		{
			Keys:    bson.D{{Key: "listing_id", Value: 1}},
			Options: options.Index().SetName("idx_requests_listing"),
		},
	})
}

func ensureCollaborations(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("collaborations")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Exactly one collaboration per (listing, collaborator); the accept
		// upsert keys on this pair.
		{
			Keys: bson.D{
				{Key: "listing_id", Value: 1},
				{Key: "collaborator_id", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uniq_collabs_listing_collaborator"),
		},
		{
			Keys:    bson.D{{Key: "collaborator_id", Value: 1}, {Key: "joined_at", Value: -1}},
			Options: options.Index().SetName("idx_collabs_collaborator_joined"),
		},
		{
			Keys:    bson.D{{Key: "researcher_id", Value: 1}, {Key: "joined_at", Value: -1}},
			Options: options.Index().SetName("idx_collabs_owner_joined"),
		},
	})
}

func ensureMessages(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("messages")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Inbox listing, newest first.
		{
			Keys:    bson.D{{Key: "recipient_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_messages_recipient_created"),
		},
		// Unread badge count.
		{
			Keys: bson.D{
				{Key: "recipient_id", Value: 1},
				{Key: "read", Value: 1},
			},
			Options: options.Index().SetName("idx_messages_recipient_read"),
		},
	})
}
