// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/peerhub/peerhub/internal/app/system/authz"
	"github.com/peerhub/peerhub/internal/app/system/normalize"
	"github.com/peerhub/peerhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

var (
	// ErrDuplicateEmail is returned when creating a user with an email that already exists.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	errBadRole        = errors.New(`role must be "researcher"|"reviewer"|"admin"|"revokedResearcher"`)
)

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail looks up a user by case-insensitive email.
// Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user after normalizing and validating fields.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.FullName = normalize.Name(u.FullName)
	u.FullNameCI = text.Fold(u.FullName)
	u.Email = normalize.Email(u.Email)
	if u.Role == "" {
		u.Role = authz.RoleResearcher
	}
	if !authz.ValidRole(u.Role) {
		return models.User{}, errBadRole
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// UpsertSignIn creates the user document on first sign-in and refreshes the
// display name and auth method on every later one. Role is never touched
// here: it lives on the document and only reviewer transitions change it.
func (s *Store) UpsertSignIn(ctx context.Context, email, fullName, authMethod string) (*models.User, error) {
	email = normalize.Email(email)
	fullName = normalize.Name(fullName)
	now := time.Now().UTC()

	update := bson.M{
		"$set": bson.M{
			"full_name":    fullName,
			"full_name_ci": text.Fold(fullName),
			"auth_method":  normalize.AuthMethod(authMethod),
			"updated_at":   now,
		},
		"$setOnInsert": bson.M{
			"email":      email,
			"role":       authz.RoleResearcher,
			"created_at": now,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var u models.User
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"email": email}, update, opts).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// SetRole updates a user's role.
func (s *Store) SetRole(ctx context.Context, userID primitive.ObjectID, role string) error {
	if !authz.ValidRole(role) {
		return errBadRole
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$set": bson.M{"role": role, "updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SetPasswordHash stores a bcrypt hash for password sign-in.
func (s *Store) SetPasswordHash(ctx context.Context, userID primitive.ObjectID, hash string) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$set": bson.M{"password_hash": hash, "updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

/* ------------------------- friend/pending field ops ------------------------ */

// The ledger composes these per-document mutations inside a transaction.
// All of them are narrow array ops ($addToSet/$pull) so concurrent flows
// touching the same user document cannot clobber unrelated fields, and
// replaying a step is a no-op.

// AddPendingSent unions otherID into userID's pending_sent set.
func (s *Store) AddPendingSent(ctx context.Context, userID, otherID primitive.ObjectID) error {
	return s.updateEdge(ctx, userID, bson.M{"$addToSet": bson.M{"pending_sent": otherID}})
}

// AddPendingReceived unions otherID into userID's pending_received set.
func (s *Store) AddPendingReceived(ctx context.Context, userID, otherID primitive.ObjectID) error {
	return s.updateEdge(ctx, userID, bson.M{"$addToSet": bson.M{"pending_received": otherID}})
}

// RemovePending removes otherID from both of userID's pending sets.
func (s *Store) RemovePending(ctx context.Context, userID, otherID primitive.ObjectID) error {
	return s.updateEdge(ctx, userID, bson.M{"$pull": bson.M{
		"pending_sent":     otherID,
		"pending_received": otherID,
	}})
}

// RemovePendingSent removes otherID from userID's pending_sent set only.
// The reconciliation sweep repairs one direction at a time; pulling from
// both sets here could delete a valid entry in the other direction.
func (s *Store) RemovePendingSent(ctx context.Context, userID, otherID primitive.ObjectID) error {
	return s.updateEdge(ctx, userID, bson.M{"$pull": bson.M{"pending_sent": otherID}})
}

// RemovePendingReceived removes otherID from userID's pending_received set only.
func (s *Store) RemovePendingReceived(ctx context.Context, userID, otherID primitive.ObjectID) error {
	return s.updateEdge(ctx, userID, bson.M{"$pull": bson.M{"pending_received": otherID}})
}

// AddFriend unions otherID into userID's friends set.
func (s *Store) AddFriend(ctx context.Context, userID, otherID primitive.ObjectID) error {
	return s.updateEdge(ctx, userID, bson.M{"$addToSet": bson.M{"friends": otherID}})
}

// RemoveFriend removes otherID from userID's friends set.
func (s *Store) RemoveFriend(ctx context.Context, userID, otherID primitive.ObjectID) error {
	return s.updateEdge(ctx, userID, bson.M{"$pull": bson.M{"friends": otherID}})
}

func (s *Store) updateEdge(ctx context.Context, userID primitive.ObjectID, update bson.M) error {
	update["$set"] = bson.M{"updated_at": time.Now().UTC()}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

/* --------------------------------- queries -------------------------------- */

// SearchByName returns users whose folded full name contains the folded
// term, excluding the given ids. Results come back in store scan order.
func (s *Store) SearchByName(ctx context.Context, term string, exclude []primitive.ObjectID, limit int64) ([]models.User, error) {
	folded := text.Fold(normalize.QueryParam(term))
	if folded == "" {
		return nil, nil
	}

	filter := bson.M{
		"full_name_ci": bson.M{"$regex": regexp.QuoteMeta(folded)},
	}
	if len(exclude) > 0 {
		filter["_id"] = bson.M{"$nin": exclude}
	}

	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// ListWithPending returns users that have at least one pending entry in
// either direction. The reconciliation sweep walks this set.
func (s *Store) ListWithPending(ctx context.Context) ([]models.User, error) {
	filter := bson.M{"$or": []bson.M{
		{"pending_sent.0": bson.M{"$exists": true}},
		{"pending_received.0": bson.M{"$exists": true}},
	}}
	cur, err := s.c.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// GetMany loads users by id, returned keyed by id.
func (s *Store) GetMany(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error) {
	result := make(map[primitive.ObjectID]models.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}
