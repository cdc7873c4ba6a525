package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents researchers, reviewers, and admins.
//
// Friend state lives on the user document as three id sets. The ledger keeps
// them symmetric: an id in PendingSent on one side always has a matching
// PendingReceived entry on the other, and an id never appears in Friends and
// a pending set for the same counterpart at once.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName   string             `bson:"full_name" json:"full_name"`
	FullNameCI string             `bson:"full_name_ci" json:"-"` // lowercase, diacritics-stripped
	Email      string             `bson:"email" json:"email"`
	AuthMethod string             `bson:"auth_method,omitempty" json:"auth_method,omitempty"`
	Role       string             `bson:"role" json:"role"` // researcher | reviewer | admin | revokedResearcher
	Status     string             `bson:"status,omitempty" json:"status,omitempty"`

	PasswordHash string `bson:"password_hash,omitempty" json:"-"`

	Friends         []primitive.ObjectID `bson:"friends,omitempty" json:"friends,omitempty"`
	PendingSent     []primitive.ObjectID `bson:"pending_sent,omitempty" json:"pending_sent,omitempty"`
	PendingReceived []primitive.ObjectID `bson:"pending_received,omitempty" json:"pending_received,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// HasFriend reports whether other is in the user's friends set.
func (u *User) HasFriend(other primitive.ObjectID) bool {
	return containsID(u.Friends, other)
}

// HasPendingSent reports whether the user has an outstanding request to other.
func (u *User) HasPendingSent(other primitive.ObjectID) bool {
	return containsID(u.PendingSent, other)
}

// HasPendingReceived reports whether other has an outstanding request to the user.
func (u *User) HasPendingReceived(other primitive.ObjectID) bool {
	return containsID(u.PendingReceived, other)
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
