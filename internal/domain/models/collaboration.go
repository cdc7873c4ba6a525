package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Collaboration request status values. Accepted and rejected are terminal.
const (
	RequestPending  = "pending"
	RequestAccepted = "accepted"
	RequestRejected = "rejected"
)

// CollaborationRequest tracks one researcher's request to join a listing.
// At most one pending request exists per (listing_id, requester_id) pair;
// a unique partial index on the collection enforces it.
type CollaborationRequest struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ListingID     primitive.ObjectID `bson:"listing_id" json:"listing_id"`
	ResearcherID  primitive.ObjectID `bson:"researcher_id" json:"researcher_id"` // listing owner
	RequesterID   primitive.ObjectID `bson:"requester_id" json:"requester_id"`
	RequesterName string             `bson:"requester_name" json:"requester_name"`
	Status        string             `bson:"status" json:"status"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	RespondedAt   *time.Time         `bson:"responded_at,omitempty" json:"responded_at,omitempty"`
}

// CollaborationActive is the only collaboration status.
const CollaborationActive = "active"

// Collaboration records an accepted collaborator on a listing. Created only
// as a side effect of an accepted CollaborationRequest; exactly one document
// per (listing_id, collaborator_id).
type Collaboration struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ListingID      primitive.ObjectID `bson:"listing_id" json:"listing_id"`
	ResearcherID   primitive.ObjectID `bson:"researcher_id" json:"researcher_id"` // listing owner
	CollaboratorID primitive.ObjectID `bson:"collaborator_id" json:"collaborator_id"`
	Status         string             `bson:"status" json:"status"`
	JoinedAt       time.Time          `bson:"joined_at" json:"joined_at"`
}
