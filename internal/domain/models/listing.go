package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Listing status values.
const (
	ListingOpen      = "open"
	ListingClosed    = "closed"
	ListingCompleted = "completed"
)

// ResearchListing is a research project posted by a researcher looking for
// collaborators. The owner never appears in Collaborators.
type ResearchListing struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID     primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	Title       string             `bson:"title" json:"title"`
	TitleCI     string             `bson:"title_ci" json:"-"`
	Summary     string             `bson:"summary" json:"summary"` // sanitized rich text
	Area        string             `bson:"area,omitempty" json:"area,omitempty"`
	Methodology string             `bson:"methodology,omitempty" json:"methodology,omitempty"`
	Tags        []string           `bson:"tags,omitempty" json:"tags,omitempty"`
	Status      string             `bson:"status" json:"status"`
	EndDate     *time.Time         `bson:"end_date,omitempty" json:"end_date,omitempty"`

	Collaborators []primitive.ObjectID `bson:"collaborators,omitempty" json:"collaborators,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// HasCollaborator reports whether userID is in the listing's collaborator set.
func (l *ResearchListing) HasCollaborator(userID primitive.ObjectID) bool {
	return containsID(l.Collaborators, userID)
}
