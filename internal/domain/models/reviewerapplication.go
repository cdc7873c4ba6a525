package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Reviewer application status values.
//
// in_progress -> approved | rejected, approved -> revoked. Rejected and
// revoked are both terminal but distinct: rejected was never accepted,
// revoked was approved and later removed.
const (
	ApplicationInProgress = "in_progress"
	ApplicationApproved   = "approved"
	ApplicationRejected   = "rejected"
	ApplicationRevoked    = "revoked"
)

// ReviewerApplication is a user's application to become a reviewer.
// The document id is the applicant's user id, so at most one application
// exists per user and a resubmission overwrites the prior one.
type ReviewerApplication struct {
	ID              primitive.ObjectID `bson:"_id" json:"id"` // applicant user id
	FullName        string             `bson:"full_name" json:"full_name"`
	Institution     string             `bson:"institution" json:"institution"`
	ExpertiseTags   []string           `bson:"expertise_tags" json:"expertise_tags"`
	YearsExperience int                `bson:"years_experience" json:"years_experience"`
	CVURL           string             `bson:"cv_url" json:"cv_url"`
	Publications    string             `bson:"publications,omitempty" json:"publications,omitempty"`
	AcceptedTerms   bool               `bson:"accepted_terms" json:"accepted_terms"`

	Status string `bson:"status" json:"status"`
	Reason string `bson:"reason,omitempty" json:"reason,omitempty"` // required when rejected or revoked

	SubmittedAt time.Time           `bson:"submitted_at" json:"submitted_at"`
	DecidedAt   *time.Time          `bson:"decided_at,omitempty" json:"decided_at,omitempty"`
	DecidedBy   *primitive.ObjectID `bson:"decided_by,omitempty" json:"decided_by,omitempty"`
}
