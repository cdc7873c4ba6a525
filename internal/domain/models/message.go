package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message types written by the notification dispatcher.
const (
	MessageCollaborationRequest = "collaboration-request"
	MessageReviewRequest        = "review-request"
	MessageUploadConfirmation   = "upload-confirmation"
	MessageSystemNotification   = "system-notification"
)

// Message is a notification in a user's inbox. After creation only the Read
// flag ever changes.
type Message struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RecipientID primitive.ObjectID `bson:"recipient_id" json:"recipient_id"`
	Type        string             `bson:"type" json:"type"`
	Payload     map[string]string  `bson:"payload,omitempty" json:"payload,omitempty"`
	Read        bool               `bson:"read" json:"read"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}
