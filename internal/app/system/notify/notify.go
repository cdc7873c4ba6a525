// internal/app/system/notify/notify.go
package notify

import (
	"context"

	messagestore "github.com/peerhub/peerhub/internal/app/store/messages"
	"github.com/peerhub/peerhub/internal/app/system/metrics"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Dispatcher appends notification messages to user inboxes. Delivery is
// fire-and-forget: a failed append is logged, counted, and dropped, so a
// notification outage never rolls back the workflow transition that
// produced it.
type Dispatcher struct {
	messages *messagestore.Store
	log      *zap.Logger
}

func NewDispatcher(messages *messagestore.Store, log *zap.Logger) *Dispatcher {
	return &Dispatcher{messages: messages, log: log}
}

// Notify writes one message to recipientID's inbox. A nil Dispatcher is a
// no-op so workflow tests can skip the wiring.
func (d *Dispatcher) Notify(ctx context.Context, recipientID primitive.ObjectID, msgType string, payload map[string]string) {
	if d == nil {
		return
	}
	if _, err := d.messages.Append(ctx, recipientID, msgType, payload); err != nil {
		metrics.NotificationFailures.Inc()
		d.log.Error("notification dropped",
			zap.Error(err),
			zap.String("recipient_id", recipientID.Hex()),
			zap.String("type", msgType),
		)
		return
	}
	metrics.NotificationsWritten.Inc()
}

// MarkRead flips the read flag on one of the recipient's messages. Missing
// messages are logged and swallowed; marking an already-read message is a
// successful no-op.
func (d *Dispatcher) MarkRead(ctx context.Context, recipientID, messageID primitive.ObjectID) {
	if d == nil {
		return
	}
	if err := d.messages.MarkRead(ctx, recipientID, messageID); err != nil {
		d.log.Warn("mark read skipped",
			zap.Error(err),
			zap.String("recipient_id", recipientID.Hex()),
			zap.String("message_id", messageID.Hex()),
		)
	}
}
