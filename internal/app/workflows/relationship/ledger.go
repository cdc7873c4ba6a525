// internal/app/workflows/relationship/ledger.go
package relationship

import (
	"context"
	"fmt"

	"github.com/peerhub/peerhub/internal/app/store/audit"
	userstore "github.com/peerhub/peerhub/internal/app/store/users"
	"github.com/peerhub/peerhub/internal/app/system/auditlog"
	"github.com/peerhub/peerhub/internal/app/system/authz"
	"github.com/peerhub/peerhub/internal/app/system/metrics"
	"github.com/peerhub/peerhub/internal/app/system/notify"
	"github.com/peerhub/peerhub/internal/app/system/txn"
	"github.com/peerhub/peerhub/internal/app/workflows"
	"github.com/peerhub/peerhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const searchLimit = 20

// Ledger runs the friend-request workflow. Relationship state lives as id
// arrays on the two user documents (friends, pending_sent,
// pending_received); every transition updates both sides inside a
// transaction so the arrays stay mirror images of each other.
type Ledger struct {
	users    *userstore.Store
	client   *mongo.Client
	notifier *notify.Dispatcher
	audit    *auditlog.Logger
	log      *zap.Logger
}

func New(users *userstore.Store, client *mongo.Client, notifier *notify.Dispatcher, audit *auditlog.Logger, log *zap.Logger) *Ledger {
	return &Ledger{
		users:    users,
		client:   client,
		notifier: notifier,
		audit:    audit,
		log:      log,
	}
}

// Search finds users by name, excluding the actor, their friends, and
// anyone they already sent a request to. Users with a request pending
// toward the actor stay visible so the actor can find and respond.
func (l *Ledger) Search(ctx context.Context, actor authz.Principal, term string) ([]models.User, error) {
	self, err := l.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, workflows.WrapStore("user search", err)
	}

	exclude := make([]primitive.ObjectID, 0, 1+len(self.Friends)+len(self.PendingSent))
	exclude = append(exclude, self.ID)
	exclude = append(exclude, self.Friends...)
	exclude = append(exclude, self.PendingSent...)

	found, err := l.users.SearchByName(ctx, term, exclude, searchLimit)
	if err != nil {
		return nil, workflows.WrapStore("user search", err)
	}
	return found, nil
}

// SendRequest records a pending friend request from the actor to otherID:
// otherID joins the actor's pending_sent and the actor joins otherID's
// pending_received, atomically.
func (l *Ledger) SendRequest(ctx context.Context, actor authz.Principal, otherID primitive.ObjectID) error {
	if actor.UserID == otherID {
		return workflows.Validation("userId", "cannot send a friend request to yourself")
	}

	self, err := l.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return workflows.WrapStore("send friend request", err)
	}
	other, err := l.users.GetByID(ctx, otherID)
	if err != nil {
		return workflows.WrapStore("send friend request", err)
	}

	switch {
	case self.HasFriend(otherID):
		return fmt.Errorf("already friends with %s: %w", other.FullName, workflows.ErrDuplicate)
	case self.HasPendingSent(otherID):
		return fmt.Errorf("request to %s already pending: %w", other.FullName, workflows.ErrDuplicate)
	case self.HasPendingReceived(otherID):
		return fmt.Errorf("%s already sent you a request: %w", other.FullName, workflows.ErrDuplicate)
	}

	err = txn.WithTransaction(ctx, l.client, l.log, func(ctx context.Context) error {
		if err := l.users.AddPendingSent(ctx, self.ID, otherID); err != nil {
			return err
		}
		return l.users.AddPendingReceived(ctx, otherID, self.ID)
	})
	if err != nil {
		return workflows.WrapStore("send friend request", err)
	}

	l.notifier.Notify(ctx, otherID, models.MessageSystemNotification, map[string]string{
		"kind":      "friend_request",
		"from_id":   self.ID.Hex(),
		"from_name": self.FullName,
	})
	metrics.FriendRequests.WithLabelValues("sent").Inc()
	l.audit.Workflow(ctx, actor, audit.EventFriendRequestSent, otherID.Hex(), nil)
	return nil
}

// Respond resolves a pending request the actor received from otherID.
// Accepting adds each user to the other's friends set and clears the
// pending entries on both sides; rejecting only clears the pending entries.
func (l *Ledger) Respond(ctx context.Context, actor authz.Principal, otherID primitive.ObjectID, accept bool) error {
	self, err := l.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return workflows.WrapStore("respond to friend request", err)
	}
	if !self.HasPendingReceived(otherID) {
		return fmt.Errorf("no pending request from this user: %w", workflows.ErrNotFound)
	}

	err = txn.WithTransaction(ctx, l.client, l.log, func(ctx context.Context) error {
		if accept {
			if err := l.users.AddFriend(ctx, self.ID, otherID); err != nil {
				return err
			}
			if err := l.users.AddFriend(ctx, otherID, self.ID); err != nil {
				return err
			}
		}
		if err := l.users.RemovePending(ctx, self.ID, otherID); err != nil {
			return err
		}
		return l.users.RemovePending(ctx, otherID, self.ID)
	})
	if err != nil {
		return workflows.WrapStore("respond to friend request", err)
	}

	if accept {
		l.notifier.Notify(ctx, otherID, models.MessageSystemNotification, map[string]string{
			"kind":      "friend_request_accepted",
			"from_id":   self.ID.Hex(),
			"from_name": self.FullName,
		})
		metrics.FriendRequests.WithLabelValues("accepted").Inc()
		l.audit.Workflow(ctx, actor, audit.EventFriendRequestAccepted, otherID.Hex(), nil)
	} else {
		metrics.FriendRequests.WithLabelValues("rejected").Inc()
		l.audit.Workflow(ctx, actor, audit.EventFriendRequestRejected, otherID.Hex(), nil)
	}
	return nil
}

// Unfriend removes the friendship between the actor and otherID on both
// sides. No notification is sent; the other user simply stops seeing the
// actor in their friends list.
func (l *Ledger) Unfriend(ctx context.Context, actor authz.Principal, otherID primitive.ObjectID) error {
	self, err := l.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return workflows.WrapStore("unfriend", err)
	}
	if !self.HasFriend(otherID) {
		return fmt.Errorf("not friends with this user: %w", workflows.ErrNotFound)
	}

	err = txn.WithTransaction(ctx, l.client, l.log, func(ctx context.Context) error {
		if err := l.users.RemoveFriend(ctx, self.ID, otherID); err != nil {
			return err
		}
		return l.users.RemoveFriend(ctx, otherID, self.ID)
	})
	if err != nil {
		return workflows.WrapStore("unfriend", err)
	}

	metrics.FriendRequests.WithLabelValues("unfriended").Inc()
	l.audit.Workflow(ctx, actor, audit.EventUnfriended, otherID.Hex(), nil)
	return nil
}

// Friends returns the actor's friends as full user records, in the order
// they appear on the actor's document.
func (l *Ledger) Friends(ctx context.Context, actor authz.Principal) ([]models.User, error) {
	self, err := l.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, workflows.WrapStore("list friends", err)
	}
	return l.resolve(ctx, self.Friends)
}

// Pending returns the actor's outgoing and incoming pending requests as
// full user records.
func (l *Ledger) Pending(ctx context.Context, actor authz.Principal) (sent, received []models.User, err error) {
	self, err := l.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, nil, workflows.WrapStore("list pending requests", err)
	}
	if sent, err = l.resolve(ctx, self.PendingSent); err != nil {
		return nil, nil, err
	}
	if received, err = l.resolve(ctx, self.PendingReceived); err != nil {
		return nil, nil, err
	}
	return sent, received, nil
}

func (l *Ledger) resolve(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	byID, err := l.users.GetMany(ctx, ids)
	if err != nil {
		return nil, workflows.WrapStore("resolve users", err)
	}
	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// SweepAsymmetricPending removes pending entries whose mirror on the
// counterpart document is missing. One-sided entries can appear when the
// deployment has no transactions and a two-document write fails halfway;
// the periodic sweep restores the symmetry invariant. Returns the number
// of entries cleared.
func (l *Ledger) SweepAsymmetricPending(ctx context.Context) (int64, error) {
	users, err := l.users.ListWithPending(ctx)
	if err != nil {
		return 0, workflows.WrapStore("pending sweep", err)
	}

	byID := make(map[primitive.ObjectID]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	// Counterparts without pending entries of their own are not in the
	// ListWithPending result; fetch them separately.
	var missing []primitive.ObjectID
	seen := make(map[primitive.ObjectID]bool)
	for _, u := range users {
		for _, id := range append(append([]primitive.ObjectID{}, u.PendingSent...), u.PendingReceived...) {
			if _, ok := byID[id]; !ok && !seen[id] {
				seen[id] = true
				missing = append(missing, id)
			}
		}
	}
	extra, err := l.users.GetMany(ctx, missing)
	if err != nil {
		return 0, workflows.WrapStore("pending sweep", err)
	}
	for id, u := range extra {
		byID[id] = u
	}

	var repaired int64
	for _, u := range users {
		for _, otherID := range u.PendingSent {
			other, ok := byID[otherID]
			if ok && other.HasPendingReceived(u.ID) {
				continue
			}
			if err := l.users.RemovePendingSent(ctx, u.ID, otherID); err != nil {
				l.log.Warn("sweep: failed to clear one-sided pending_sent",
					zap.Error(err),
					zap.String("user_id", u.ID.Hex()),
					zap.String("other_id", otherID.Hex()),
				)
				continue
			}
			repaired++
		}
		for _, otherID := range u.PendingReceived {
			other, ok := byID[otherID]
			if ok && other.HasPendingSent(u.ID) {
				continue
			}
			if err := l.users.RemovePendingReceived(ctx, u.ID, otherID); err != nil {
				l.log.Warn("sweep: failed to clear one-sided pending_received",
					zap.Error(err),
					zap.String("user_id", u.ID.Hex()),
					zap.String("other_id", otherID.Hex()),
				)
				continue
			}
			repaired++
		}
	}

	if repaired > 0 {
		metrics.SweepRepairs.Add(float64(repaired))
		l.log.Info("pending sweep repaired one-sided entries", zap.Int64("repaired", repaired))
	}
	return repaired, nil
}
