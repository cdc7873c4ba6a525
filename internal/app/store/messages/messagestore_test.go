package messagestore

import (
	"testing"
	"time"

	"github.com/peerhub/peerhub/internal/domain/models"
	"github.com/peerhub/peerhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestAppendAndCountUnread(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	recipient := primitive.NewObjectID()
	other := primitive.NewObjectID()

	msg, err := store.Append(ctx, recipient, models.MessageSystemNotification, map[string]string{"kind": "friend_request"})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if msg.Read {
		t.Error("new messages must start unread")
	}
	if _, err := store.Append(ctx, other, models.MessageSystemNotification, nil); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	n, err := store.CountUnread(ctx, recipient)
	if err != nil {
		t.Fatalf("CountUnread failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 unread for recipient, got %d", n)
	}
}

func TestMarkRead_RecipientScoped(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	recipient := primitive.NewObjectID()
	intruder := primitive.NewObjectID()

	msg, err := store.Append(ctx, recipient, models.MessageSystemNotification, nil)
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	// Another user cannot mark the message read.
	if err := store.MarkRead(ctx, intruder, msg.ID); err != mongo.ErrNoDocuments {
		t.Fatalf("expected mongo.ErrNoDocuments for wrong recipient, got %v", err)
	}
	n, _ := store.CountUnread(ctx, recipient)
	if n != 1 {
		t.Fatalf("expected message still unread, got %d unread", n)
	}

	if err := store.MarkRead(ctx, recipient, msg.ID); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	n, err = store.CountUnread(ctx, recipient)
	if err != nil {
		t.Fatalf("CountUnread failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 unread after MarkRead, got %d", n)
	}
}

func TestListByRecipient_NewestFirstWithPaging(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	recipient := primitive.NewObjectID()
	var last models.Message
	for i := 0; i < 3; i++ {
		// created_at is stored with millisecond precision; keep inserts apart
		// so the sort order is deterministic.
		time.Sleep(2 * time.Millisecond)
		msg, err := store.Append(ctx, recipient, models.MessageSystemNotification, nil)
		if err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		last = msg
	}

	msgs, err := store.ListByRecipient(ctx, recipient, 0, 2)
	if err != nil {
		t.Fatalf("ListByRecipient failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].ID != last.ID {
		t.Error("expected newest message first")
	}

	rest, err := store.ListByRecipient(ctx, recipient, 2, 2)
	if err != nil {
		t.Fatalf("ListByRecipient failed: %v", err)
	}
	if len(rest) != 1 {
		t.Errorf("expected 1 message on the second page, got %d", len(rest))
	}
}
