package auditlog

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/peerhub/peerhub/internal/app/store/audit"
	"github.com/peerhub/peerhub/internal/app/system/authz"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestLogger_NilLogger(t *testing.T) {
	var logger *Logger
	ctx := context.Background()

	// Must not panic; nil logger is a no-op.
	logger.Log(ctx, audit.Event{EventType: "test"})
	logger.Workflow(ctx, authz.Principal{}, audit.EventListingPosted, "", nil)
}

func TestLogger_ConfigOff_NoStoreWrite(t *testing.T) {
	// A nil store would panic on write; config "off" must never reach it.
	logger := New(nil, zap.NewNop(), Config{Auth: "off", Workflow: "off"})

	logger.Log(context.Background(), audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
	})
	logger.Log(context.Background(), audit.Event{
		Category:  audit.CategoryWorkflow,
		EventType: audit.EventListingPosted,
	})
}

func TestLogger_ConfigLog_NoStoreWrite(t *testing.T) {
	// "log" writes only to zap; a nil store proves the DB path is skipped.
	logger := New(nil, zap.NewNop(), Config{Auth: "log", Workflow: "log"})

	actorID := primitive.NewObjectID()
	logger.Log(context.Background(), audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		ActorID:   &actorID,
		Success:   true,
	})
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		want   string
	}{
		{name: "x-forwarded-for", header: map[string]string{"X-Forwarded-For": "203.0.113.9"}, want: "203.0.113.9"},
		{name: "x-real-ip", header: map[string]string{"X-Real-IP": "198.51.100.2"}, want: "198.51.100.2"},
		{name: "remote addr", header: nil, want: "192.0.2.1:1234"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.header {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLogger_Logout_InvalidID(t *testing.T) {
	logger := New(nil, zap.NewNop(), Config{Auth: "log"})
	r := httptest.NewRequest("POST", "/logout", nil)

	// Malformed session id must not panic; the event is recorded actorless.
	logger.Logout(context.Background(), r, "not-a-hex-id")
}
