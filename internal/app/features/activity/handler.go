// internal/app/features/activity/handler.go
package activity

import (
	"net/http"
	"time"

	"github.com/peerhub/peerhub/internal/app/store/audit"
	"github.com/peerhub/peerhub/internal/app/system/httpjson"
	"github.com/peerhub/peerhub/internal/app/system/paging"
	"github.com/peerhub/peerhub/internal/app/workflows"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the admin activity log: a filtered, paged read over the
// audit trail. Admin-only; the router enforces the role.
type Handler struct {
	Audit *audit.Store
	Log   *zap.Logger
}

func NewHandler(auditStore *audit.Store, logger *zap.Logger) *Handler {
	return &Handler{Audit: auditStore, Log: logger}
}

type eventView struct {
	ID            string            `json:"id"`
	Timestamp     time.Time         `json:"timestamp"`
	Category      string            `json:"category"`
	EventType     string            `json:"event_type"`
	ActorID       string            `json:"actor_id,omitempty"`
	ActorRole     string            `json:"actor_role,omitempty"`
	ActorName     string            `json:"actor_name,omitempty"`
	UserID        string            `json:"user_id,omitempty"`
	Target        string            `json:"target,omitempty"`
	IP            string            `json:"ip,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Success       bool              `json:"success"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Details       map[string]string `json:"details,omitempty"`
}

func viewOf(e audit.Event) eventView {
	v := eventView{
		ID:            e.ID.Hex(),
		Timestamp:     e.Timestamp,
		Category:      e.Category,
		EventType:     e.EventType,
		ActorRole:     e.ActorRole,
		ActorName:     e.ActorName,
		Target:        e.Target,
		IP:            e.IP,
		CorrelationID: e.CorrelationID,
		Success:       e.Success,
		FailureReason: e.FailureReason,
		Details:       e.Details,
	}
	if e.ActorID != nil {
		v.ActorID = e.ActorID.Hex()
	}
	if e.UserID != nil {
		v.UserID = e.UserID.Hex()
	}
	return v
}

// ServeQuery handles GET /activity. Filters: category, event_type, actor
// (hex id), since, until (RFC 3339), plus the standard start paging.
func (h *Handler) ServeQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := audit.QueryFilter{
		Category:  q.Get("category"),
		EventType: q.Get("event_type"),
	}

	if actor := q.Get("actor"); actor != "" {
		id, err := primitive.ObjectIDFromHex(actor)
		if err != nil {
			httpjson.WriteError(w, h.Log, workflows.Validation("actor", "malformed actor id"))
			return
		}
		filter.ActorID = &id
	}
	if since := q.Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			httpjson.WriteError(w, h.Log, workflows.Validation("since", "must be an RFC 3339 timestamp"))
			return
		}
		filter.StartTime = &t
	}
	if until := q.Get("until"); until != "" {
		t, err := time.Parse(time.RFC3339, until)
		if err != nil {
			httpjson.WriteError(w, h.Log, workflows.Validation("until", "must be an RFC 3339 timestamp"))
			return
		}
		filter.EndTime = &t
	}

	start := paging.ParseStart(r)
	filter.Offset = int64(start - 1)
	filter.Limit = paging.LimitPlusOne()

	events, err := h.Audit.Query(r.Context(), filter)
	if err != nil {
		httpjson.WriteError(w, h.Log, workflows.WrapStore("query activity", err))
		return
	}
	page := paging.TrimPage(&events, start)

	views := make([]eventView, 0, len(events))
	for _, e := range events {
		views = append(views, viewOf(e))
	}

	httpjson.Write(w, http.StatusOK, map[string]any{
		"events":   views,
		"has_prev": page.HasPrev,
		"has_next": page.HasNext,
	})
}
