// internal/app/features/listings/handler.go
package listings

import (
	"net/http"
	"time"

	"github.com/peerhub/peerhub/internal/app/store/audit"
	requeststore "github.com/peerhub/peerhub/internal/app/store/collabrequests"
	collaborationstore "github.com/peerhub/peerhub/internal/app/store/collaborations"
	listingstore "github.com/peerhub/peerhub/internal/app/store/listings"
	"github.com/peerhub/peerhub/internal/app/system/auditlog"
	"github.com/peerhub/peerhub/internal/app/system/authz"
	"github.com/peerhub/peerhub/internal/app/system/httpjson"
	"github.com/peerhub/peerhub/internal/app/system/paging"
	"github.com/peerhub/peerhub/internal/app/workflows"
	"github.com/peerhub/peerhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the research listing CRUD endpoints. Collaborator membership
// is never edited here; only the collaboration workflow touches it.
type Handler struct {
	Listings *listingstore.Store
	Requests *requeststore.Store
	Collabs  *collaborationstore.Store
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(
	listings *listingstore.Store,
	requests *requeststore.Store,
	collabs *collaborationstore.Store,
	auditLog *auditlog.Logger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Listings: listings,
		Requests: requests,
		Collabs:  collabs,
		AuditLog: auditLog,
		Log:      logger,
	}
}

type listingBody struct {
	Title       string     `json:"title"`
	Summary     string     `json:"summary"`
	Area        string     `json:"area"`
	Methodology string     `json:"methodology"`
	Tags        []string   `json:"tags"`
	Status      string     `json:"status"`
	EndDate     *time.Time `json:"end_date"`
}

func (b listingBody) validate() error {
	fields := map[string]string{}
	if b.Title == "" {
		fields["title"] = "title is required"
	}
	if b.Summary == "" {
		fields["summary"] = "summary is required"
	}
	switch b.Status {
	case "", models.ListingOpen, models.ListingClosed, models.ListingCompleted:
	default:
		fields["status"] = "status must be open, closed, or completed"
	}
	if len(fields) > 0 {
		return &workflows.ValidationError{Fields: fields}
	}
	return nil
}

func pathListingID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "listingID"))
	if err != nil {
		httpjson.Write(w, http.StatusUnprocessableEntity, map[string]string{"error": "malformed listing id"})
		return primitive.NilObjectID, false
	}
	return id, true
}

// ServeCreate handles POST /listings.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.FromRequest(r)
	if !ok {
		httpjson.Write(w, http.StatusUnauthorized, map[string]string{"error": "sign in required"})
		return
	}

	var body listingBody
	if !httpjson.Decode(w, r, &body) {
		return
	}
	if err := body.validate(); err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}

	created, err := h.Listings.Create(r.Context(), models.ResearchListing{
		OwnerID:     actor.UserID,
		Title:       body.Title,
		Summary:     body.Summary,
		Area:        body.Area,
		Methodology: body.Methodology,
		Tags:        body.Tags,
		Status:      body.Status,
		EndDate:     body.EndDate,
	})
	if err != nil {
		httpjson.WriteError(w, h.Log, workflows.WrapStore("create listing", err))
		return
	}

	h.AuditLog.Workflow(r.Context(), actor, audit.EventListingPosted, created.ID.Hex(), map[string]string{
		"title": created.Title,
	})
	httpjson.Write(w, http.StatusCreated, created)
}

// ServeList handles GET /listings. Filters: status, area, q, mine,
// collaborating. Pages with the standard start look-ahead.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.FromRequest(r)
	if !ok {
		httpjson.Write(w, http.StatusUnauthorized, map[string]string{"error": "sign in required"})
		return
	}

	q := r.URL.Query()
	filter := listingstore.ListFilter{
		Status: q.Get("status"),
		Area:   q.Get("area"),
		Search: q.Get("q"),
	}
	if q.Get("mine") == "true" {
		filter.OwnerID = &actor.UserID
	}
	if q.Get("collaborating") == "true" {
		filter.CollaboratorID = &actor.UserID
	}

	start := paging.ParseStart(r)
	rows, err := h.Listings.List(r.Context(), filter, int64(start-1), paging.LimitPlusOne())
	if err != nil {
		httpjson.WriteError(w, h.Log, workflows.WrapStore("list listings", err))
		return
	}
	page := paging.TrimPage(&rows, start)

	httpjson.Write(w, http.StatusOK, map[string]any{
		"listings": rows,
		"has_prev": page.HasPrev,
		"has_next": page.HasNext,
	})
}

// ServeGet handles GET /listings/{listingID}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathListingID(w, r)
	if !ok {
		return
	}

	listing, err := h.Listings.GetByID(r.Context(), id)
	if err != nil {
		httpjson.WriteError(w, h.Log, workflows.WrapStore("get listing", err))
		return
	}
	httpjson.Write(w, http.StatusOK, listing)
}

// ServeUpdate handles PUT /listings/{listingID}. Owner or admin only.
func (h *Handler) ServeUpdate(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.FromRequest(r)
	if !ok {
		httpjson.Write(w, http.StatusUnauthorized, map[string]string{"error": "sign in required"})
		return
	}
	id, ok := pathListingID(w, r)
	if !ok {
		return
	}

	listing, err := h.Listings.GetByID(r.Context(), id)
	if err != nil {
		httpjson.WriteError(w, h.Log, workflows.WrapStore("get listing", err))
		return
	}
	if !actor.Is(listing.OwnerID) && !actor.IsAdmin() {
		httpjson.WriteError(w, h.Log, &workflows.UnauthorizedError{Reason: "only the owner can edit a listing"})
		return
	}

	var body listingBody
	if !httpjson.Decode(w, r, &body) {
		return
	}
	if err := body.validate(); err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}

	err = h.Listings.Apply(r.Context(), id, listingstore.Update{
		Title:       body.Title,
		Summary:     body.Summary,
		Area:        body.Area,
		Methodology: body.Methodology,
		Tags:        body.Tags,
		Status:      body.Status,
		EndDate:     body.EndDate,
	})
	if err != nil {
		httpjson.WriteError(w, h.Log, workflows.WrapStore("update listing", err))
		return
	}

	h.AuditLog.Workflow(r.Context(), actor, audit.EventListingUpdated, id.Hex(), map[string]string{
		"title": body.Title,
	})
	httpjson.Write(w, http.StatusOK, map[string]string{"status": "updated"})
}

// ServeDelete handles DELETE /listings/{listingID}. Owner or admin only.
// Requests and collaborations hanging off the listing go with it.
func (h *Handler) ServeDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.FromRequest(r)
	if !ok {
		httpjson.Write(w, http.StatusUnauthorized, map[string]string{"error": "sign in required"})
		return
	}
	id, ok := pathListingID(w, r)
	if !ok {
		return
	}

	listing, err := h.Listings.GetByID(r.Context(), id)
	if err != nil {
		httpjson.WriteError(w, h.Log, workflows.WrapStore("get listing", err))
		return
	}
	if !actor.Is(listing.OwnerID) && !actor.IsAdmin() {
		httpjson.WriteError(w, h.Log, &workflows.UnauthorizedError{Reason: "only the owner can delete a listing"})
		return
	}

	if err := h.Listings.Delete(r.Context(), id); err != nil {
		httpjson.WriteError(w, h.Log, workflows.WrapStore("delete listing", err))
		return
	}

	// Cascade is best-effort: the listing is already gone, so orphans here
	// only cost storage, never correctness.
	if _, err := h.Requests.DeleteByListing(r.Context(), id); err != nil {
		h.Log.Warn("failed to delete requests for listing", zap.Error(err), zap.String("listing_id", id.Hex()))
	}
	if _, err := h.Collabs.DeleteByListing(r.Context(), id); err != nil {
		h.Log.Warn("failed to delete collaborations for listing", zap.Error(err), zap.String("listing_id", id.Hex()))
	}

	h.AuditLog.Workflow(r.Context(), actor, audit.EventListingDeleted, id.Hex(), map[string]string{
		"title": listing.Title,
	})
	httpjson.Write(w, http.StatusOK, map[string]string{"status": "deleted"})
}
