package friends

import (
	"net/http"
	"testing"

	"github.com/peerhub/peerhub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Parsing and auth checks run before the ledger is touched, so these
// tests exercise the handler with no database behind it.

func testRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Get("/pending", h.ServePending)
	r.Post("/requests/{userID}", h.ServeSend)
	r.Post("/requests/{userID}/accept", h.ServeAccept)
	r.Delete("/{userID}", h.ServeUnfriend)
	return r
}

func TestServeSend_RequiresSignIn(t *testing.T) {
	router := testRouter(NewHandler(nil, zap.NewNop()))

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewRequest(http.MethodPost, "/requests/64b000000000000000000001"))

	rec.AssertStatus(t, http.StatusUnauthorized)
	rec.AssertContains(t, "sign in required")
}

func TestServeSend_MalformedUserID(t *testing.T) {
	router := testRouter(NewHandler(nil, zap.NewNop()))

	rec := testutil.NewRecorder()
	req := testutil.NewAuthenticatedRequest(http.MethodPost, "/requests/not-an-id", testutil.ResearcherUser())
	router.ServeHTTP(rec, req)

	rec.AssertStatus(t, http.StatusUnprocessableEntity)
	rec.AssertContains(t, "malformed user id")
}

func TestServeAccept_MalformedUserID(t *testing.T) {
	router := testRouter(NewHandler(nil, zap.NewNop()))

	rec := testutil.NewRecorder()
	req := testutil.NewAuthenticatedRequest(http.MethodPost, "/requests/xyz/accept", testutil.ResearcherUser())
	router.ServeHTTP(rec, req)

	rec.AssertStatus(t, http.StatusUnprocessableEntity)
}

func TestServeUnfriend_MalformedUserID(t *testing.T) {
	router := testRouter(NewHandler(nil, zap.NewNop()))

	rec := testutil.NewRecorder()
	req := testutil.NewAuthenticatedRequest(http.MethodDelete, "/xyz", testutil.ResearcherUser())
	router.ServeHTTP(rec, req)

	rec.AssertStatus(t, http.StatusUnprocessableEntity)
}

func TestServeList_RequiresSignIn(t *testing.T) {
	router := testRouter(NewHandler(nil, zap.NewNop()))

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewRequest(http.MethodGet, "/"))

	rec.AssertStatus(t, http.StatusUnauthorized)
}
