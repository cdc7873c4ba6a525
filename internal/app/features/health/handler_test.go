package health_test

import (
	"net/http/httptest"
	"testing"

	"github.com/peerhub/peerhub/internal/app/features/health"
	"github.com/peerhub/peerhub/internal/testutil"
	"go.uber.org/zap"
)

func TestHealth_OK(t *testing.T) {
	db := testutil.SetupTestDB(t)

	h := health.NewHandler(db.Client(), nil, zap.NewNop())

	req := httptest.NewRequest("GET", "/health", nil)
	rec := testutil.NewRecorder()
	h.Serve(rec, req)

	rec.AssertStatus(t, 200)
	rec.AssertContains(t, `"status":"ok"`)
	rec.AssertContains(t, `"database":"connected"`)
}
