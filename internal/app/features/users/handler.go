// internal/app/features/users/handler.go
package users

import (
	"net/http"

	"github.com/peerhub/peerhub/internal/app/system/authz"
	"github.com/peerhub/peerhub/internal/app/system/httpjson"
	"github.com/peerhub/peerhub/internal/app/workflows/relationship"
	"github.com/peerhub/peerhub/internal/domain/models"
	"go.uber.org/zap"
)

// Handler serves user directory lookups.
type Handler struct {
	Ledger *relationship.Ledger
	Log    *zap.Logger
}

func NewHandler(ledger *relationship.Ledger, logger *zap.Logger) *Handler {
	return &Handler{Ledger: ledger, Log: logger}
}

type userSummary struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

func summarize(users []models.User) []userSummary {
	out := make([]userSummary, 0, len(users))
	for i := range users {
		out = append(out, userSummary{
			ID:       users[i].ID.Hex(),
			FullName: users[i].FullName,
			Role:     users[i].Role,
		})
	}
	return out
}

// ServeSearch handles GET /users/search?q=… . Results exclude the caller,
// their friends, and anyone they already sent a request to.
func (h *Handler) ServeSearch(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.FromRequest(r)
	if !ok {
		httpjson.Write(w, http.StatusUnauthorized, map[string]string{"error": "sign in required"})
		return
	}

	found, err := h.Ledger.Search(r.Context(), actor, r.URL.Query().Get("q"))
	if err != nil {
		httpjson.WriteError(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]any{"users": summarize(found)})
}
