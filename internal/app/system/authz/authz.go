// internal/app/system/authz/authz.go
package authz

import (
	"net/http"

	"github.com/peerhub/peerhub/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Principal identifies the actor invoking a workflow operation. Workflow
// operations take it as an explicit argument instead of reading ambient
// session state, so tests and background jobs can act as any user.
type Principal struct {
	UserID primitive.ObjectID
	Name   string
	Role   string
}

// IsAdmin reports whether the principal carries the admin role.
func (p Principal) IsAdmin() bool {
	return EqualRole(p.Role, RoleAdmin)
}

// Is reports whether the principal is the given user.
func (p Principal) Is(userID primitive.ObjectID) bool {
	return p.UserID == userID
}

// FromRequest builds a Principal from the session user in the request
// context. ok is false when nobody is signed in or the session user id is
// malformed; callers must fail closed in that case.
func FromRequest(r *http.Request) (Principal, bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return Principal{}, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		// Malformed user id in session: treat as unauthenticated.
		return Principal{}, false
	}
	return Principal{UserID: userID, Name: user.Name, Role: user.Role}, true
}
