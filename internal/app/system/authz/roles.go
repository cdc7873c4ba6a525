// internal/app/system/authz/roles.go
package authz

import "strings"

// Platform roles. Role is stored on the User document, never in the auth
// provider; it is loaded after sign-in.
const (
	RoleResearcher        = "researcher"
	RoleReviewer          = "reviewer"
	RoleAdmin             = "admin"
	RoleRevokedResearcher = "revokedResearcher"
)

// ValidRole reports whether role is one of the platform roles.
func ValidRole(role string) bool {
	switch role {
	case RoleResearcher, RoleReviewer, RoleAdmin, RoleRevokedResearcher:
		return true
	}
	return false
}

// NormalizeRole lowercases and trims a role string for comparison. The
// revokedResearcher role keeps its canonical mixed-case spelling in storage,
// so comparisons go through EqualRole instead of raw string equality.
func NormalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}

// EqualRole compares two role strings case-insensitively.
func EqualRole(a, b string) bool {
	return NormalizeRole(a) == NormalizeRole(b)
}
