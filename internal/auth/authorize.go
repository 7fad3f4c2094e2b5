package auth

import (
	"fmt"
	"strings"
)

// Authorize checks an authenticated identity against an endpoint's declared
// role requirements. It runs after Authenticate and never performs I/O.
func Authorize(policy EndpointPolicy, id *Identity) error {
	if len(policy.RequiredRoles) == 0 {
		return nil
	}
	if id == nil || NormalizeRole(id.Role) == "" {
		return fmt.Errorf("%w: role not identified", ErrAccessDenied)
	}
	if !id.Verified && rolesIntersect(policy.RequiredRoles, policy.VerifiedRoles) {
		return ErrNotVerified
	}
	role := NormalizeRole(id.Role)
	for _, required := range policy.RequiredRoles {
		if role == NormalizeRole(required) {
			return nil
		}
	}
	return fmt.Errorf("%w: requires role %s", ErrAccessDenied, joinRoles(policy.RequiredRoles))
}

func rolesIntersect(a, b []Role) bool {
	for _, x := range a {
		for _, y := range b {
			if NormalizeRole(x) == NormalizeRole(y) {
				return true
			}
		}
	}
	return false
}

func joinRoles(roles []Role) string {
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, string(NormalizeRole(r)))
	}
	return strings.Join(names, ", ")
}
