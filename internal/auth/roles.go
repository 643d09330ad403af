package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/mission-service/internal/domain"
	apperrors "github.com/spec-kit/mission-service/pkg/util"
)

// RoleSet is a set of roles. The empty set admits any authenticated caller.
type RoleSet map[domain.Role]struct{}

// NewRoleSet builds a RoleSet from roles.
func NewRoleSet(roles ...domain.Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, role := range roles {
		set[role] = struct{}{}
	}
	return set
}

// Contains reports whether role is in the set.
func (s RoleSet) Contains(role domain.Role) bool {
	_, ok := s[role]
	return ok
}

// RoleAllows permits identity when allowed is empty or holds its role.
func RoleAllows(identity domain.Identity, allowed RoleSet) bool {
	return len(allowed) == 0 || allowed.Contains(identity.Role)
}

// SelfOrRoleAllows permits identity when it is the target itself, and
// otherwise falls back to RoleAllows.
func SelfOrRoleAllows(identity domain.Identity, allowed RoleSet, targetID string) bool {
	if identity.ID != "" && identity.ID == targetID {
		return true
	}
	return RoleAllows(identity, allowed)
}

// RequireRoles ensures the caller holds one of the allowed roles.
func RequireRoles(allowed ...domain.Role) fiber.Handler {
	allowedSet := NewRoleSet(allowed...)

	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return apperrors.NewAuthenticationRequired()
		}
		if !RoleAllows(identity, allowedSet) {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireSelfOrRoles admits the caller when the route parameter param
// equals its own id, or when it holds one of the allowed roles.
func RequireSelfOrRoles(param string, allowed ...domain.Role) fiber.Handler {
	allowedSet := NewRoleSet(allowed...)

	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return apperrors.NewAuthenticationRequired()
		}
		if !SelfOrRoleAllows(identity, allowedSet, c.Params(param)) {
			return apperrors.NewForbidden("access denied")
		}
		return c.Next()
	}
}
