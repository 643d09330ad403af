package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/mission-service/internal/domain"
)

var allRoles = []domain.Role{
	domain.RoleAdmin,
	domain.RoleDirector,
	domain.RoleHR,
	domain.RoleFinance,
	domain.RoleHeadOfDepartment,
	domain.RoleEmployee,
}

func TestRoleAllows(t *testing.T) {
	for _, role := range allRoles {
		identity := domain.Identity{ID: "u-" + string(role), Role: role}

		assert.True(t, RoleAllows(identity, NewRoleSet()), "empty set admits %s", role)
		assert.True(t, RoleAllows(identity, nil), "nil set admits %s", role)
		assert.Equal(t, role == domain.RoleAdmin, RoleAllows(identity, NewRoleSet(domain.RoleAdmin)))
	}

	multi := NewRoleSet(domain.RoleHR, domain.RoleDirector)
	assert.True(t, RoleAllows(domain.Identity{Role: domain.RoleHR}, multi))
	assert.False(t, RoleAllows(domain.Identity{Role: domain.RoleFinance}, multi))
	assert.False(t, RoleAllows(domain.Identity{Role: ""}, multi))
}

func TestSelfOrRoleAllows(t *testing.T) {
	admins := NewRoleSet(domain.RoleAdmin)

	for _, role := range allRoles {
		identity := domain.Identity{ID: "u-1", Role: role}
		assert.True(t, SelfOrRoleAllows(identity, admins, identity.ID), "self bypass for %s", role)
		assert.True(t, SelfOrRoleAllows(identity, NewRoleSet(), "u-2"), "empty set admits %s", role)
		assert.Equal(t, role == domain.RoleAdmin, SelfOrRoleAllows(identity, admins, "u-2"))
	}

	anonymous := domain.Identity{Role: domain.RoleEmployee}
	assert.False(t, SelfOrRoleAllows(anonymous, admins, ""), "an empty id never matches itself")
}

func TestRoleSetContains(t *testing.T) {
	set := NewRoleSet(domain.RoleHR, domain.RoleHR, domain.RoleFinance)
	assert.Len(t, set, 2)
	assert.True(t, set.Contains(domain.RoleFinance))
	assert.False(t, set.Contains(domain.RoleAdmin))
}
