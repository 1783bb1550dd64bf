package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleValid(t *testing.T) {
	for _, role := range []Role{RoleSuperadmin, RoleAdmin, RoleDoctor, RoleStaff, RolePatient} {
		assert.True(t, role.Valid(), role)
	}
	for _, role := range []Role{"", "root", "Admin", "SUPERADMIN", "nurse"} {
		assert.False(t, role.Valid(), role)
	}
}
