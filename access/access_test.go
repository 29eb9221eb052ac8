package access

import (
	"testing"

	"Gin_postgres_redis_lending/models"

	"github.com/stretchr/testify/assert"
)

func TestRoleGate(t *testing.T) {
	tests := []struct {
		name            string
		user            *models.User
		admin, staff, b bool
		canAct          bool
	}{
		{"nil", nil, false, false, false, false},
		{"superuser", &models.User{IsSuperuser: true, IsActive: true, Role: models.RoleUser}, true, true, true, true},
		{"approved admin", &models.User{Role: models.RoleAdmin, IsApproved: true, IsActive: true}, true, true, false, true},
		{"unapproved admin", &models.User{Role: models.RoleAdmin, IsActive: true}, false, false, false, false},
		{"approved handler", &models.User{Role: models.RoleHandler, IsApproved: true, IsActive: true}, false, true, false, true},
		{"unapproved handler", &models.User{Role: models.RoleHandler, IsActive: true}, false, false, false, false},
		{"student", &models.User{Role: models.RoleStudent, IsApproved: true, IsActive: true}, false, false, true, true},
		{"personnel pending", &models.User{Role: models.RolePersonnel, IsActive: true}, false, false, true, false},
		{"legacy user", &models.User{Role: models.RoleUser, IsApproved: true, IsActive: true}, false, false, true, true},
		{"disabled student", &models.User{Role: models.RoleStudent, IsApproved: true}, false, false, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.admin, IsAdmin(tt.user), "IsAdmin")
			assert.Equal(t, tt.staff, IsHandlerOrAdmin(tt.user), "IsHandlerOrAdmin")
			assert.Equal(t, tt.b, IsBorrower(tt.user), "IsBorrower")
			assert.Equal(t, tt.canAct, CanAct(tt.user), "CanAct")
		})
	}
}
