// Package access classifies callers for the lending endpoints.
package access

import "Gin_postgres_redis_lending/models"

// IsAdmin: superuser, or an approved ADMIN.
func IsAdmin(u *models.User) bool {
	if u == nil {
		return false
	}
	if u.IsSuperuser {
		return true
	}
	return u.Role == models.RoleAdmin && u.IsApproved
}

// IsHandlerOrAdmin: superuser, or an approved ADMIN or HANDLER.
func IsHandlerOrAdmin(u *models.User) bool {
	if u == nil {
		return false
	}
	if u.IsSuperuser {
		return true
	}
	if !u.IsApproved {
		return false
	}
	return u.Role == models.RoleAdmin || u.Role == models.RoleHandler
}

// IsBorrower: STUDENT, PERSONNEL or the legacy USER role. Approval is checked separately.
func IsBorrower(u *models.User) bool {
	if u == nil {
		return false
	}
	switch u.Role {
	case models.RoleStudent, models.RolePersonnel, models.RoleUser:
		return true
	}
	return false
}

// CanAct reports whether the account passed the approval gate.
func CanAct(u *models.User) bool {
	return u != nil && u.IsActive && (u.IsApproved || u.IsSuperuser)
}
