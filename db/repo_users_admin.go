// db/repo_users_admin.go
package db

import (
	"context"

	"Gin_postgres_redis_lending/models"
)

func (r *Repo) SetUserRole(ctx context.Context, userID string, role models.Role) error {
	if !role.Valid() {
		return NewInvalidArgumentError("invalid role")
	}
	res := r.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return NewNotFoundError("User not found.")
	}
	return nil
}

// CountAdmins counts accounts that pass the admin gate.
func (r *Repo) CountAdmins(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("is_superuser = TRUE OR (role = ? AND is_approved = TRUE)", models.RoleAdmin).
		Count(&n).Error
	return n, err
}

// PromoteEmails makes every account whose e-mail is listed an approved ADMIN.
func (r *Repo) PromoteEmails(ctx context.Context, emails []string) (int64, error) {
	if len(emails) == 0 {
		return 0, nil
	}
	res := r.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("LOWER(email) IN ?", emails).
		Where("role <> ? OR is_approved = FALSE", models.RoleAdmin).
		Updates(map[string]any{"role": models.RoleAdmin, "is_approved": true, "is_active": true})
	return res.RowsAffected, res.Error
}
