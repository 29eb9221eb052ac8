package db

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"Gin_postgres_redis_lending/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repo struct {
	DB    *gorm.DB
	Clock Clock
	IDs   IDGen
	Log   *slog.Logger
}

func NewRepo(db *gorm.DB, log *slog.Logger) *Repo {
	if log == nil {
		log = slog.Default()
	}
	return &Repo{DB: db, Clock: realClock{}, IDs: newULIDGen(), Log: log}
}

// Users

func (r *Repo) TouchUserLogin(ctx context.Context, userID, ip, ua string) error {
	return r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"last_login_at": gorm.Expr("NOW()"),
			"last_seen_at":  gorm.Expr("NOW()"),
			"login_count":   gorm.Expr("COALESCE(login_count, 0) + 1"),
			"last_login_ip": ip,
			"last_login_ua": ua,
		}).Error
}

func (r *Repo) TouchUserSeen(ctx context.Context, userID string) error {
	return r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_seen_at", gorm.Expr("NOW()")).Error
}

func (r *Repo) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "User not found.")
	}
	return &u, nil
}

func (r *Repo) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, notFound(err, "User not found.")
	}
	return &u, nil
}

// CreateUser inserts u; usernames are unique regardless of case.
func (r *Repo) CreateUser(ctx context.Context, u *models.User) error {
	var n int64
	if err := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("LOWER(username) = ?", strings.ToLower(u.Username)).
		Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return NewInvalidArgumentError("Username is already taken.")
	}
	if err := r.DB.WithContext(ctx).Create(u).Error; err != nil {
		if IsUniqueViolation(err) {
			return NewInvalidArgumentError("Username is already taken.")
		}
		return err
	}
	return nil
}

type ListUsersResult struct {
	Users []models.User `json:"users"`
	Total int64         `json:"total"`
}

// ListUsers pages through accounts; q matches username or email.
func (r *Repo) ListUsers(ctx context.Context, q string, page, size int) (ListUsersResult, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}

	tx := r.DB.WithContext(ctx).Model(&models.User{})
	if q = strings.TrimSpace(q); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		tx = tx.Where("LOWER(username) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return ListUsersResult{}, err
	}

	var users []models.User
	if err := tx.
		Order("created_at DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&users).Error; err != nil {
		return ListUsersResult{}, err
	}
	return ListUsersResult{Users: users, Total: total}, nil
}

// DeleteUserByID removes the account; closed borrows and their logs cascade, log performers are nulled.
// Accounts still holding a unit or a pending request are refused.
func (r *Repo) DeleteUserByID(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&u, "id = ?", id).Error; err != nil {
			return notFound(err, "User not found.")
		}
		var open int64
		if err := tx.Model(&models.Borrow{}).
			Where("borrower_id = ? AND status IN ?", id, models.OpenBorrowStatuses).
			Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return NewConflictError("Cannot delete a user with open borrows.")
		}
		res := tx.Delete(&models.User{ID: id})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return NewNotFoundError("User not found.")
		}
		return nil
	})
}

// Registrations

func (r *Repo) ListPendingRegistrations(ctx context.Context) ([]models.User, error) {
	var us []models.User
	err := r.DB.WithContext(ctx).
		Where("is_approved = FALSE").
		Order("created_at ASC").
		Find(&us).Error
	return us, err
}

func (r *Repo) ApproveRegistration(ctx context.Context, userID string, role models.Role, approverID string) (*models.User, error) {
	if !role.Valid() {
		return nil, NewInvalidArgumentError("invalid role")
	}
	var u models.User
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&u, "id = ?", userID).Error; err != nil {
			return notFound(err, "User not found.")
		}
		u.Role = role
		u.IsApproved = true
		u.ApprovedByID = &approverID
		u.IsActive = true
		return tx.Model(&u).Select("role", "is_approved", "approved_by_id", "is_active", "updated_at").Updates(&u).Error
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repo) RejectRegistration(ctx context.Context, userID, approverID string) (*models.User, error) {
	var u models.User
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&u, "id = ?", userID).Error; err != nil {
			return notFound(err, "User not found.")
		}
		u.IsActive = false
		u.IsApproved = false
		u.ApprovedByID = &approverID
		return tx.Model(&u).Select("is_active", "is_approved", "approved_by_id", "updated_at").Updates(&u).Error
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindApprovedUserByUsername backs the badge scanner: usernames double as card ids.
func (r *Repo) FindApprovedUserByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := r.FindUserByUsername(ctx, username)
	if err != nil {
		var de *DomainError
		if errors.As(err, &de) && de.Code == ErrCodeNotFound {
			return nil, NewNotFoundError("User not found with this RFID.")
		}
		return nil, err
	}
	if !u.IsApproved && !u.IsSuperuser {
		return nil, NewForbiddenError("User not approved.")
	}
	return u, nil
}
