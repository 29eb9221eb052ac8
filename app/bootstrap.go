// app/bootstrap.go
package app

import (
	"context"
	"log/slog"

	"Gin_postgres_redis_lending/db"
	"Gin_postgres_redis_lending/models"
	"Gin_postgres_redis_lending/session"

	"github.com/google/uuid"
)

// Bootstrap seeds categories, promotes ADMIN_EMAILS and creates the first
// superuser when no admin exists yet.
func Bootstrap(ctx context.Context, cfg Config, repo *db.Repo, log *slog.Logger) error {
	n, err := repo.SeedCategories(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Info("categories seeded", "created", n)
	}

	if promoted, err := repo.PromoteEmails(ctx, cfg.AdminEmails); err != nil {
		return err
	} else if promoted > 0 {
		log.Info("admin emails promoted", "count", promoted)
	}

	admins, err := repo.CountAdmins(ctx)
	if err != nil {
		return err
	}
	if admins > 0 {
		return nil
	}
	if cfg.BootstrapUsername == "" || cfg.BootstrapPassword == "" {
		log.Warn("no admin account exists; set BOOTSTRAP_ADMIN_USERNAME and BOOTSTRAP_ADMIN_PASSWORD")
		return nil
	}

	hash, err := session.HashPassword(cfg.BootstrapPassword)
	if err != nil {
		return err
	}
	u := &models.User{
		ID:            uuid.NewString(),
		Username:      cfg.BootstrapUsername,
		Email:         cfg.BootstrapEmail,
		PasswordHash:  hash,
		IsActive:      true,
		IsSuperuser:   true,
		Role:          models.RoleAdmin,
		RequestedRole: models.RoleAdmin,
		IsApproved:    true,
	}
	if err := repo.CreateUser(ctx, u); err != nil {
		return err
	}
	log.Info("bootstrap superuser created", "username", u.Username)
	return nil
}
