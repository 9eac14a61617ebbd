package model

import (
	"context"
	"errors"
	"strings"

	"leelaaverse/internal/auth"
	"leelaaverse/internal/config"
	"leelaaverse/internal/entity"
	"leelaaverse/internal/entity/db"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SeedAdminUser ensures the configured administrator account exists and has the admin role.
func SeedAdminUser(ctx context.Context, repo Repository, cfg config.Config) error {
	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	if repo == nil || email == "" || cfg.AdminPassword == "" {
		return nil
	}

	existing, err := repo.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role == db.UserRoleAdmin {
			return nil
		}
		role := db.UserRoleAdmin
		logrus.WithField("user_id", existing.ID).Info("promoting seeded user to admin")
		return repo.UpdateUser(ctx, existing.ID, entity.UserUpdates{Role: &role})
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return err
	}

	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	username := strings.TrimSpace(cfg.AdminUsername)
	if username == "" {
		username = "admin"
	}
	user := &db.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		DisplayName:  username,
		Role:         db.UserRoleAdmin,
		IsActive:     true,
	}
	if err := repo.CreateUser(ctx, user); err != nil {
		return err
	}
	logrus.WithField("user_id", user.ID).Info("seeded admin user")
	return nil
}
