package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/garbagewatch/internal/config"
	"github.com/geocoder89/garbagewatch/internal/domain/user"
	"github.com/geocoder89/garbagewatch/internal/repo"
	"github.com/geocoder89/garbagewatch/internal/security"
)

// EnsureAdminUser creates the configured admin account once. It is a no-op
// when ADMIN_EMAIL or ADMIN_PASSWORD is unset or the email already exists.
func EnsureAdminUser(ctx context.Context, users repo.Users, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	if len(cfg.AdminPassword) > security.MaxPasswordBytes {
		return fmt.Errorf("ADMIN_PASSWORD: %w", security.ErrPasswordTooLong)
	}

	// check if the user exists

	_, err := users.GetByEmail(ctx, cfg.AdminEmail)

	if err == nil {
		return nil
	}

	if !errors.Is(err, repo.ErrNotFound) {
		return err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)

	if err != nil {
		return err
	}

	_, err = users.Create(ctx, user.New(cfg.AdminName, cfg.AdminEmail, hash, cfg.AdminRole))

	if errors.Is(err, repo.ErrEmailTaken) {
		// another instance won the race
		return nil
	}

	return err
}
