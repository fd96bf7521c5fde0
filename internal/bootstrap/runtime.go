// Package bootstrap wires the process-level runtime shared by the commands:
// database and Redis connections plus development-only seeding.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"portal/internal/cache"
	"portal/internal/config"
	"portal/internal/database"
	"portal/internal/middleware"
	"portal/internal/models"
	"portal/internal/repository"
	"portal/internal/validation"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedAllowlist loads cfg.SeedAllowedEmailFile into the allow-list.
	SeedAllowlist bool
}

// InitRuntime connects to the database and Redis, then applies the
// development bootstrap steps enabled by cfg and opts.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// May leave a nil client if Redis is unreachable.
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := EnsureDevAdmin(ctx, cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development admin: %w", err)
	}

	if opts.SeedAllowlist && cfg.SeedAllowedEmailFile != "" {
		n, err := SeedAllowlistFile(ctx, db, cfg.SeedAllowedEmailFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to seed allow-list: %w", err)
		}
		middleware.Logger.Info("allow-list seeded",
			slog.String("file", cfg.SeedAllowedEmailFile),
			slog.Int64("changed", n),
		)
	}

	return db, r, nil
}

// EnsureDevAdmin makes sure an approved admin account exists for
// cfg.DevAdminEmail. It only acts in development with DEV_BOOTSTRAP_ADMIN set.
func EnsureDevAdmin(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapAdmin {
		return nil
	}

	email := validation.NormalizeEmail(cfg.DevAdminEmail)
	if email == "" {
		email = "admin@portal.local"
	}
	if cfg.DevAdminPassword == "" {
		return errors.New("DEV_ADMIN_PASSWORD must be set when DEV_BOOTSTRAP_ADMIN is enabled")
	}

	accounts := repository.NewAccountRepository(db)
	profiles := repository.NewProfileRepository(db)

	existing, err := accounts.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing == nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(cfg.DevAdminPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash admin password: %w", err)
		}
		account := &models.Account{ID: uuid.NewString(), Email: email, PasswordHash: string(hash)}
		profile := &models.Profile{Email: email, Role: models.RoleStudent, ApprovalStatus: models.StatusPending}
		if err := accounts.CreateWithProfile(ctx, account, profile); err != nil {
			return err
		}
	}

	// SetRole approves the profile as part of the promotion.
	before, after, err := profiles.SetRole(ctx, email, models.RoleAdmin)
	if err != nil {
		return err
	}

	middleware.Logger.InfoContext(ctx, "development admin bootstrap ensured",
		slog.String("email", email),
		slog.String("profile_id", after.ID),
		slog.Bool("created", existing == nil),
		slog.String("from_role", string(before.Role)),
	)
	return nil
}
