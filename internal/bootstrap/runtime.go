// Package bootstrap wires the store and cache a process needs before it can
// serve requests or run a command.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"labbook/internal/cache"
	"labbook/internal/config"
	"labbook/internal/database"
	"labbook/internal/middleware"
	"labbook/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemo seeds a small community when the store has no profiles yet.
	SeedDemo bool
	// PresetPath overrides the built-in seed preset.
	PresetPath string
}

// InitRuntime connects to DB and Redis and optionally seeds demo data.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	r := cache.InitRedis(cfg.RedisURL)

	if err := ensureDevData(ctx, cfg, db, opts); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development data: %w", err)
	}

	return db, r, nil
}

// ensureDevData creates the demo profile and, when asked and the store is
// empty, a seeded community. It never runs outside development.
func ensureDevData(ctx context.Context, cfg *config.Config, db *gorm.DB, opts Options) error {
	if cfg == nil || db == nil || cfg.Env != "development" {
		return nil
	}
	if !cfg.DevDemoProfile && !opts.SeedDemo {
		return nil
	}

	preset, err := seed.LoadPreset(opts.PresetPath)
	if err != nil {
		return err
	}

	if opts.SeedDemo {
		empty, err := storeIsEmpty(ctx, db)
		if err != nil {
			return err
		}
		if empty {
			if _, err := seed.NewSeeder(db, seed.Options{}, preset).Run(ctx); err != nil {
				return err
			}
		}
	}

	profile, err := seed.EnsureDemoProfile(ctx, db, preset)
	if err != nil {
		return err
	}
	middleware.Logger.Info("development demo profile ready",
		slog.Uint64("user_id", uint64(profile.ID)),
		slog.String("email", profile.Email))
	return nil
}

func storeIsEmpty(ctx context.Context, db *gorm.DB) (bool, error) {
	var n int64
	if err := db.WithContext(ctx).Table("profiles").Count(&n).Error; err != nil {
		return false, err
	}
	return n == 0, nil
}
