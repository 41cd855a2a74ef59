package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"labbook/internal/config"
	"labbook/internal/middleware"

	"gorm.io/gorm"
)

// Schema modes for DB_SCHEMA_MODE.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaPolicy says which schema steps run at boot.
type SchemaPolicy struct {
	Mode string
	// SQL applies the versioned scripts.
	SQL bool
	// Auto runs GORM AutoMigrate over the labbook models.
	Auto bool
}

// SchemaStatus is what cmd/migrate status prints.
type SchemaStatus struct {
	SchemaPolicy
	Environment string
	Applied     []int
	Pending     []Migration
}

func isProdLikeEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "staging", "stage":
		return true
	}
	return false
}

// ResolveSchemaPolicy maps DB_SCHEMA_MODE and APP_ENV to a policy. Hybrid
// runs the scripts everywhere and AutoMigrate only outside production-like
// environments. Auto in production needs DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE.
func ResolveSchemaPolicy(cfg *config.Config) (SchemaPolicy, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode))
	if mode == "" {
		mode = SchemaModeHybrid
	}
	p := SchemaPolicy{Mode: mode}
	prodLike := isProdLikeEnv(cfg.Env)

	switch mode {
	case SchemaModeSQL:
		p.SQL = true
	case SchemaModeAuto:
		if prodLike && !cfg.DBAutoMigrateAllowDestructive {
			return p, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q without DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		p.Auto = true
	case SchemaModeHybrid:
		p.SQL, p.Auto = true, !prodLike
	default:
		return p, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
	}
	return p, nil
}

func runAutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(PersistentModels()...)
}

// ApplySchema brings the labbook tables up to date according to the policy.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	p, err := ResolveSchemaPolicy(cfg)
	if err != nil {
		return err
	}

	if p.SQL {
		ran, err := RunMigrations(ctx, db)
		if err != nil {
			return err
		}
		if ran == 0 {
			middleware.Logger.DebugContext(ctx, "labbook schema already current")
		}
	}
	if p.Auto {
		if p.Mode == SchemaModeAuto && cfg.DBAutoMigrateAllowDestructive {
			middleware.Logger.WarnContext(ctx, "AutoMigrate allowed in a production-like environment",
				slog.String("env", cfg.Env))
		}
		if err := runAutoMigrate(db); err != nil {
			return fmt.Errorf("auto-migrate labbook models: %w", err)
		}
	}
	return nil
}

// GetSchemaStatus reports the policy and, when scripts are in play, which
// versions are applied and which are pending.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	p, err := ResolveSchemaPolicy(cfg)
	if err != nil {
		return nil, err
	}
	status := &SchemaStatus{SchemaPolicy: p, Environment: cfg.Env}
	if !p.SQL {
		return status, nil
	}

	ms, err := Migrations()
	if err != nil {
		return nil, err
	}
	if status.Applied, err = AppliedVersions(ctx, db); err != nil {
		return nil, err
	}
	for _, m := range ms {
		if !containsVersion(status.Applied, m.Version) {
			status.Pending = append(status.Pending, m)
		}
	}
	return status, nil
}
