package database

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"labbook/internal/middleware"

	"gorm.io/gorm"
)

// schemaVersion is one row of the ledger of applied migrations.
type schemaVersion struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	AppliedAt time.Time `gorm:"not null"`
}

func (schemaVersion) TableName() string {
	return "schema_versions"
}

// AppliedVersions returns the recorded migration versions, oldest first. A
// database that was never migrated has none.
func AppliedVersions(ctx context.Context, db *gorm.DB) ([]int, error) {
	if !db.WithContext(ctx).Migrator().HasTable(&schemaVersion{}) {
		return nil, nil
	}
	var versions []int
	if err := db.WithContext(ctx).Model(&schemaVersion{}).Order("version").Pluck("version", &versions).Error; err != nil {
		return nil, fmt.Errorf("read schema_versions: %w", err)
	}
	return versions, nil
}

// RunMigrations applies every bundled migration the ledger does not list yet
// and returns how many ran.
func RunMigrations(ctx context.Context, db *gorm.DB) (int, error) {
	ms, err := Migrations()
	if err != nil {
		return 0, err
	}
	return applyPending(ctx, db, ms)
}

// RollbackMigration runs the down script of one applied migration.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	ms, err := Migrations()
	if err != nil {
		return err
	}
	return rollback(ctx, db, ms, version)
}

// ResetMigrations rolls back every applied migration, newest first, and then
// applies them all again. It destroys all labbook data.
func ResetMigrations(ctx context.Context, db *gorm.DB) (int, error) {
	ms, err := Migrations()
	if err != nil {
		return 0, err
	}
	return reset(ctx, db, ms)
}

func applyPending(ctx context.Context, db *gorm.DB, ms []Migration) (int, error) {
	if err := db.WithContext(ctx).AutoMigrate(&schemaVersion{}); err != nil {
		return 0, fmt.Errorf("prepare schema_versions: %w", err)
	}
	applied, err := AppliedVersions(ctx, db)
	if err != nil {
		return 0, err
	}
	if err := checkKnown(applied, ms); err != nil {
		return 0, err
	}

	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	ran := 0
	for _, m := range ms {
		if done[m.Version] {
			continue
		}
		start := time.Now()
		// Script and ledger row commit together so a failed script is retried
		// on the next run.
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(m.Up).Error; err != nil {
				return err
			}
			return tx.Create(&schemaVersion{Version: m.Version, Name: m.Name, AppliedAt: time.Now().UTC()}).Error
		})
		if err != nil {
			return ran, fmt.Errorf("apply migration %s: %w", m, err)
		}
		middleware.Logger.InfoContext(ctx, "labbook schema migrated",
			slog.String("migration", m.String()),
			slog.Duration("took", time.Since(start)))
		ran++
	}
	return ran, nil
}

func rollback(ctx context.Context, db *gorm.DB, ms []Migration, version int) error {
	m, ok := findMigration(ms, version)
	if !ok {
		return fmt.Errorf("migration %d is not part of this build", version)
	}
	applied, err := AppliedVersions(ctx, db)
	if err != nil {
		return err
	}
	if !containsVersion(applied, version) {
		return fmt.Errorf("migration %s has not been applied", m)
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.Down).Error; err != nil {
			return err
		}
		return tx.Where("version = ?", version).Delete(&schemaVersion{}).Error
	})
	if err != nil {
		return fmt.Errorf("roll back migration %s: %w", m, err)
	}
	middleware.Logger.WarnContext(ctx, "labbook schema rolled back", slog.String("migration", m.String()))
	return nil
}

func reset(ctx context.Context, db *gorm.DB, ms []Migration) (int, error) {
	applied, err := AppliedVersions(ctx, db)
	if err != nil {
		return 0, err
	}
	if err := checkKnown(applied, ms); err != nil {
		return 0, err
	}
	sort.Sort(sort.Reverse(sort.IntSlice(applied)))
	for _, version := range applied {
		if err := rollback(ctx, db, ms, version); err != nil {
			return 0, err
		}
	}
	return applyPending(ctx, db, ms)
}

// checkKnown refuses a ledger that lists versions this build cannot roll
// back, which happens when a newer build migrated the database first.
func checkKnown(applied []int, ms []Migration) error {
	var unknown []string
	for _, version := range applied {
		if _, ok := findMigration(ms, version); !ok {
			unknown = append(unknown, fmt.Sprintf("%06d", version))
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	return fmt.Errorf("schema_versions lists migrations this labbook build does not ship: %s",
		strings.Join(unknown, ", "))
}

func containsVersion(versions []int, version int) bool {
	for _, v := range versions {
		if v == version {
			return true
		}
	}
	return false
}
