package database

import (
	"testing"

	"labbook/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestConfigurePool(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	cfg := &config.Config{
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           5,
		DBConnMaxLifetimeMinutes: 15,
	}

	require.NoError(t, configurePool(db, cfg))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestAutoMigrateCreatesDomainTables(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: NewGormLogger(logger.Silent)})
	require.NoError(t, err)

	require.NoError(t, runAutoMigrate(db))

	for _, table := range []string{"profiles", "posts", "solutions", "validations", "collaborators", "problems"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.True(t, db.Migrator().HasIndex("validations", "idx_validation_post_user"))
}

func TestSchemaPolicy(t *testing.T) {
	tests := []struct {
		name        string
		cfg         config.Config
		wantSQL     bool
		wantAuto    bool
		expectError bool
	}{
		{"hybrid in development", config.Config{Env: "development"}, true, true, false},
		{"hybrid in production", config.Config{Env: "production", DBSchemaMode: "hybrid"}, true, false, false},
		{"sql only", config.Config{Env: "development", DBSchemaMode: "sql"}, true, false, false},
		{"auto in development", config.Config{Env: "development", DBSchemaMode: "auto"}, false, true, false},
		{"auto in production refused", config.Config{Env: "production", DBSchemaMode: "auto"}, false, false, true},
		{"auto in production allowed", config.Config{Env: "prod", DBSchemaMode: "auto", DBAutoMigrateAllowDestructive: true}, false, true, false},
		{"unknown mode", config.Config{DBSchemaMode: "yolo"}, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ResolveSchemaPolicy(&tt.cfg)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, p.SQL)
			assert.Equal(t, tt.wantAuto, p.Auto)
		})
	}
}

func TestEmbeddedMigrationsRegistered(t *testing.T) {
	ms, err := Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, ms)

	m, ok := findMigration(ms, 1)
	require.True(t, ok)
	assert.Equal(t, "init", m.Name)
	assert.Contains(t, m.Up, "CREATE TABLE IF NOT EXISTS collaborators")
	assert.Contains(t, m.Down, "DROP TABLE IF EXISTS profiles")
	assert.Equal(t, "000001_init", m.String())
}

func TestCheckKnownRejectsNewerLedger(t *testing.T) {
	shipped := []Migration{{Version: 1, Name: "init"}}

	assert.NoError(t, checkKnown(nil, shipped))
	assert.NoError(t, checkKnown([]int{1}, shipped))

	err := checkKnown([]int{1, 3, 7}, shipped)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000003, 000007")
}
