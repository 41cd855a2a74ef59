package bootstrap

import (
	"context"
	"testing"

	"labbook/internal/config"
	"labbook/internal/models"
	"labbook/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countProfiles(t *testing.T, cfg *config.Config, opts Options) int64 {
	t.Helper()
	db := testutil.NewTestDB(t)
	require.NoError(t, ensureDevData(context.Background(), cfg, db, opts))
	var n int64
	require.NoError(t, db.Model(&models.Profile{}).Count(&n).Error)
	return n
}

func TestEnsureDevData(t *testing.T) {
	t.Run("production never seeds", func(t *testing.T) {
		cfg := &config.Config{Env: "production", DevDemoProfile: true}
		assert.Equal(t, int64(0), countProfiles(t, cfg, Options{SeedDemo: true}))
	})

	t.Run("disabled by default", func(t *testing.T) {
		cfg := &config.Config{Env: "development"}
		assert.Equal(t, int64(0), countProfiles(t, cfg, Options{}))
	})

	t.Run("demo profile only", func(t *testing.T) {
		cfg := &config.Config{Env: "development", DevDemoProfile: true}
		assert.Equal(t, int64(1), countProfiles(t, cfg, Options{}))
	})

	t.Run("seeds an empty store", func(t *testing.T) {
		cfg := &config.Config{Env: "development"}
		assert.Greater(t, countProfiles(t, cfg, Options{SeedDemo: true}), int64(1))
	})
}
