package repository

import (
	"context"
	"testing"
	"time"

	"labbook/internal/models"
	"labbook/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.NewTestDB(t)
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return gormDB, mock
}

func seedProfile(t *testing.T, db *gorm.DB, username string) *models.Profile {
	t.Helper()
	p := &models.Profile{
		Username: username,
		Email:    username + "@example.com",
		Password: "hash",
	}
	require.NoError(t, NewProfileRepository(db).Create(context.Background(), p))
	return p
}

func seedPost(t *testing.T, db *gorm.DB, userID uint, title string, createdAt time.Time) *models.Post {
	t.Helper()
	p := &models.Post{
		UserID:           userID,
		Title:            title,
		ProblemStatement: "statement",
		CreatedAt:        createdAt,
	}
	require.NoError(t, NewPostRepository(db).Create(context.Background(), p))
	return p
}
