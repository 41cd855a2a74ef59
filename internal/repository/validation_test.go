package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"labbook/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationRepository_CreateTreatsUniqueViolationAsDone(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewValidationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "validations"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	created, err := repo.Add(context.Background(), 1, 2)
	assert.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidationRepository_CreateWrapsOtherErrors(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewValidationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "validations"`)).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), 1, 2)
	assert.Equal(t, models.CodeInternal, models.ErrorCode(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidationRepository_Toggle(t *testing.T) {
	db := setupTestDB(t)
	repo := NewValidationRepository(db)
	ctx := context.Background()

	author := seedProfile(t, db, "author")
	fan := seedProfile(t, db, "fan")
	a := seedPost(t, db, author.ID, "a", time.Now())
	b := seedPost(t, db, author.ID, "b", time.Now())

	ok, err := repo.Exists(ctx, a.ID, fan.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	created, err := repo.Add(ctx, a.ID, fan.ID)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = repo.Add(ctx, a.ID, fan.ID)
	require.NoError(t, err, "second insert is absorbed")
	assert.False(t, created)

	ok, err = repo.Exists(ctx, a.ID, fan.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ids, err := repo.ValidatedPostIDs(ctx, fan.ID, []uint{a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, []uint{a.ID}, ids)

	require.NoError(t, repo.Delete(ctx, a.ID, fan.ID))
	ok, err = repo.Exists(ctx, a.ID, fan.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ids, err = repo.ValidatedPostIDs(ctx, 0, []uint{a.ID})
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, isUniqueViolation(nil))
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, isUniqueViolation(errors.New("UNIQUE constraint failed: validations.post_id")))
	assert.False(t, isUniqueViolation(errors.New("timeout")))
}
