package repository

import (
	"context"
	"testing"
	"time"

	"labbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolutionRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSolutionRepository(db)
	ctx := context.Background()

	author := seedProfile(t, db, "author")
	helper := seedProfile(t, db, "helper")
	a := seedPost(t, db, author.ID, "a", time.Now())
	b := seedPost(t, db, author.ID, "b", time.Now())

	base := time.Date(2026, 4, 4, 10, 0, 0, 0, time.UTC)
	first := &models.Solution{PostID: a.ID, UserID: helper.ID, Content: models.FormatInsight(models.InsightShareResource, "see the datasheet"), CreatedAt: base}
	second := &models.Solution{PostID: a.ID, UserID: helper.ID, Content: "plain note", CreatedAt: base.Add(time.Minute)}
	require.NoError(t, repo.Create(ctx, second))
	require.NoError(t, repo.Create(ctx, first))

	list, err := repo.ListByPost(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	view := list[0].View()
	assert.Equal(t, models.InsightShareResource, view.Type)
	assert.Equal(t, "helper", view.Author.DisplayName)

	ids, err := repo.CommentedPostIDs(ctx, helper.ID, []uint{a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, []uint{a.ID}, ids)

	got, err := repo.GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "plain note", got.Content)

	require.NoError(t, repo.Delete(ctx, second.ID))
	err = repo.Delete(ctx, second.ID)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}
