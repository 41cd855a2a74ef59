package service

import (
	"context"
	"testing"

	"labbook/internal/models"
	"labbook/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProblemInput(userID uint) CreateProblemInput {
	return CreateProblemInput{
		UserID:             userID,
		Title:              "Seedlings dry out over weekends",
		Description:        "Small greenhouses have nobody to water trays on Saturday and Sunday.",
		AffectedGroup:      "community gardens",
		Frequency:          "weekly",
		CurrentWorkaround:  "volunteer rota",
		SolutionType:       " Tool ",
		IsRealConfirmation: true,
	}
}

func TestProblemServiceCreate(t *testing.T) {
	db := newTestDB(t)
	svc := NewProblemService(repository.NewProblemRepository(db))
	owner := seedProfile(t, db, "owner")

	problem, err := svc.Create(context.Background(), validProblemInput(owner.ID))
	require.NoError(t, err)
	assert.Equal(t, models.SolutionTypeTool, problem.SolutionType)
	require.NotNil(t, problem.Submitter)

	list, err := svc.List(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestProblemServiceRejectsIncompleteSubmissions(t *testing.T) {
	db := newTestDB(t)
	svc := NewProblemService(repository.NewProblemRepository(db))

	tests := []struct {
		name   string
		mutate func(*CreateProblemInput)
	}{
		{"unconfirmed", func(in *CreateProblemInput) { in.IsRealConfirmation = false }},
		{"short title", func(in *CreateProblemInput) { in.Title = "Dry pots" }},
		{"short description", func(in *CreateProblemInput) { in.Description = "Plants die." }},
		{"short frequency", func(in *CreateProblemInput) { in.Frequency = "ok" }},
		{"unknown solution type", func(in *CreateProblemInput) { in.SolutionType = "magic" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validProblemInput(1)
			tt.mutate(&in)
			_, err := svc.Create(context.Background(), in)
			assertCode(t, err, models.CodeValidation)
		})
	}

	var count int64
	db.Model(&models.Problem{}).Count(&count)
	assert.Zero(t, count, "nothing is written for invalid submissions")
}
