package service

import (
	"context"
	"strings"

	"labbook/internal/models"
	"labbook/internal/repository"
	"labbook/internal/validation"
)

// ProblemService handles problem submissions.
type ProblemService struct {
	problemRepo repository.ProblemRepository
}

// CreateProblemInput is a problem submission.
type CreateProblemInput struct {
	UserID             uint   `json:"-"`
	Title              string `json:"title"`
	Description        string `json:"description"`
	AffectedGroup      string `json:"affected_group"`
	Frequency          string `json:"frequency"`
	CurrentWorkaround  string `json:"current_workaround"`
	SolutionType       string `json:"solution_type"`
	ExpectedOutcome    string `json:"expected_outcome"`
	AdditionalContext  string `json:"additional_context"`
	IsRealConfirmation bool   `json:"is_real_confirmation"`
}

// NewProblemService returns a new ProblemService.
func NewProblemService(problemRepo repository.ProblemRepository) *ProblemService {
	return &ProblemService{problemRepo: problemRepo}
}

// Create validates and stores a problem. Nothing is written when any field
// fails validation.
func (s *ProblemService) Create(ctx context.Context, in CreateProblemInput) (*models.Problem, error) {
	problem := &models.Problem{
		UserID:             in.UserID,
		Title:              strings.TrimSpace(in.Title),
		Description:        strings.TrimSpace(in.Description),
		AffectedGroup:      strings.TrimSpace(in.AffectedGroup),
		Frequency:          strings.TrimSpace(in.Frequency),
		CurrentWorkaround:  strings.TrimSpace(in.CurrentWorkaround),
		SolutionType:       strings.ToLower(strings.TrimSpace(in.SolutionType)),
		ExpectedOutcome:    strings.TrimSpace(in.ExpectedOutcome),
		AdditionalContext:  strings.TrimSpace(in.AdditionalContext),
		IsRealConfirmation: in.IsRealConfirmation,
	}
	if err := validation.ValidateProblem(problem); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := s.problemRepo.Create(ctx, problem); err != nil {
		return nil, err
	}
	return s.problemRepo.GetByID(ctx, problem.ID)
}

func (s *ProblemService) Get(ctx context.Context, id uint) (*models.Problem, error) {
	return s.problemRepo.GetByID(ctx, id)
}

func (s *ProblemService) List(ctx context.Context, offset, limit int) ([]models.Problem, error) {
	return s.problemRepo.List(ctx, offset, limit)
}
