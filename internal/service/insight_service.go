package service

import (
	"context"
	"strings"

	"labbook/internal/events"
	"labbook/internal/models"
	"labbook/internal/repository"
	"labbook/internal/validation"
)

// InsightService manages the typed insights left on experiments.
type InsightService struct {
	solutionRepo repository.SolutionRepository
	postRepo     repository.PostRepository
	events       events.Publisher
}

// AddInsightInput is one new insight.
type AddInsightInput struct {
	UserID uint
	PostID uint
	Type   string
	Text   string
}

// NewInsightService returns a new InsightService.
func NewInsightService(
	solutionRepo repository.SolutionRepository,
	postRepo repository.PostRepository,
	publisher events.Publisher,
) *InsightService {
	if publisher == nil {
		publisher = events.Discard
	}
	return &InsightService{
		solutionRepo: solutionRepo,
		postRepo:     postRepo,
		events:       publisher,
	}
}

// List returns a post's insights, oldest first, with content parsed.
func (s *InsightService) List(ctx context.Context, postID uint) ([]models.InsightView, error) {
	if _, err := s.postRepo.GetByID(ctx, postID, 0); err != nil {
		return nil, err
	}
	solutions, err := s.solutionRepo.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	views := make([]models.InsightView, 0, len(solutions))
	for i := range solutions {
		views = append(views, solutions[i].View())
	}
	return views, nil
}

func (s *InsightService) Add(ctx context.Context, in AddInsightInput) (*models.InsightView, error) {
	kind := strings.TrimSpace(in.Type)
	text := strings.TrimSpace(in.Text)
	if err := validation.ValidateInsight(kind, text); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	post, err := s.postRepo.GetByID(ctx, in.PostID, in.UserID)
	if err != nil {
		return nil, err
	}

	solution := &models.Solution{
		PostID:  post.ID,
		UserID:  in.UserID,
		Content: models.FormatInsight(kind, text),
	}
	if err := s.solutionRepo.Create(ctx, solution); err != nil {
		return nil, err
	}

	stored, err := s.solutionRepo.GetByID(ctx, solution.ID)
	if err != nil {
		return nil, err
	}
	view := stored.View()
	s.events.Publish(ctx, events.New(events.InsightAdded, view, post.UserID, in.UserID))
	return &view, nil
}

// Delete removes an insight. Its author and the post owner may delete it.
func (s *InsightService) Delete(ctx context.Context, userID, postID, insightID uint) error {
	solution, err := s.solutionRepo.GetByID(ctx, insightID)
	if err != nil {
		return err
	}
	if solution.PostID != postID {
		return models.NewNotFoundError("Insight", insightID)
	}

	if solution.UserID != userID {
		post, err := s.postRepo.GetByID(ctx, postID, 0)
		if err != nil {
			return err
		}
		if post.UserID != userID {
			return models.NewForbiddenError("Only the author or the experiment owner can delete this insight")
		}
	}

	if err := s.solutionRepo.Delete(ctx, insightID); err != nil {
		return err
	}
	s.events.Publish(ctx, events.New(events.InsightDeleted, map[string]uint{
		"post_id":    postID,
		"insight_id": insightID,
	}))
	return nil
}
