package service

import (
	"context"
	"strings"

	"labbook/internal/events"
	"labbook/internal/models"
	"labbook/internal/repository"
	"labbook/internal/validation"
)

// PostService provides experiment authoring and reads.
type PostService struct {
	postRepo    repository.PostRepository
	problemRepo repository.ProblemRepository
	events      events.Publisher
}

// PostInput is the experiment payload for create and update.
type PostInput struct {
	Title            string         `json:"title"`
	ProblemStatement string         `json:"problem_statement"`
	Theory           string         `json:"theory"`
	Approach         string         `json:"approach"`
	Explanation      string         `json:"explanation"`
	Observations     string         `json:"observations"`
	Reflection       string         `json:"reflection"`
	FeedbackNeeded   models.TagList `json:"feedback_needed"`
	ExternalLink     string         `json:"external_link"`
	MediaURL         string         `json:"media_url"`
	WIPStatus        string         `json:"wip_status"`
	ProblemID        *uint          `json:"problem_id"`
}

// CreatePostInput is PostInput plus the author.
type CreatePostInput struct {
	UserID uint
	PostInput
}

// UpdatePostInput is PostInput plus the caller and target post.
type UpdatePostInput struct {
	UserID uint
	PostID uint
	PostInput
}

// NewPostService returns a new PostService.
func NewPostService(
	postRepo repository.PostRepository,
	problemRepo repository.ProblemRepository,
	publisher events.Publisher,
) *PostService {
	if publisher == nil {
		publisher = events.Discard
	}
	return &PostService{
		postRepo:    postRepo,
		problemRepo: problemRepo,
		events:      publisher,
	}
}

func (in PostInput) apply(p *models.Post) {
	p.Title = strings.TrimSpace(in.Title)
	p.ProblemStatement = strings.TrimSpace(in.ProblemStatement)
	p.Theory = strings.TrimSpace(in.Theory)
	p.Approach = strings.TrimSpace(in.Approach)
	p.Explanation = strings.TrimSpace(in.Explanation)
	p.Observations = strings.TrimSpace(in.Observations)
	p.Reflection = strings.TrimSpace(in.Reflection)
	p.FeedbackNeeded = models.TagList(models.NormalizeList(in.FeedbackNeeded))
	p.ExternalLink = strings.TrimSpace(in.ExternalLink)
	p.MediaURL = strings.TrimSpace(in.MediaURL)
	p.WIPStatus = models.NormalizeWIPStatus(in.WIPStatus)
	p.ProblemID = in.ProblemID
}

func (s *PostService) checkProblem(ctx context.Context, problemID *uint) error {
	if problemID == nil {
		return nil
	}
	if _, err := s.problemRepo.GetByID(ctx, *problemID); err != nil {
		if models.ErrorCode(err) == models.CodeNotFound {
			return models.NewValidationError("Linked problem does not exist")
		}
		return err
	}
	return nil
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	post := &models.Post{UserID: in.UserID}
	in.apply(post)
	if err := validation.ValidatePost(post); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := s.checkProblem(ctx, post.ProblemID); err != nil {
		return nil, err
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}

	created, err := s.postRepo.GetByID(ctx, post.ID, in.UserID)
	if err != nil {
		return nil, err
	}
	s.events.Publish(ctx, events.New(events.PostCreated, created))
	return created, nil
}

func (s *PostService) GetPost(ctx context.Context, id, viewerID uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id, viewerID)
}

func (s *PostService) ListByUser(ctx context.Context, userID uint, offset, limit int, viewerID uint) ([]models.Post, error) {
	return s.postRepo.ListByUser(ctx, userID, offset, limit, viewerID)
}

// ListByProblem returns the experiments that answer a problem.
func (s *PostService) ListByProblem(ctx context.Context, problemID uint, offset, limit int, viewerID uint) ([]models.Post, error) {
	if _, err := s.problemRepo.GetByID(ctx, problemID); err != nil {
		return nil, err
	}
	return s.postRepo.ListByProblem(ctx, problemID, offset, limit, viewerID)
}

func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID, in.UserID)
	if err != nil {
		return nil, err
	}
	if post.UserID != in.UserID {
		return nil, models.NewForbiddenError("You can only edit your own experiments")
	}

	in.apply(post)
	if err := validation.ValidatePost(post); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := s.checkProblem(ctx, post.ProblemID); err != nil {
		return nil, err
	}
	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}

	updated, err := s.postRepo.GetByID(ctx, post.ID, in.UserID)
	if err != nil {
		return nil, err
	}
	s.events.Publish(ctx, events.New(events.PostUpdated, updated))
	return updated, nil
}

// DeletePost removes an experiment with its insights and validations.
func (s *PostService) DeletePost(ctx context.Context, userID, postID uint) error {
	post, err := s.postRepo.GetByID(ctx, postID, userID)
	if err != nil {
		return err
	}
	if post.UserID != userID {
		return models.NewForbiddenError("You can only delete your own experiments")
	}
	if err := s.postRepo.Delete(ctx, postID); err != nil {
		return err
	}
	s.events.Publish(ctx, events.New(events.PostDeleted, map[string]uint{"post_id": postID}))
	return nil
}
