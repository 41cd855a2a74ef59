package service

import (
	"context"

	"labbook/internal/cache"
	"labbook/internal/events"
	"labbook/internal/middleware"
	"labbook/internal/models"
	"labbook/internal/observability"
	"labbook/internal/optimistic"
	"labbook/internal/repository"
)

// ValidationService toggles validations and serves engagement counts.
type ValidationService struct {
	validationRepo repository.ValidationRepository
	postRepo       repository.PostRepository
	events         events.Publisher
}

// ValidationState is the viewer's validation of one post with the post's
// engagement totals.
type ValidationState struct {
	PostID    uint              `json:"post_id"`
	Validated bool              `json:"validated"`
	Counts    models.PostCounts `json:"counts"`
}

// NewValidationService returns a new ValidationService.
func NewValidationService(
	validationRepo repository.ValidationRepository,
	postRepo repository.PostRepository,
	publisher events.Publisher,
) *ValidationService {
	if publisher == nil {
		publisher = events.Discard
	}
	return &ValidationService{
		validationRepo: validationRepo,
		postRepo:       postRepo,
		events:         publisher,
	}
}

func flipValidation(st ValidationState) ValidationState {
	st.Validated = !st.Validated
	if st.Validated {
		st.Counts.Validations++
	} else if st.Counts.Validations > 0 {
		st.Counts.Validations--
	}
	return st
}

// Toggle validates the post, or withdraws an existing validation. The cached
// counts move first and are restored if the write fails.
func (s *ValidationService) Toggle(ctx context.Context, userID, postID uint) (_ *ValidationState, err error) {
	ctx = middleware.WithPost(ctx, postID)
	ctx, span := observability.StartOperation(ctx, "validation.toggle",
		observability.UserAttr(observability.AttrViewerID, userID),
		observability.UserAttr(observability.AttrPostID, postID))
	defer func() { observability.EndOperation(span, err) }()

	post, err := s.postRepo.GetByID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}

	committed := ValidationState{PostID: post.ID, Validated: post.Validated, Counts: post.Counts()}
	show := func(ctx context.Context, st ValidationState) error {
		return cache.SetJSON(ctx, cache.CountsKey(postID), st.Counts, cache.CountsTTL)
	}
	absorbed := false
	persist := func(ctx context.Context) error {
		if committed.Validated {
			return s.validationRepo.Delete(ctx, postID, userID)
		}
		created, err := s.validationRepo.Add(ctx, postID, userID)
		absorbed = err == nil && !created
		return err
	}

	result, err := optimistic.Run(ctx, committed, flipValidation, show, persist)
	if err != nil {
		observability.OptimisticRollbacks.WithLabelValues("validation_toggle").Inc()
		return nil, err
	}
	if absorbed {
		// The validation was already stored, so the bumped count is not the
		// store's. Drop it and report the real totals.
		cache.Invalidate(ctx, cache.CountsKey(postID))
		if result.Counts, err = s.postRepo.Counts(ctx, postID); err != nil {
			return nil, err
		}
	}

	s.events.Publish(ctx, events.New(events.ValidationToggled, result, post.UserID, userID))
	return &result, nil
}

// Counts returns the engagement totals of a post, served from cache when
// possible.
func (s *ValidationService) Counts(ctx context.Context, postID uint) (models.PostCounts, error) {
	if _, err := s.postRepo.GetByID(ctx, postID, 0); err != nil {
		return models.PostCounts{}, err
	}
	var counts models.PostCounts
	err := cache.Aside(ctx, cache.CountsKey(postID), &counts, cache.CountsTTL, func() error {
		var fetchErr error
		counts, fetchErr = s.postRepo.Counts(ctx, postID)
		return fetchErr
	})
	return counts, err
}
