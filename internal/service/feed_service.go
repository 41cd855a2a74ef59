package service

import (
	"context"
	"time"

	"labbook/internal/cache"
	"labbook/internal/feed"
	"labbook/internal/models"
	"labbook/internal/observability"
	"labbook/internal/repository"
)

// FeedService assembles the sectioned home feed for a viewer.
type FeedService struct {
	postRepo       repository.PostRepository
	validationRepo repository.ValidationRepository
	solutionRepo   repository.SolutionRepository
	collaborators  *CollaboratorService
}

// FeedPage is one page of the home feed.
type FeedPage struct {
	feed.Sections
	Page     int  `json:"page"`
	NextPage *int `json:"next_page"`
}

// FeedUpdates answers whether posts newer than a timestamp exist.
type FeedUpdates struct {
	Available bool      `json:"available"`
	Latest    time.Time `json:"latest,omitempty"`
}

// NewFeedService returns a new FeedService.
func NewFeedService(
	postRepo repository.PostRepository,
	validationRepo repository.ValidationRepository,
	solutionRepo repository.SolutionRepository,
	collaborators *CollaboratorService,
) *FeedService {
	return &FeedService{
		postRepo:       postRepo,
		validationRepo: validationRepo,
		solutionRepo:   solutionRepo,
		collaborators:  collaborators,
	}
}

// Page loads page (zero-based) of the newest posts and ranks them for viewer.
// An anonymous viewer (id 0) has no collaborators and no engagement.
func (s *FeedService) Page(ctx context.Context, viewerID uint, page int) (_ *FeedPage, err error) {
	start := time.Now()
	if page < 0 {
		page = 0
	}
	ctx, span := observability.StartOperation(ctx, "feed.page",
		observability.UserAttr(observability.AttrViewerID, viewerID),
		observability.AttrFeedPage.Int(page))
	defer func() { observability.EndOperation(span, err) }()

	posts, err := s.postRepo.ListPage(ctx, page*feed.PageSize, feed.PageSize, viewerID)
	if err != nil {
		return nil, err
	}

	signals, err := s.signals(ctx, viewerID, posts)
	if err != nil {
		return nil, err
	}

	sections := feed.Build(posts, signals)
	observability.FeedBuildLatency.Observe(time.Since(start).Seconds())
	observability.FeedSectionSize.WithLabelValues("active_collaborations").Observe(float64(len(sections.ActiveCollaborations)))
	observability.FeedSectionSize.WithLabelValues("ongoing_discussions").Observe(float64(len(sections.OngoingDiscussions)))
	observability.FeedSectionSize.WithLabelValues("explore").Observe(float64(len(sections.Explore)))

	out := &FeedPage{Sections: sections, Page: page}
	if len(posts) == feed.PageSize {
		next := page + 1
		out.NextPage = &next
	}
	return out, nil
}

func (s *FeedService) signals(ctx context.Context, viewerID uint, posts []models.Post) (feed.Signals, error) {
	signals := feed.Signals{
		CollaboratorIDs: map[uint]struct{}{},
		Validated:       make(map[uint]bool, len(posts)),
		Commented:       make(map[uint]bool, len(posts)),
		Counts:          make(map[uint]feed.Engagement, len(posts)),
	}

	ids := make([]uint, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
		signals.Counts[p.ID] = feed.Engagement{Validations: p.ValidationsCount, Solutions: p.SolutionsCount}
	}
	if viewerID == 0 || len(posts) == 0 {
		return signals, nil
	}

	collaboratorIDs, err := s.collaborators.CollaboratorIDs(ctx, viewerID)
	if err != nil {
		return feed.Signals{}, err
	}
	signals.CollaboratorIDs = collaboratorIDs

	validated, err := s.validationRepo.ValidatedPostIDs(ctx, viewerID, ids)
	if err != nil {
		return feed.Signals{}, err
	}
	for _, id := range validated {
		signals.Validated[id] = true
	}

	commented, err := s.solutionRepo.CommentedPostIDs(ctx, viewerID, ids)
	if err != nil {
		return feed.Signals{}, err
	}
	for _, id := range commented {
		signals.Commented[id] = true
	}
	return signals, nil
}

// Updates reports whether a post newer than since has been published.
func (s *FeedService) Updates(ctx context.Context, since time.Time) (*FeedUpdates, error) {
	latest, err := s.LatestPostAt(ctx)
	if err != nil {
		return nil, err
	}
	return &FeedUpdates{Available: latest.After(since), Latest: latest}, nil
}

// LatestPostAt is the creation time of the newest post. The feed watcher
// polls it.
func (s *FeedService) LatestPostAt(ctx context.Context) (time.Time, error) {
	var latest time.Time
	err := cache.Aside(ctx, cache.LatestPostKey, &latest, cache.LatestPostTTL, func() error {
		var fetchErr error
		latest, fetchErr = s.postRepo.LatestCreatedAt(ctx)
		return fetchErr
	})
	return latest, err
}
