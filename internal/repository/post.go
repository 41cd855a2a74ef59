package repository

import (
	"context"
	"errors"
	"time"

	"labbook/internal/cache"
	"labbook/internal/models"
	"labbook/internal/observability"

	"gorm.io/gorm"
)

// PostRepository defines persistence operations for experiments.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error)
	ListPage(ctx context.Context, offset, limit int, viewerID uint) ([]models.Post, error)
	ListByUser(ctx context.Context, userID uint, offset, limit int, viewerID uint) ([]models.Post, error)
	ListByProblem(ctx context.Context, problemID uint, offset, limit int, viewerID uint) ([]models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
	LatestCreatedAt(ctx context.Context) (time.Time, error)
	Counts(ctx context.Context, postID uint) (models.PostCounts, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository returns a new PostRepository implementation.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("insert", "posts")()
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.Invalidate(ctx, cache.LatestPostKey)
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error) {
	var post models.Post
	fetch := func() error {
		defer observability.TrackQuery("select", "posts")()
		err := r.applyPostDetails(r.db.WithContext(ctx), viewerID).
			Preload("Author").
			First(&post, id).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Post", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	}

	var err error
	if viewerID == 0 {
		err = cache.Aside(ctx, cache.PostKey(id), &post, cache.PostTTL, fetch)
	} else {
		err = fetch()
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// ListPage returns posts newest first, the order the feed loads pages in.
func (r *postRepository) ListPage(ctx context.Context, offset, limit int, viewerID uint) ([]models.Post, error) {
	return r.list(ctx, r.db.WithContext(ctx), offset, limit, viewerID)
}

func (r *postRepository) ListByUser(ctx context.Context, userID uint, offset, limit int, viewerID uint) ([]models.Post, error) {
	return r.list(ctx, r.db.WithContext(ctx).Where("posts.user_id = ?", userID), offset, limit, viewerID)
}

func (r *postRepository) ListByProblem(ctx context.Context, problemID uint, offset, limit int, viewerID uint) ([]models.Post, error) {
	return r.list(ctx, r.db.WithContext(ctx).Where("posts.problem_id = ?", problemID), offset, limit, viewerID)
}

func (r *postRepository) list(_ context.Context, base *gorm.DB, offset, limit int, viewerID uint) ([]models.Post, error) {
	defer observability.TrackQuery("select", "posts")()
	if limit <= 0 {
		limit = 15
	}
	if offset < 0 {
		offset = 0
	}
	posts := []models.Post{}
	err := r.applyPostDetails(base, viewerID).
		Preload("Author").
		Order("posts.created_at DESC").
		Order("posts.id DESC").
		Offset(offset).
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("update", "posts")()
	err := r.db.WithContext(ctx).Model(post).Select(
		"title", "problem_statement", "theory", "approach", "explanation",
		"observations", "reflection", "feedback_needed", "external_link",
		"media_url", "wip_status", "problem_id", "updated_at",
	).Updates(post).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.Invalidate(ctx, cache.PostKey(post.ID))
	return nil
}

// Delete removes the post together with its insights and validations.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	defer observability.TrackQuery("delete", "posts")()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Solution{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Validation{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Post", id)
		}
		return nil
	})
	if err != nil {
		if models.ErrorCode(err) != "" {
			return err
		}
		return models.NewInternalError(err)
	}
	cache.Invalidate(ctx, cache.PostKey(id), cache.CountsKey(id), cache.LatestPostKey)
	return nil
}

// LatestCreatedAt returns the creation time of the newest post, or the zero
// time when there are none.
func (r *postRepository) LatestCreatedAt(ctx context.Context) (time.Time, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Select("id", "created_at").
		Order("created_at DESC").
		Order("id DESC").
		Limit(1).
		Find(&post).Error
	if err != nil {
		return time.Time{}, models.NewInternalError(err)
	}
	return post.CreatedAt, nil
}

func (r *postRepository) Counts(ctx context.Context, postID uint) (models.PostCounts, error) {
	var validations, solutions int64
	if err := r.db.WithContext(ctx).Model(&models.Validation{}).Where("post_id = ?", postID).Count(&validations).Error; err != nil {
		return models.PostCounts{}, models.NewInternalError(err)
	}
	if err := r.db.WithContext(ctx).Model(&models.Solution{}).Where("post_id = ?", postID).Count(&solutions).Error; err != nil {
		return models.PostCounts{}, models.NewInternalError(err)
	}
	return models.PostCounts{Validations: int(validations), Solutions: int(solutions)}, nil
}

func (r *postRepository) applyPostDetails(db *gorm.DB, viewerID uint) *gorm.DB {
	selectQuery := "posts.*, " +
		"(SELECT COUNT(*) FROM validations WHERE validations.post_id = posts.id) as validations_count, " +
		"(SELECT COUNT(*) FROM solutions WHERE solutions.post_id = posts.id) as solutions_count"

	if viewerID != 0 {
		return db.Select(selectQuery+", EXISTS(SELECT 1 FROM validations WHERE validations.post_id = posts.id AND validations.user_id = ?) as validated", viewerID)
	}

	return db.Select(selectQuery + ", false as validated")
}
