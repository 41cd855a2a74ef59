package repository

import (
	"context"
	"errors"

	"labbook/internal/cache"
	"labbook/internal/models"
	"labbook/internal/observability"

	"gorm.io/gorm"
)

// SolutionRepository defines persistence operations for insights.
type SolutionRepository interface {
	Create(ctx context.Context, solution *models.Solution) error
	GetByID(ctx context.Context, id uint) (*models.Solution, error)
	ListByPost(ctx context.Context, postID uint) ([]models.Solution, error)
	Delete(ctx context.Context, id uint) error
	CommentedPostIDs(ctx context.Context, userID uint, postIDs []uint) ([]uint, error)
}

type solutionRepository struct {
	db *gorm.DB
}

// NewSolutionRepository returns a new SolutionRepository implementation.
func NewSolutionRepository(db *gorm.DB) SolutionRepository {
	return &solutionRepository{db: db}
}

func (r *solutionRepository) Create(ctx context.Context, solution *models.Solution) error {
	defer observability.TrackQuery("insert", "solutions")()
	if err := r.db.WithContext(ctx).Create(solution).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.Invalidate(ctx, cache.PostKey(solution.PostID), cache.CountsKey(solution.PostID))
	return nil
}

func (r *solutionRepository) GetByID(ctx context.Context, id uint) (*models.Solution, error) {
	var solution models.Solution
	if err := r.db.WithContext(ctx).Preload("Author").First(&solution, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Insight", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &solution, nil
}

// ListByPost returns the insights on a post, oldest first.
func (r *solutionRepository) ListByPost(ctx context.Context, postID uint) ([]models.Solution, error) {
	defer observability.TrackQuery("select", "solutions")()
	solutions := []models.Solution{}
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&solutions).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return solutions, nil
}

func (r *solutionRepository) Delete(ctx context.Context, id uint) error {
	var solution models.Solution
	if err := r.db.WithContext(ctx).Select("id", "post_id").First(&solution, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Insight", id)
		}
		return models.NewInternalError(err)
	}
	if err := r.db.WithContext(ctx).Delete(&models.Solution{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.Invalidate(ctx, cache.PostKey(solution.PostID), cache.CountsKey(solution.PostID))
	return nil
}

// CommentedPostIDs returns the subset of postIDs the user left an insight on.
func (r *solutionRepository) CommentedPostIDs(ctx context.Context, userID uint, postIDs []uint) ([]uint, error) {
	if userID == 0 || len(postIDs) == 0 {
		return nil, nil
	}
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Solution{}).
		Distinct("post_id").
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}
