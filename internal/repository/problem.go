package repository

import (
	"context"
	"errors"

	"labbook/internal/models"
	"labbook/internal/observability"

	"gorm.io/gorm"
)

// ProblemRepository defines persistence operations for problems.
type ProblemRepository interface {
	Create(ctx context.Context, problem *models.Problem) error
	GetByID(ctx context.Context, id uint) (*models.Problem, error)
	List(ctx context.Context, offset, limit int) ([]models.Problem, error)
}

type problemRepository struct {
	db *gorm.DB
}

// NewProblemRepository returns a new ProblemRepository implementation.
func NewProblemRepository(db *gorm.DB) ProblemRepository {
	return &problemRepository{db: db}
}

func (r *problemRepository) Create(ctx context.Context, problem *models.Problem) error {
	defer observability.TrackQuery("insert", "problems")()
	if err := r.db.WithContext(ctx).Create(problem).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *problemRepository) GetByID(ctx context.Context, id uint) (*models.Problem, error) {
	var problem models.Problem
	if err := r.db.WithContext(ctx).Preload("Submitter").First(&problem, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Problem", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &problem, nil
}

func (r *problemRepository) List(ctx context.Context, offset, limit int) ([]models.Problem, error) {
	defer observability.TrackQuery("select", "problems")()
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	problems := []models.Problem{}
	if err := r.db.WithContext(ctx).
		Preload("Submitter").
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&problems).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return problems, nil
}
