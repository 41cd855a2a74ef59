package repository

import (
	"context"

	"labbook/internal/cache"
	"labbook/internal/models"
	"labbook/internal/observability"

	"gorm.io/gorm"
)

// ValidationRepository defines persistence operations for validations.
type ValidationRepository interface {
	Exists(ctx context.Context, postID, userID uint) (bool, error)
	Create(ctx context.Context, postID, userID uint) error
	Add(ctx context.Context, postID, userID uint) (bool, error)
	Delete(ctx context.Context, postID, userID uint) error
	ValidatedPostIDs(ctx context.Context, userID uint, postIDs []uint) ([]uint, error)
}

type validationRepository struct {
	db *gorm.DB
}

// NewValidationRepository returns a new ValidationRepository implementation.
func NewValidationRepository(db *gorm.DB) ValidationRepository {
	return &validationRepository{db: db}
}

func (r *validationRepository) Exists(ctx context.Context, postID, userID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Validation{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// Create records the validation. A duplicate insert means the user already
// validated the post and is not an error.
func (r *validationRepository) Create(ctx context.Context, postID, userID uint) error {
	_, err := r.Add(ctx, postID, userID)
	return err
}

// Add records the validation and reports whether a new row was written. It
// is false when the user had already validated the post.
func (r *validationRepository) Add(ctx context.Context, postID, userID uint) (bool, error) {
	defer observability.TrackQuery("insert", "validations")()
	err := r.db.WithContext(ctx).Create(&models.Validation{PostID: postID, UserID: userID}).Error
	if err != nil && !isUniqueViolation(err) {
		return false, models.NewInternalError(err)
	}
	cache.Invalidate(ctx, cache.PostKey(postID))
	return err == nil, nil
}

func (r *validationRepository) Delete(ctx context.Context, postID, userID uint) error {
	defer observability.TrackQuery("delete", "validations")()
	if err := r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&models.Validation{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.Invalidate(ctx, cache.PostKey(postID))
	return nil
}

// ValidatedPostIDs returns the subset of postIDs the user validated.
func (r *validationRepository) ValidatedPostIDs(ctx context.Context, userID uint, postIDs []uint) ([]uint, error) {
	if userID == 0 || len(postIDs) == 0 {
		return nil, nil
	}
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Validation{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}
