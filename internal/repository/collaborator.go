package repository

import (
	"context"

	"labbook/internal/models"
	"labbook/internal/observability"

	"gorm.io/gorm"
)

// CollaboratorRepository defines persistence operations for collaboration
// relations. Several rows may exist per pair; callers resolve the latest.
type CollaboratorRepository interface {
	Between(ctx context.Context, userID1, userID2 uint) ([]models.Collaborator, error)
	ListInvolving(ctx context.Context, userID uint) ([]models.Collaborator, error)
	Create(ctx context.Context, relation *models.Collaborator) error
	UpdateStatus(ctx context.Context, id uint, status models.CollaboratorStatus) error
	DeleteBetween(ctx context.Context, userID1, userID2 uint) error
}

type collaboratorRepository struct {
	db *gorm.DB
}

// NewCollaboratorRepository returns a new CollaboratorRepository implementation.
func NewCollaboratorRepository(db *gorm.DB) CollaboratorRepository {
	return &collaboratorRepository{db: db}
}

// Between returns every row for the unordered pair, newest first.
func (r *collaboratorRepository) Between(ctx context.Context, userID1, userID2 uint) ([]models.Collaborator, error) {
	defer observability.TrackQuery("select", "collaborators")()
	rows := []models.Collaborator{}
	if err := r.db.WithContext(ctx).
		Where("(requester_id = ? AND receiver_id = ?) OR (requester_id = ? AND receiver_id = ?)",
			userID1, userID2, userID2, userID1).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}

// ListInvolving returns every row the user takes part in, newest first, with
// both participants loaded.
func (r *collaboratorRepository) ListInvolving(ctx context.Context, userID uint) ([]models.Collaborator, error) {
	defer observability.TrackQuery("select", "collaborators")()
	rows := []models.Collaborator{}
	if err := r.db.WithContext(ctx).
		Where("requester_id = ? OR receiver_id = ?", userID, userID).
		Preload("Requester").
		Preload("Receiver").
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}

func (r *collaboratorRepository) Create(ctx context.Context, relation *models.Collaborator) error {
	defer observability.TrackQuery("insert", "collaborators")()
	if err := r.db.WithContext(ctx).Create(relation).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *collaboratorRepository) UpdateStatus(ctx context.Context, id uint, status models.CollaboratorStatus) error {
	defer observability.TrackQuery("update", "collaborators")()
	res := r.db.WithContext(ctx).
		Model(&models.Collaborator{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Collaboration", id)
	}
	return nil
}

// DeleteBetween removes every row for the unordered pair so no older row can
// resurface as the latest. Deleting an empty pair is not an error.
func (r *collaboratorRepository) DeleteBetween(ctx context.Context, userID1, userID2 uint) error {
	defer observability.TrackQuery("delete", "collaborators")()
	if err := r.db.WithContext(ctx).
		Where("(requester_id = ? AND receiver_id = ?) OR (requester_id = ? AND receiver_id = ?)",
			userID1, userID2, userID2, userID1).
		Delete(&models.Collaborator{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
