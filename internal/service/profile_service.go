package service

import (
	"context"
	"strings"
	"time"

	"labbook/internal/models"
	"labbook/internal/repository"
	"labbook/internal/validation"
)

// ProfileService provides profile reads and edits.
type ProfileService struct {
	profileRepo repository.ProfileRepository
}

// UpdateProfileInput carries the editable profile fields. Nil fields are left
// unchanged.
type UpdateProfileInput struct {
	UserID    uint
	Username  *string
	FullName  *string
	AvatarURL *string
	Bio       *string
	Skills    *models.TagList
}

// NewProfileService returns a new ProfileService.
func NewProfileService(profileRepo repository.ProfileRepository) *ProfileService {
	return &ProfileService{profileRepo: profileRepo}
}

func (s *ProfileService) GetProfile(ctx context.Context, id uint) (*models.Profile, error) {
	return s.profileRepo.GetByID(ctx, id)
}

// Summaries returns author blocks for ids, including placeholders for users
// without a profile row.
func (s *ProfileService) Summaries(ctx context.Context, ids []uint) ([]models.ProfileSummary, error) {
	profiles, err := s.profileRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]*models.Profile, len(profiles))
	for i := range profiles {
		byID[profiles[i].ID] = &profiles[i]
	}
	out := make([]models.ProfileSummary, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.Summary(byID[id], id))
	}
	return out, nil
}

// UpdateMe applies the caller's edits and upserts the profile.
func (s *ProfileService) UpdateMe(ctx context.Context, in UpdateProfileInput) (*models.Profile, error) {
	profile, err := s.profileRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if username != profile.Username {
			existing, lookupErr := s.profileRepo.GetByUsername(ctx, username)
			if lookupErr != nil {
				return nil, lookupErr
			}
			if existing != nil && existing.ID != profile.ID {
				return nil, models.NewValidationError("Username already taken")
			}
		}
		profile.Username = username
	}
	if in.FullName != nil {
		profile.FullName = strings.TrimSpace(*in.FullName)
	}
	if in.AvatarURL != nil {
		profile.AvatarURL = strings.TrimSpace(*in.AvatarURL)
	}
	if in.Bio != nil {
		profile.Bio = strings.TrimSpace(*in.Bio)
	}
	if in.Skills != nil {
		profile.Skills = models.TagList(models.NormalizeList(*in.Skills))
	}

	if err := validation.ValidateProfile(profile); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	profile.UpdatedAt = time.Now().UTC()
	if err := s.profileRepo.Upsert(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// Touch re-upserts the caller's profile row. Write handlers call it so a
// profile always exists for anyone who has authored content.
func (s *ProfileService) Touch(ctx context.Context, userID uint) error {
	profile, err := s.profileRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	profile.UpdatedAt = time.Now().UTC()
	return s.profileRepo.Upsert(ctx, profile)
}
