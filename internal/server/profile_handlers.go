package server

import (
	"labbook/internal/models"
	"labbook/internal/relationship"
	"labbook/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetProfile handles GET /api/profiles/:id. A signed-in viewer also gets
// their relation to the profile owner.
func (s *Server) GetProfile(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	ctx := c.UserContext()

	profile, err := s.profileService.GetProfile(ctx, id)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	resp := fiber.Map{
		"profile":      profile,
		"display_name": profile.DisplayName(),
	}
	if viewer := viewerID(c); viewer != 0 {
		view, err := s.collaboratorService.Status(ctx, viewer, id)
		if err != nil {
			return models.RespondWithError(c, mapServiceError(err), err)
		}
		resp["relation"] = view
		if view.State == relationship.StateAccepted {
			resp["online"] = s.hub.IsOnline(ctx, id)
		}
	}

	return c.JSON(resp)
}

// UpdateMyProfile handles PUT /api/profiles/me
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var req struct {
		Username  *string         `json:"username"`
		FullName  *string         `json:"full_name"`
		AvatarURL *string         `json:"avatar_url"`
		Bio       *string         `json:"bio"`
		Skills    *models.TagList `json:"skills"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	profile, err := s.profileService.UpdateMe(c.UserContext(), service.UpdateProfileInput{
		UserID:    userID,
		Username:  req.Username,
		FullName:  req.FullName,
		AvatarURL: req.AvatarURL,
		Bio:       req.Bio,
		Skills:    req.Skills,
	})
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(profile)
}
