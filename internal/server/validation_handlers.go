package server

import (
	"labbook/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ToggleValidation handles POST /api/posts/:id/validate. It flips the
// caller's validation and answers with the resulting state and counts.
func (s *Server) ToggleValidation(c *fiber.Ctx) error {
	userID := currentUserID(c)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	s.touchProfile(c, userID)
	state, err := s.validationService.Toggle(c.UserContext(), userID, postID)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(state)
}

// GetCounts handles GET /api/posts/:id/counts
func (s *Server) GetCounts(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	counts, err := s.validationService.Counts(c.UserContext(), postID)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(counts)
}
