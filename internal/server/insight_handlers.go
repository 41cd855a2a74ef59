package server

import (
	"labbook/internal/models"
	"labbook/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetInsights handles GET /api/posts/:id/insights
func (s *Server) GetInsights(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	insights, err := s.insightService.List(c.UserContext(), postID)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(insights)
}

// CreateInsight handles POST /api/posts/:id/insights
func (s *Server) CreateInsight(c *fiber.Ctx) error {
	userID := currentUserID(c)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	s.touchProfile(c, userID)
	insight, err := s.insightService.Add(c.UserContext(), service.AddInsightInput{
		UserID: userID,
		PostID: postID,
		Type:   req.Type,
		Text:   req.Text,
	})
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.Status(fiber.StatusCreated).JSON(insight)
}

// DeleteInsight handles DELETE /api/posts/:id/insights/:insightId
func (s *Server) DeleteInsight(c *fiber.Ctx) error {
	userID := currentUserID(c)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	insightID, err := s.parseID(c, "insightId")
	if err != nil {
		return nil
	}

	if err := s.insightService.Delete(c.UserContext(), userID, postID, insightID); err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(fiber.Map{"message": "Insight deleted"})
}
