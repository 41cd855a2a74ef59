package server

import (
	"labbook/internal/models"
	"labbook/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetProblems handles GET /api/problems
func (s *Server) GetProblems(c *fiber.Ctx) error {
	page := parsePagination(c, defaultListLimit)
	problems, err := s.problemService.List(c.UserContext(), page.Offset, page.Limit)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(problems)
}

// GetProblem handles GET /api/problems/:id
func (s *Server) GetProblem(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	problem, err := s.problemService.Get(c.UserContext(), id)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(problem)
}

// GetProblemExperiments handles GET /api/problems/:id/experiments
func (s *Server) GetProblemExperiments(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	ctx := c.UserContext()
	if _, err := s.problemService.Get(ctx, id); err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	page := parsePagination(c, defaultListLimit)
	posts, err := s.postService.ListByProblem(ctx, id, page.Offset, page.Limit, viewerID(c))
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(posts)
}

// CreateProblem handles POST /api/problems
func (s *Server) CreateProblem(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var req service.CreateProblemInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	req.UserID = userID

	s.touchProfile(c, userID)
	problem, err := s.problemService.Create(c.UserContext(), req)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.Status(fiber.StatusCreated).JSON(problem)
}
