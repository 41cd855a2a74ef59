package server

import (
	"labbook/internal/models"

	"github.com/gofiber/fiber/v2"
)

// CollaboratorEntry is an accepted collaborator with live presence.
type CollaboratorEntry struct {
	models.ProfileSummary
	Online bool `json:"online"`
}

// GetCollaborators handles GET /api/collaborators
func (s *Server) GetCollaborators(c *fiber.Ctx) error {
	ctx := c.UserContext()
	summaries, err := s.collaboratorService.ListCollaborators(ctx, currentUserID(c))
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	out := make([]CollaboratorEntry, 0, len(summaries))
	for _, p := range summaries {
		out = append(out, CollaboratorEntry{ProfileSummary: p, Online: s.hub.IsOnline(ctx, p.ID)})
	}
	return c.JSON(out)
}

// GetCollaboratorRequests handles GET /api/collaborators/requests
func (s *Server) GetCollaboratorRequests(c *fiber.Ctx) error {
	requests, err := s.collaboratorService.ListIncoming(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(requests)
}

// GetCollaboratorStatus handles GET /api/collaborators/:userId/status
func (s *Server) GetCollaboratorStatus(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	view, err := s.collaboratorService.Status(c.UserContext(), currentUserID(c), targetID)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(view)
}

// ActOnCollaborator handles POST /api/collaborators/:userId/act. The single
// action button requests, accepts or, with confirm set, disconnects depending
// on the current state.
func (s *Server) ActOnCollaborator(c *fiber.Ctx) error {
	userID := currentUserID(c)
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	var req struct {
		Confirm bool `json:"confirm"`
	}
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return nil
		}
	}

	s.touchProfile(c, userID)
	result, err := s.collaboratorService.Act(c.UserContext(), userID, targetID, req.Confirm)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(result)
}

// DeclineCollaborator handles POST /api/collaborators/:userId/decline
func (s *Server) DeclineCollaborator(c *fiber.Ctx) error {
	userID := currentUserID(c)
	requesterID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	result, err := s.collaboratorService.Decline(c.UserContext(), userID, requesterID)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(result)
}
