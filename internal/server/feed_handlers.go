package server

import (
	"strconv"
	"time"

	"labbook/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetFeed handles GET /api/feed?page=N. Pages are zero-based.
func (s *Server) GetFeed(c *fiber.Ctx) error {
	page := c.QueryInt("page", 0)
	if page < 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid page"))
	}

	result, err := s.feedService.Page(c.UserContext(), viewerID(c), page)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(result)
}

// GetFeedUpdates handles GET /api/feed/updates?since=<RFC3339 or unix millis>
func (s *Server) GetFeedUpdates(c *fiber.Ctx) error {
	since, ok := parseSince(c.Query("since"))
	if !ok {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid since timestamp"))
	}

	updates, err := s.feedService.Updates(c.UserContext(), since)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(updates)
}

// parseSince accepts an RFC 3339 timestamp or unix milliseconds. Empty means
// the zero time.
func parseSince(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, true
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), true
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// GetFlags handles GET /api/flags and returns the flags evaluated for the viewer.
func (s *Server) GetFlags(c *fiber.Ctx) error {
	return c.JSON(s.flags.Snapshot(viewerID(c)))
}
