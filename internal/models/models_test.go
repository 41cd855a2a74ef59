package models

import (
	"errors"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeWIPStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, WIPPrototype, NormalizeWIPStatus(" Prototype "))
	assert.Equal(t, WIPBuilt, NormalizeWIPStatus("built"))
	assert.Equal(t, WIPWip, NormalizeWIPStatus("wip"))
	assert.Equal(t, WIPIdea, NormalizeWIPStatus(""))
	assert.Equal(t, WIPIdea, NormalizeWIPStatus("shipped"))
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ada", (&Profile{ID: 1, Username: "ada", Email: "a@x.io"}).DisplayName())
	assert.Equal(t, "a@x.io", (&Profile{ID: 1, Email: "a@x.io"}).DisplayName())
	assert.Equal(t, "user-42", (&Profile{ID: 42}).DisplayName())
	assert.Equal(t, "user-12345678", ResolveDisplayName(nil, 1234567890))

	var missing *Profile
	assert.Equal(t, "user-0", missing.DisplayName())
}

func TestParseInsight(t *testing.T) {
	t.Parallel()

	tests := []struct {
		content string
		want    Insight
	}{
		{"[Suggest Improvement] use a jig", Insight{Type: "Suggest Improvement", Text: "use a jig"}},
		{"  [Ask Question]why 5V?", Insight{Type: "Ask Question", Text: "why 5V?"}},
		{"no prefix here", Insight{Type: InsightGeneral, Text: "no prefix here"}},
		{"[] empty type", Insight{Type: InsightGeneral, Text: "[] empty type"}},
		{"[unterminated", Insight{Type: InsightGeneral, Text: "[unterminated"}},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ParseInsight(tc.content), tc.content)
	}

	assert.Equal(t, "[Share Resource] link", FormatInsight("Share Resource", " link "))
	assert.Equal(t, ParseInsight(FormatInsight("Report Result", "it worked")), Insight{Type: "Report Result", Text: "it worked"})
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, fiber.StatusNotFound, StatusFor(NewNotFoundError("Post", 1)))
	assert.Equal(t, fiber.StatusBadRequest, StatusFor(NewValidationError("bad")))
	assert.Equal(t, fiber.StatusForbidden, StatusFor(NewForbiddenError("no")))
	assert.Equal(t, fiber.StatusUnauthorized, StatusFor(NewUnauthorizedError("who")))
	assert.Equal(t, fiber.StatusInternalServerError, StatusFor(errors.New("boom")))
	assert.Equal(t, CodeInternal, ErrorCode(NewInternalError(errors.New("db"))))
}
