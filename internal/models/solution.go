package models

import (
	"strings"
	"time"
)

// Solution is an insight left on a post. Content carries a bracketed type
// prefix, e.g. "[Suggest Improvement] try a smaller batch".
type Solution struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Author    *Profile  `gorm:"foreignKey:UserID" json:"author,omitempty"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Solution) TableName() string {
	return "solutions"
}

// Insight types offered when writing a solution.
const (
	InsightGeneral             = "General"
	InsightSuggestImprovement  = "Suggest Improvement"
	InsightAlternativeApproach = "Alternative Approach"
	InsightShareResource       = "Share Resource"
	InsightAskQuestion         = "Ask Question"
	InsightReportResult        = "Report Result"
)

// InsightTypes lists the types accepted on input.
var InsightTypes = []string{
	InsightGeneral,
	InsightSuggestImprovement,
	InsightAlternativeApproach,
	InsightShareResource,
	InsightAskQuestion,
	InsightReportResult,
}

// Insight is the parsed form of Solution.Content.
type Insight struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ParseInsight splits "[Type] text" into its parts. Content without a
// well-formed prefix is a General insight.
func ParseInsight(content string) Insight {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "[") {
		if end := strings.Index(trimmed, "]"); end > 1 {
			kind := strings.TrimSpace(trimmed[1:end])
			if kind != "" {
				return Insight{Type: kind, Text: strings.TrimSpace(trimmed[end+1:])}
			}
		}
	}
	return Insight{Type: InsightGeneral, Text: trimmed}
}

// FormatInsight encodes an insight for storage.
func FormatInsight(kind, text string) string {
	kind = strings.TrimSpace(kind)
	if kind == "" {
		kind = InsightGeneral
	}
	return "[" + kind + "] " + strings.TrimSpace(text)
}

// IsInsightType reports whether kind is one of InsightTypes.
func IsInsightType(kind string) bool {
	for _, t := range InsightTypes {
		if t == kind {
			return true
		}
	}
	return false
}

// InsightView is a solution with its content already parsed.
type InsightView struct {
	ID        uint           `json:"id"`
	PostID    uint           `json:"post_id"`
	Author    ProfileSummary `json:"author"`
	Type      string         `json:"type"`
	Text      string         `json:"text"`
	CreatedAt time.Time      `json:"created_at"`
}

// View renders the solution for API responses.
func (s *Solution) View() InsightView {
	in := ParseInsight(s.Content)
	return InsightView{
		ID:        s.ID,
		PostID:    s.PostID,
		Author:    Summary(s.Author, s.UserID),
		Type:      in.Type,
		Text:      in.Text,
		CreatedAt: s.CreatedAt,
	}
}
