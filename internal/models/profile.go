package models

import (
	"strconv"
	"strings"
	"time"
)

// Profile is the public record of an authenticated user.
type Profile struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:40;uniqueIndex" json:"username"`
	FullName  string    `gorm:"size:120" json:"full_name"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	AvatarURL string    `json:"avatar_url"`
	Bio       string    `gorm:"type:text" json:"bio"`
	Skills    TagList   `json:"skills"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Profile) TableName() string {
	return "profiles"
}

// DisplayName resolves the label shown for the profile:
// username, then email, then a placeholder derived from the id.
func (p *Profile) DisplayName() string {
	if p == nil {
		return PlaceholderName(0)
	}
	return ResolveDisplayName(p, p.ID)
}

// ResolveDisplayName is DisplayName for callers that may hold no profile row.
func ResolveDisplayName(p *Profile, userID uint) string {
	if p != nil {
		if name := strings.TrimSpace(p.Username); name != "" {
			return name
		}
		if email := strings.TrimSpace(p.Email); email != "" {
			return email
		}
	}
	return PlaceholderName(userID)
}

// PlaceholderName synthesizes a stable label from a truncated user id.
func PlaceholderName(userID uint) string {
	id := strconv.FormatUint(uint64(userID), 10)
	if len(id) > 8 {
		id = id[:8]
	}
	return "user-" + id
}

// ProfileSummary is the compact author block embedded in other payloads.
type ProfileSummary struct {
	ID          uint   `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Summary returns the author block for p, tolerating a nil profile.
func Summary(p *Profile, userID uint) ProfileSummary {
	s := ProfileSummary{ID: userID, DisplayName: ResolveDisplayName(p, userID)}
	if p != nil {
		s.AvatarURL = p.AvatarURL
	}
	return s
}
