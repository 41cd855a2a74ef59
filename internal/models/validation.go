package models

import "time"

// Validation is one user's endorsement of one post.
type Validation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_validation_post_user" json:"post_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_validation_post_user;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Validation) TableName() string {
	return "validations"
}
