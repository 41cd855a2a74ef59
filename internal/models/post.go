// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// Post is an experiment: a work-in-progress research write-up.
type Post struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"not null;index" json:"user_id"`
	Author           *Profile  `gorm:"foreignKey:UserID" json:"author,omitempty"`
	Title            string    `gorm:"size:200;not null" json:"title"`
	ProblemStatement string    `gorm:"type:text" json:"problem_statement"`
	Theory           string    `gorm:"type:text" json:"theory"`
	Approach         string    `gorm:"type:text" json:"approach"`
	Explanation      string    `gorm:"type:text" json:"explanation"`
	Observations     string    `gorm:"type:text" json:"observations"`
	Reflection       string    `gorm:"type:text" json:"reflection"`
	FeedbackNeeded   TagList   `json:"feedback_needed"`
	ExternalLink     string    `json:"external_link"`
	MediaURL         string    `json:"media_url"`
	WIPStatus        WIPStatus `gorm:"type:varchar(20);default:'idea';index" json:"wip_status"`
	ProblemID        *uint     `gorm:"index" json:"problem_id,omitempty"`
	// ValidationsCount is not persisted; computed at query time
	ValidationsCount int `gorm:"->;-:migration" json:"validations_count"`
	// SolutionsCount is not persisted; computed at query time
	SolutionsCount int `gorm:"->;-:migration" json:"solutions_count"`
	// Validated reports whether the requesting viewer validated this post (computed)
	Validated bool      `gorm:"->;-:migration" json:"validated"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Post) TableName() string {
	return "posts"
}

// BeforeSave keeps the stored stage inside the known set.
func (p *Post) BeforeSave(_ *gorm.DB) error {
	p.WIPStatus = NormalizeWIPStatus(string(p.WIPStatus))
	return nil
}

// AfterFind normalizes legacy or corrupt stage values on read.
func (p *Post) AfterFind(_ *gorm.DB) error {
	p.WIPStatus = NormalizeWIPStatus(string(p.WIPStatus))
	return nil
}

// PostCounts are the engagement totals of one post.
type PostCounts struct {
	Validations int `json:"validations"`
	Solutions   int `json:"solutions"`
}

// Counts returns the computed engagement totals loaded with the post.
func (p *Post) Counts() PostCounts {
	return PostCounts{Validations: p.ValidationsCount, Solutions: p.SolutionsCount}
}
