package models

import "time"

// Solution types a problem submitter can ask for.
const (
	SolutionTypeTool     = "tool"
	SolutionTypeProcess  = "process"
	SolutionTypeProduct  = "product"
	SolutionTypeResearch = "research"
	SolutionTypeOther    = "other"
)

// Problem is a public description of a real-world need.
type Problem struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	UserID             uint      `gorm:"not null;index" json:"user_id"`
	Submitter          *Profile  `gorm:"foreignKey:UserID" json:"submitter,omitempty"`
	Title              string    `gorm:"size:200;not null" json:"title"`
	Description        string    `gorm:"type:text;not null" json:"description"`
	AffectedGroup      string    `gorm:"size:200;not null" json:"affected_group"`
	Frequency          string    `gorm:"size:60;not null" json:"frequency"`
	CurrentWorkaround  string    `gorm:"type:text;not null" json:"current_workaround"`
	SolutionType       string    `gorm:"size:40;not null" json:"solution_type"`
	ExpectedOutcome    string    `gorm:"type:text" json:"expected_outcome,omitempty"`
	AdditionalContext  string    `gorm:"type:text" json:"additional_context,omitempty"`
	IsRealConfirmation bool      `gorm:"not null;default:false" json:"is_real_confirmation"`
	CreatedAt          time.Time `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Problem) TableName() string {
	return "problems"
}
