package validation

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"unicode/utf8"

	"labbook/internal/models"
)

const (
	MinTitleLength      = 5
	MaxTitleLength      = 200
	MinInsightLength    = 3
	MaxInsightLength    = 4000
	MaxBioLength        = 1000
	MaxSkills           = 20
	MinProblemTitle     = 10
	MinProblemDetail    = 30
	MinProblemShortText = 3
)

// SolutionTypes lists the accepted Problem.SolutionType values.
var SolutionTypes = []string{
	models.SolutionTypeTool,
	models.SolutionTypeProcess,
	models.SolutionTypeProduct,
	models.SolutionTypeResearch,
	models.SolutionTypeOther,
}

func runes(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}

func requireMin(field, value string, min int) error {
	n := runes(value)
	if n == 0 {
		return fmt.Errorf("%s is required", field)
	}
	if n < min {
		return fmt.Errorf("%s must be at least %d characters", field, min)
	}
	return nil
}

// ValidateExternalLink accepts an empty value or an absolute http(s) URL.
func ValidateExternalLink(link string) error {
	link = strings.TrimSpace(link)
	if link == "" {
		return nil
	}
	u, err := url.Parse(link)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("external link must be an http or https URL")
	}
	return nil
}

// ValidatePost checks an experiment before it is created or updated.
func ValidatePost(p *models.Post) error {
	if err := requireMin("title", p.Title, MinTitleLength); err != nil {
		return err
	}
	if runes(p.Title) > MaxTitleLength {
		return fmt.Errorf("title must not exceed %d characters", MaxTitleLength)
	}
	if runes(p.ProblemStatement) == 0 {
		return fmt.Errorf("problem statement is required")
	}
	return ValidateExternalLink(p.ExternalLink)
}

// ValidateInsight checks the type and text of a new insight.
func ValidateInsight(kind, text string) error {
	if kind != "" && !models.IsInsightType(kind) {
		return fmt.Errorf("unknown insight type %q", kind)
	}
	if err := requireMin("insight", text, MinInsightLength); err != nil {
		return err
	}
	if runes(text) > MaxInsightLength {
		return fmt.Errorf("insight must not exceed %d characters", MaxInsightLength)
	}
	return nil
}

// ValidateProblem checks a problem submission, including the confirmation
// that the problem is real.
func ValidateProblem(p *models.Problem) error {
	if err := requireMin("title", p.Title, MinProblemTitle); err != nil {
		return err
	}
	if err := requireMin("description", p.Description, MinProblemDetail); err != nil {
		return err
	}
	if err := requireMin("affected group", p.AffectedGroup, MinProblemShortText); err != nil {
		return err
	}
	if err := requireMin("frequency", p.Frequency, MinProblemShortText); err != nil {
		return err
	}
	if err := requireMin("current workaround", p.CurrentWorkaround, MinProblemShortText); err != nil {
		return err
	}
	if !slices.Contains(SolutionTypes, strings.ToLower(strings.TrimSpace(p.SolutionType))) {
		return fmt.Errorf("solution type must be one of %s", strings.Join(SolutionTypes, ", "))
	}
	if !p.IsRealConfirmation {
		return fmt.Errorf("please confirm this is a real problem")
	}
	return nil
}

// ValidateProfile checks editable profile fields.
func ValidateProfile(p *models.Profile) error {
	if p.Username != "" {
		if err := ValidateUsername(p.Username); err != nil {
			return err
		}
	}
	if runes(p.Bio) > MaxBioLength {
		return fmt.Errorf("bio must not exceed %d characters", MaxBioLength)
	}
	if len(p.Skills) > MaxSkills {
		return fmt.Errorf("at most %d skills are allowed", MaxSkills)
	}
	return nil
}
