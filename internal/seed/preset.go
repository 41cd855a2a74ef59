package seed

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed presets/makers.yaml
var defaultPreset []byte

// Preset is the content vocabulary the seeder draws from.
type Preset struct {
	Password     string               `yaml:"password"`
	Demo         DemoProfile          `yaml:"demo"`
	Skills       []string             `yaml:"skills"`
	Feedback     []string             `yaml:"feedback"`
	InsightTypes []string             `yaml:"insight_types"`
	Problems     []ProblemTemplate    `yaml:"problems"`
	Experiments  []ExperimentTemplate `yaml:"experiments"`
}

// DemoProfile is the fixed account created for local development.
type DemoProfile struct {
	Username string   `yaml:"username"`
	Email    string   `yaml:"email"`
	FullName string   `yaml:"full_name"`
	Bio      string   `yaml:"bio"`
	Skills   []string `yaml:"skills"`
}

type ProblemTemplate struct {
	Title             string `yaml:"title"`
	Description       string `yaml:"description"`
	AffectedGroup     string `yaml:"affected_group"`
	Frequency         string `yaml:"frequency"`
	CurrentWorkaround string `yaml:"current_workaround"`
	SolutionType      string `yaml:"solution_type"`
}

type ExperimentTemplate struct {
	Title            string `yaml:"title"`
	ProblemStatement string `yaml:"problem_statement"`
	Theory           string `yaml:"theory"`
	Approach         string `yaml:"approach"`
}

// LoadPreset reads a preset file. An empty path loads the built-in preset.
func LoadPreset(path string) (*Preset, error) {
	raw := defaultPreset
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read preset: %w", err)
		}
		raw = b
	}
	return ParsePreset(raw)
}

// ParsePreset decodes a YAML preset and checks it has enough content to seed from.
func ParsePreset(raw []byte) (*Preset, error) {
	var p Preset
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parse preset: %w", err)
	}
	if p.Password == "" {
		p.Password = "Password123"
	}
	if len(p.Experiments) == 0 {
		return nil, fmt.Errorf("preset has no experiments")
	}
	if len(p.InsightTypes) == 0 {
		return nil, fmt.Errorf("preset has no insight types")
	}
	return &p, nil
}
