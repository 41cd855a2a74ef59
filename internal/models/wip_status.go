package models

import "strings"

// WIPStatus is the stage an experiment has reached.
type WIPStatus string

const (
	WIPIdea      WIPStatus = "idea"
	WIPExploring WIPStatus = "exploring"
	WIPPrototype WIPStatus = "prototype"
	WIPTesting   WIPStatus = "testing"
	WIPCompleted WIPStatus = "completed"
	WIPFailed    WIPStatus = "failed"

	// Legacy stages still present in older rows.
	WIPBuilt WIPStatus = "built"
	WIPWip   WIPStatus = "wip"
)

var knownWIPStatuses = map[WIPStatus]struct{}{
	WIPIdea:      {},
	WIPExploring: {},
	WIPPrototype: {},
	WIPTesting:   {},
	WIPCompleted: {},
	WIPFailed:    {},
	WIPBuilt:     {},
	WIPWip:       {},
}

// NormalizeWIPStatus maps raw input onto a known stage, defaulting to idea.
func NormalizeWIPStatus(raw string) WIPStatus {
	s := WIPStatus(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := knownWIPStatuses[s]; ok {
		return s
	}
	return WIPIdea
}
