// Package featureflags evaluates runtime switches for optional live
// behaviour such as feed polling and presence broadcasts.
package featureflags

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
)

// Known flags.
const (
	// LiveFeed turns on the background poll that announces new experiments.
	LiveFeed = "live_feed"
	// Presence turns on online/offline notices to a user's collaborators.
	Presence = "presence"
)

// Defaults is applied before FEATURE_FLAGS so an empty setting keeps every
// known flag on.
const Defaults = "live_feed=on,presence=on"

// Manager evaluates feature flags defined in a key=value list such as
// "live_feed=on,presence=25%".
type Manager struct {
	flags map[string]string
}

// NewManager parses Defaults and then raw; entries in raw override defaults.
// Malformed pairs are skipped.
func NewManager(raw string) *Manager {
	out := make(map[string]string)
	parseInto(out, Defaults)
	parseInto(out, raw)
	return &Manager{flags: out}
}

func parseInto(out map[string]string, raw string) {
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
}

// Enabled reports whether name is on for userID. Values are on/true/1,
// off/false/0 or a percentage rollout like 25%, bucketed per user. Unknown
// flags are off, and percentage flags are off for anonymous viewers.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}
	value, ok := m.flags[normalize(name)]
	if !ok {
		return false
	}

	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	pctRaw, isPct := strings.CutSuffix(value, "%")
	if !isPct {
		return false
	}
	pct, err := strconv.Atoi(pctRaw)
	if err != nil || pct <= 0 {
		return false
	}
	if pct >= 100 {
		return true
	}
	if userID == 0 {
		return false
	}
	return rolloutBucket(name, userID) < pct
}

// Names lists the configured flags in order.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.flags))
	for k := range m.flags {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns the evaluated state of every flag for one viewer.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	out := make(map[string]bool, len(m.flags))
	for name := range m.flags {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = fmt.Fprintf(h, "%s:%d", normalize(name), userID)
	return int(h.Sum32() % 100)
}
