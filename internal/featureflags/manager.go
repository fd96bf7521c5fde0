// Package featureflags evaluates on/off and percentage rollout flags.
package featureflags

import (
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
)

// Known flags.
const (
	// ChatAssistant gates the chat proxy and conversation endpoints.
	ChatAssistant = "chat_assistant"
)

// Manager evaluates feature flags defined in a simple key=value list.
// Example: "chat_assistant=on,admin_bulk_review=25%"
type Manager struct {
	flags map[string]string
}

// NewManager creates a feature-flag manager from a comma-separated config string.
func NewManager(raw string) *Manager {
	out := make(map[string]string)

	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}

	return &Manager{flags: out}
}

// Enabled returns whether a flag is enabled for a given profile.
// Supported values:
// - on/true/1
// - off/false/0
// - N% (deterministic rollout by profile id, e.g. 25%)
func (m *Manager) Enabled(name, profileID string) bool {
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
	if profileID == "" {
		return false
	}
	return rolloutBucket(name, profileID) < pct
}

// Names returns the configured flag names in order.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.flags))
	for k := range m.flags {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns evaluated flag status for one profile.
func (m *Manager) Snapshot(profileID string) map[string]bool {
	out := make(map[string]bool, len(m.flags))
	for name := range m.flags {
		out[name] = m.Enabled(name, profileID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name, profileID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalize(name) + ":" + profileID))
	return int(h.Sum32() % 100)
}
