// Package featureflags evaluates on/off and percentage rollout flags from
// the FEATURE_FLAGS setting, e.g. "ai_assist=on,new_board=25%".
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
	// AIAssist gates the AI writing assistant.
	AIAssist = "ai_assist"
)

// Flag is one configured flag as listed to admins.
type Flag struct {
	Name    string `json:"name"`
	Value   string `json:"value"`
	Rollout int    `json:"rollout"`
	Enabled bool   `json:"enabled"`
}

type Manager struct {
	flags map[string]string
}

// NewManager parses a comma-separated key=value list. Malformed pairs are skipped.
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

// rollout converts a flag value to a percentage. Unknown values are 0.
func rollout(value string) int {
	switch value {
	case "on", "true", "1":
		return 100
	case "off", "false", "0":
		return 0
	}
	pctRaw, ok := strings.CutSuffix(value, "%")
	if !ok {
		return 0
	}
	pct, err := strconv.Atoi(pctRaw)
	if err != nil {
		return 0
	}
	return min(max(pct, 0), 100)
}

// Enabled reports whether a flag is on for userID. Partial rollouts are
// deterministic per user and never include anonymous callers.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}
	value, ok := m.flags[normalize(name)]
	if !ok {
		return false
	}

	pct := rollout(value)
	switch {
	case pct <= 0:
		return false
	case pct >= 100:
		return true
	case userID == 0:
		return false
	}
	return rolloutBucket(name, userID) < pct
}

// List returns every configured flag sorted by name, evaluated for userID.
func (m *Manager) List(userID uint) []Flag {
	if m == nil {
		return []Flag{}
	}
	out := make([]Flag, 0, len(m.flags))
	for name, value := range m.flags {
		out = append(out, Flag{
			Name:    name,
			Value:   value,
			Rollout: rollout(value),
			Enabled: m.Enabled(name, userID),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
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
