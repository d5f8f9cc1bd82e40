package classifier

import (
	"fmt"
	"strings"
)

// Tier is a latency-cost urgency level. Lower values are more urgent.
type Tier int

const (
	Critical Tier = iota
	High
	Medium
	Low
)

// Tiers lists every tier, most urgent first.
var Tiers = [...]Tier{Critical, High, Medium, Low}

var tierInfo = [...]struct {
	name, label, color string
}{
	Critical: {"critical", "URGENT", "#ef4444"},
	High:     {"high", "HIGH", "#f97316"},
	Medium:   {"medium", "NORMAL", "#f59e0b"},
	Low:      {"low", "LOW", "#22c55e"},
}

func (t Tier) valid() bool { return t >= Critical && t <= Low }

func (t Tier) String() string {
	if !t.valid() {
		return fmt.Sprintf("tier(%d)", int(t))
	}
	return tierInfo[t].name
}

// Label is the short display label ("URGENT", "HIGH", "NORMAL", "LOW").
func (t Tier) Label() string {
	if !t.valid() {
		return ""
	}
	return tierInfo[t].label
}

// Color is the display color as a hex string.
func (t Tier) Color() string {
	if !t.valid() {
		return ""
	}
	return tierInfo[t].color
}

// ParseTier accepts the lowercase wire names ("critical", "high", "medium", "low").
func ParseTier(s string) (Tier, bool) {
	for _, t := range Tiers {
		if tierInfo[t].name == s {
			return t, true
		}
	}
	return 0, false
}

func (t Tier) MarshalText() ([]byte, error) {
	if !t.valid() {
		return nil, fmt.Errorf("invalid tier %d", int(t))
	}
	return []byte(t.String()), nil
}

func (t *Tier) UnmarshalText(b []byte) error {
	v, ok := ParseTier(strings.ToLower(strings.TrimSpace(string(b))))
	if !ok {
		return fmt.Errorf("unknown tier %q", string(b))
	}
	*t = v
	return nil
}
