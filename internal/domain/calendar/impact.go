package calendar

import (
	"encoding/json"
	"strconv"
	"strings"

	"calendarbot/pkg/errors"
)

// Impact is the three-level ordinal significance of an event
type Impact int

const (
	ImpactLow    Impact = 1
	ImpactMedium Impact = 2
	ImpactHigh   Impact = 3
)

// Valid checks if impact level is valid
func (i Impact) Valid() bool {
	switch i {
	case ImpactLow, ImpactMedium, ImpactHigh:
		return true
	}
	return false
}

// String returns string representation
func (i Impact) String() string {
	switch i {
	case ImpactHigh:
		return "High"
	case ImpactMedium:
		return "Medium"
	default:
		return "Low"
	}
}

// Emoji returns the colored dot shown next to events
func (i Impact) Emoji() string {
	switch i {
	case ImpactHigh:
		return "🔴"
	case ImpactMedium:
		return "🟠"
	default:
		return "🟢"
	}
}

// ParseImpact strictly parses a configured impact name
func ParseImpact(s string) (Impact, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return ImpactLow, nil
	case "medium":
		return ImpactMedium, nil
	case "high":
		return ImpactHigh, nil
	}
	return ImpactLow, errors.Wrapf(errors.ErrInvalidInput, "unknown impact %q", s)
}

// LenientImpact maps any textual, emoji or numeric representation onto the scale.
// Unknown values are Low.
func LenientImpact(s string) Impact {
	s = strings.TrimSpace(s)
	switch s {
	case "🔴":
		return ImpactHigh
	case "🟠":
		return ImpactMedium
	}
	if impact, err := ParseImpact(s); err == nil {
		return impact
	}
	if n, err := strconv.Atoi(s); err == nil && Impact(n).Valid() {
		return Impact(n)
	}
	return ImpactLow
}

// MarshalJSON writes the impact as "Low", "Medium" or "High"
func (i Impact) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.String())
}

// UnmarshalJSON accepts names, emoji and numbers
func (i *Impact) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n int
		if err := json.Unmarshal(data, &n); err != nil {
			*i = ImpactLow
			return nil
		}
		s = strconv.Itoa(n)
	}
	*i = LenientImpact(s)
	return nil
}
