package confidence

import (
	"fmt"
	"strings"
)

// Level is a coarse reliability tag attached to an extracted fact.
// The zero value is Unscored, used by producers that cannot tell how a fact was obtained.
type Level int

const (
	Unscored Level = iota
	Low
	Medium
	High
)

// Levels lists the scored levels from most to least reliable.
var Levels = []Level{High, Medium, Low}

// Weight returns the numeric weight of the level. Unscored weighs 0.
func (l Level) Weight() float64 {
	switch l {
	case High:
		return 1.0
	case Medium:
		return 0.7
	case Low:
		return 0.4
	default:
		return 0
	}
}

// IsAtLeast reports whether l is as reliable as min or more.
func (l Level) IsAtLeast(min Level) bool {
	return l >= min
}

func (l Level) String() string {
	switch l {
	case High:
		return "HIGH"
	case Medium:
		return "MEDIUM"
	case Low:
		return "LOW"
	default:
		return "UNSCORED"
	}
}

// Parse converts a level name into a Level. Matching is case-insensitive.
func Parse(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "HIGH":
		return High, nil
	case "MEDIUM":
		return Medium, nil
	case "LOW":
		return Low, nil
	case "", "UNSCORED":
		return Unscored, nil
	}
	return Unscored, fmt.Errorf("unknown confidence level %q", s)
}

func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
