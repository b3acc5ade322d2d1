package rules

import (
	"errors"
	"strings"
)

// Difficulty selects the target hand size and the per-turn play quota.
type Difficulty int

const (
	Normal Difficulty = iota
	Difficult
	Impossible
)

// ErrUnknownDifficulty is returned when a difficulty label cannot be parsed.
// The label is chosen locally by the host's own client, so seeing this at a
// hand-off is a programming error rather than user input gone wrong.
var ErrUnknownDifficulty = errors.New("unknown difficulty")

// String returns the canonical lower-case label for the difficulty.
func (d Difficulty) String() string {
	switch d {
	case Normal:
		return "normal"
	case Difficult:
		return "difficult"
	case Impossible:
		return "impossible"
	default:
		return "unknown"
	}
}

// ParseDifficulty converts a label back into a Difficulty. Matching is
// case-insensitive.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(s) {
	case "normal":
		return Normal, nil
	case "difficult":
		return Difficult, nil
	case "impossible":
		return Impossible, nil
	default:
		return Normal, ErrUnknownDifficulty
	}
}
