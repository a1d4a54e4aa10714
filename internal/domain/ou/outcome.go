// Package ou holds the over/under vocabulary shared by every streak system:
// game outcomes, betting recommendations and the tables that grade one
// against the other.
package ou

import (
	"fmt"
	"math"
	"strings"
)

// Outcome is the over/under result of one team on one date.
type Outcome uint8

const (
	// Skip means there is no usable result for the date. It is the zero value.
	Skip Outcome = iota
	Push
	Over
	Under
)

var outcomeLabels = [...]string{
	Skip:  "Skip",
	Push:  "Push",
	Over:  "Over",
	Under: "Under",
}

func (o Outcome) String() string {
	if int(o) < len(outcomeLabels) {
		return outcomeLabels[o]
	}
	return fmt.Sprintf("Outcome(%d)", uint8(o))
}

// Directional reports whether the outcome is Over or Under.
func (o Outcome) Directional() bool {
	return o == Over || o == Under
}

// Opposite returns the other directional side. Non-directional outcomes are
// returned unchanged.
func (o Outcome) Opposite() Outcome {
	switch o {
	case Over:
		return Under
	case Under:
		return Over
	default:
		return o
	}
}

// FromMargin labels a numeric margin. A missing or non-finite margin is Skip.
func FromMargin(margin float64, ok bool) Outcome {
	if !ok || math.IsNaN(margin) || math.IsInf(margin, 0) {
		return Skip
	}
	switch {
	case margin > 0:
		return Over
	case margin < 0:
		return Under
	default:
		return Push
	}
}

// ParseOutcome accepts the labels produced by String. Anything unknown,
// including the empty string, is Skip.
func ParseOutcome(s string) Outcome {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "over":
		return Over
	case "under":
		return Under
	case "push":
		return Push
	default:
		return Skip
	}
}
