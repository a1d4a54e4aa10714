package ou

import (
	"fmt"
	"strings"
)

// Action is the direction of a recommendation relative to a prior result.
type Action uint8

const (
	Tail Action = iota + 1
	Fade
)

func (a Action) String() string {
	switch a {
	case Tail:
		return "Tail"
	case Fade:
		return "Fade"
	default:
		return fmt.Sprintf("Action(%d)", uint8(a))
	}
}

// ParseAction parses "Tail" or "Fade", case-insensitively.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tail", "t":
		return Tail, nil
	case "fade", "f":
		return Fade, nil
	default:
		return 0, fmt.Errorf("unknown action %q", s)
	}
}

// Recommendation is what a system tells the bettor to do for one team on
// one date. The set is closed; labels match the workbook columns.
type Recommendation uint8

const (
	RecSkip Recommendation = iota
	RecPush
	TailOver
	TailUnder
	FadeOver
	FadeUnder
)

var recommendationLabels = [...]string{
	RecSkip:   "Skip",
	RecPush:   "Push",
	TailOver:  "Tail - Over",
	TailUnder: "Tail - Under",
	FadeOver:  "Fade - Over",
	FadeUnder: "Fade - Under",
}

func (r Recommendation) String() string {
	if int(r) < len(recommendationLabels) {
		return recommendationLabels[r]
	}
	return fmt.Sprintf("Recommendation(%d)", uint8(r))
}

// Actionable reports whether the recommendation is an actual bet.
func (r Recommendation) Actionable() bool {
	switch r {
	case TailOver, TailUnder, FadeOver, FadeUnder:
		return true
	default:
		return false
	}
}

// ParseRecommendation accepts workbook labels with or without spaces around
// the dash ("Tail - Over", "Tail-Over").
func ParseRecommendation(s string) (Recommendation, error) {
	norm := strings.ToLower(strings.Join(strings.Fields(strings.ReplaceAll(s, "-", " ")), " "))
	switch norm {
	case "", "skip":
		return RecSkip, nil
	case "push":
		return RecPush, nil
	case "tail over":
		return TailOver, nil
	case "tail under":
		return TailUnder, nil
	case "fade over":
		return FadeOver, nil
	case "fade under":
		return FadeUnder, nil
	default:
		return RecSkip, fmt.Errorf("unknown recommendation %q", s)
	}
}

// MarshalText lets recommendations travel as their labels in JSON and YAML.
func (r Recommendation) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Recommendation) UnmarshalText(b []byte) error {
	v, err := ParseRecommendation(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Outcome) UnmarshalText(b []byte) error {
	*o = ParseOutcome(string(b))
	return nil
}
