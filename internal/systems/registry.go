package systems

import (
	"errors"
	"fmt"

	"github.com/sawpanic/streakrun/internal/domain/ou"
)

// ErrUnknownKind is returned for a system spec with an unrecognised kind.
var ErrUnknownKind = errors.New("unknown system kind")

// Spec describes one system in configuration.
type Spec struct {
	Name  string   `yaml:"name" json:"name"`
	Kind  Kind     `yaml:"kind" json:"kind"`
	Steps []string `yaml:"steps,omitempty" json:"steps,omitempty"`
}

// DefaultSpecs returns the classic system line-up: the Tails Prior system,
// three fixed O/U patterns and three patterns composed over Tails Prior.
func DefaultSpecs() []Spec {
	return []Spec{
		{Name: TailsName, Kind: KindTailsPrior},
		{Name: "OU TFTF", Kind: KindPattern, Steps: []string{"Tail - Over", "Fade - Under"}},
		{Name: "OU TFFT", Kind: KindPattern, Steps: []string{"Tail - Over", "Fade - Under", "Fade - Under", "Tail - Over"}},
		{Name: "OU FTTF", Kind: KindPattern, Steps: []string{"Fade - Under", "Tail - Over", "Tail - Over", "Fade - Under"}},
		{Name: "TP TFTF", Kind: KindPriorPattern, Steps: []string{"Tail", "Fade"}},
		{Name: "TP TFFT", Kind: KindPriorPattern, Steps: []string{"Tail", "Fade", "Fade", "Tail"}},
		{Name: "TP FTTF", Kind: KindPriorPattern, Steps: []string{"Fade", "Tail", "Tail", "Fade"}},
	}
}

// Build turns specs into systems sharing one Tails Prior base. period is the
// recommendation reset granularity.
func Build(specs []Spec, period ou.Period) ([]System, error) {
	base := NewTailsPrior(period)
	names := make(map[string]bool, len(specs))
	out := make([]System, 0, len(specs))

	for _, spec := range specs {
		if spec.Name == "" {
			return nil, fmt.Errorf("system of kind %q has no name", spec.Kind)
		}
		if names[spec.Name] {
			return nil, fmt.Errorf("duplicate system name %q", spec.Name)
		}
		names[spec.Name] = true

		switch spec.Kind {
		case KindTailsPrior:
			if spec.Name != TailsName {
				return nil, fmt.Errorf("tails prior system must be named %q, got %q", TailsName, spec.Name)
			}
			out = append(out, base)

		case KindPattern:
			if len(spec.Steps) == 0 {
				return nil, fmt.Errorf("system %q: pattern has no steps", spec.Name)
			}
			steps := make([]ou.Recommendation, 0, len(spec.Steps))
			for _, label := range spec.Steps {
				rec, err := ou.ParseRecommendation(label)
				if err != nil {
					return nil, fmt.Errorf("system %q: %w", spec.Name, err)
				}
				if !rec.Actionable() {
					return nil, fmt.Errorf("system %q: step %q is not a bet", spec.Name, label)
				}
				steps = append(steps, rec)
			}
			out = append(out, NewPattern(spec.Name, steps, period))

		case KindPriorPattern:
			if len(spec.Steps) == 0 {
				return nil, fmt.Errorf("system %q: pattern has no steps", spec.Name)
			}
			actions := make([]ou.Action, 0, len(spec.Steps))
			for _, label := range spec.Steps {
				a, err := ou.ParseAction(label)
				if err != nil {
					return nil, fmt.Errorf("system %q: %w", spec.Name, err)
				}
				actions = append(actions, a)
			}
			out = append(out, NewPriorPattern(spec.Name, actions, period, base))

		default:
			return nil, fmt.Errorf("system %q: %w: %q", spec.Name, ErrUnknownKind, spec.Kind)
		}
	}

	return out, nil
}
