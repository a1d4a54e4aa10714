package ou

import (
	"fmt"
	"strings"
	"time"
)

// Period is a reset granularity for per-team state.
type Period uint8

const (
	Monthly Period = iota + 1
	Yearly
)

func (p Period) String() string {
	switch p {
	case Monthly:
		return "month"
	case Yearly:
		return "year"
	default:
		return fmt.Sprintf("Period(%d)", uint8(p))
	}
}

// Key returns a value that changes exactly when t crosses into a new period.
func (p Period) Key(t time.Time) int {
	switch p {
	case Yearly:
		return t.Year()
	default:
		return t.Year()*100 + int(t.Month())
	}
}

// ParsePeriod parses "month"/"monthly" or "year"/"yearly".
func ParsePeriod(s string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "month", "monthly":
		return Monthly, nil
	case "year", "yearly":
		return Yearly, nil
	default:
		return 0, fmt.Errorf("unknown period %q", s)
	}
}
