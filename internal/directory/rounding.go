package directory

import (
	"fmt"
	"math"
	"strings"
)

// Rounding decides how attendance percentages are reported.
type Rounding string

const (
	// RoundNearest rounds to the nearest whole percent (2 of 3 -> 67).
	RoundNearest Rounding = "nearest"
	// RoundTenth keeps one decimal place (2 of 3 -> 66.7).
	RoundTenth Rounding = "tenth"
	// RoundNone reports the exact ratio (2 of 3 -> 66.666...).
	RoundNone Rounding = "none"
)

// ParseRounding accepts the config spelling of a rounding policy.
func ParseRounding(s string) (Rounding, error) {
	switch r := Rounding(strings.ToLower(strings.TrimSpace(s))); r {
	case RoundNearest, RoundTenth, RoundNone:
		return r, nil
	case "":
		return RoundNearest, nil
	default:
		return "", fmt.Errorf("unknown rounding policy %q", s)
	}
}

// Percentage is present/total*100 under the policy, and 0 when total is 0.
func (r Rounding) Percentage(present, total int) float64 {
	if total <= 0 || present <= 0 {
		return 0
	}
	if present > total {
		present = total
	}
	p := float64(present) / float64(total) * 100
	switch r {
	case RoundTenth:
		return math.Round(p*10) / 10
	case RoundNone:
		return p
	default:
		return math.Round(p)
	}
}
