package domain

import (
	"fmt"
	"strings"
)

type ScaleFactor int

const (
	Scale2x ScaleFactor = 2
	Scale4x ScaleFactor = 4
)

// ParseScaleFactor accepts "2", "4", "2x" and "4x".
func ParseScaleFactor(s string) (ScaleFactor, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "2", "2x":
		return Scale2x, nil
	case "4", "4x":
		return Scale4x, nil
	default:
		return 0, fmt.Errorf("%w: scale must be 2x or 4x, got %q", ErrValidation, s)
	}
}

func (s ScaleFactor) Valid() bool {
	return s == Scale2x || s == Scale4x
}

func (s ScaleFactor) String() string {
	return fmt.Sprintf("%dx", int(s))
}
