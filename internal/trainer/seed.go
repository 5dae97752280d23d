package trainer

import (
	"strconv"
	"strings"
)

// Seed is an optional integer seed. The zero value means "no seed".
type Seed struct {
	raw   string
	value int64
	set   bool
}

// NoSeed seeds from the clock.
func NoSeed() Seed { return Seed{} }

// SeedOf returns a fixed seed.
func SeedOf(v int64) Seed {
	return Seed{raw: strconv.FormatInt(v, 10), value: v, set: true}
}

// ParseSeed reads a seed from config or flag text. Blank text means no seed.
// Text that is not an integer yields a seed that fails validation.
func ParseSeed(raw string) Seed {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return NoSeed()
	}
	v, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return Seed{raw: raw}
	}
	return Seed{raw: raw, value: v, set: true}
}

// Value returns the seed and whether one was given.
func (s Seed) Value() (int64, bool, error) {
	if !s.set && s.raw != "" {
		return 0, false, &SeedTypeError{Raw: s.raw}
	}
	return s.value, s.set, nil
}

func (s Seed) String() string {
	switch {
	case s.set:
		return strconv.FormatInt(s.value, 10)
	case s.raw != "":
		return s.raw
	default:
		return "none"
	}
}
