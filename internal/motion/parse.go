package motion

import (
	"fmt"
	"regexp"
	"strconv"
)

// messagePattern is matched anywhere in the message, not anchored.
var messagePattern = regexp.MustCompile(`roll\s*=\s*([-\d.]+),\s*pitch\s*=\s*([-\d.]+)`)

// Reading is one parsed sensor sample.
type Reading struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
}

// Parse extracts a Reading from a raw sensor line. A capture that matches
// the character class but is not a number, such as "1.2.3", rejects the
// whole message.
func Parse(raw string) (Reading, error) {
	m := messagePattern.FindStringSubmatch(raw)
	if m == nil {
		return Reading{}, ErrParse
	}

	roll, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Reading{}, fmt.Errorf("%w: roll %q", ErrParse, m[1])
	}
	pitch, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return Reading{}, fmt.Errorf("%w: pitch %q", ErrParse, m[2])
	}
	return Reading{Roll: roll, Pitch: pitch}, nil
}
