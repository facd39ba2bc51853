package estimate

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/dustin/go-humanize"
)

// InvalidIntegerMessage is the user-facing text for rejected input.
const InvalidIntegerMessage = "Please enter a valid integer."

// ErrInvalidInteger is returned by ParseCount for anything that is not a
// non-negative decimal integer.
var ErrInvalidInteger = errors.New("estimate: invalid integer")

var digitsOnly = regexp.MustCompile(`^\d*$`)

// ParseCount parses a form field. The empty string is 0 so a cleared field
// behaves like an unset one.
func ParseCount(text string) (int64, error) {
	if !digitsOnly.MatchString(text) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidInteger, text)
	}
	if text == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		// only out-of-range can fail once the regexp matched
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidInteger, text)
	}
	return n, nil
}

// FormatCount renders n with thousands separators: 13824000 -> "13,824,000".
func FormatCount(n int64) string {
	return humanize.Comma(n)
}

// FormatPercent renders a percentage with three decimals: "27.648%".
func FormatPercent(pct float64) string {
	return strconv.FormatFloat(pct, 'f', 3, 64) + "%"
}
