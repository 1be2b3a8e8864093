// Package window parses human-readable lookback windows like "24h", "7d",
// "8w" or "1yr" into absolute durations used to bound metric queries.
package window

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// InvalidWindowError reports an unparsable or unsupported window string.
// It is a configuration error and aborts the run before any analysis.
type InvalidWindowError struct {
	Input  string
	Reason string
}

func (e *InvalidWindowError) Error() string {
	return fmt.Sprintf("invalid history window %q: %s", e.Input, e.Reason)
}

var windowPattern = regexp.MustCompile(`^(\d+)(h|d|w|yr)$`)

// Unit multipliers in hours. A year is 365 days by convention; timestamps
// are treated as UTC so no timezone math is involved.
var unitHours = map[string]int{
	"h":  1,
	"d":  24,
	"w":  24 * 7,
	"yr": 24 * 365,
}

// Parse converts a duration string of the form <integer><unit> with
// unit in {h, d, w, yr} into an absolute duration.
func Parse(s string) (time.Duration, error) {
	m := windowPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, &InvalidWindowError{Input: s, Reason: "expected <integer><h|d|w|yr>, e.g. 24h, 7d, 8w, 1yr"}
	}

	n, err := strconv.Atoi(m[1])
	if err != nil {
		// Only reachable on overflow of very long digit runs.
		return 0, &InvalidWindowError{Input: s, Reason: "value out of range"}
	}
	if n <= 0 {
		return 0, &InvalidWindowError{Input: s, Reason: "value must be positive"}
	}

	return time.Duration(n*unitHours[m[2]]) * time.Hour, nil
}

// Hours is a convenience wrapper returning the window in whole hours.
func Hours(s string) (int, error) {
	d, err := Parse(s)
	if err != nil {
		return 0, err
	}
	return int(d.Hours()), nil
}
