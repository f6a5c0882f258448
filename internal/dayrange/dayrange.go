// Package dayrange parses day-period labels such as "Day 1-3" or "Day 4"
// into integer ranges. Labels come from LLM output, so parsing is permissive:
// a strict "Day N-M" match is tried first, then any "N-M" or "N" substring.
package dayrange

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	dayPattern  = regexp.MustCompile(`(?i)\bdays?\s*(\d+)(?:\s*[-–—]\s*(\d+))?`)
	barePattern = regexp.MustCompile(`(\d+)(?:\s*[-–—]\s*(\d+))?`)
)

var (
	// ErrNoDigits: the label has no day number at all.
	ErrNoDigits = errors.New("no digits")

	// ErrOutOfRange: a day number does not fit in an int.
	ErrOutOfRange = errors.New("day out of range")
)

// ParseError reports a label that could not be turned into a range. It
// wraps ErrNoDigits or ErrOutOfRange.
type ParseError struct {
	Label string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse day range %q: %v", e.Label, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Range is an inclusive span of logical days. End < Start is possible when
// the source label was reversed; it is kept as-is.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Single returns the range covering exactly one day.
func Single(day int) Range {
	return Range{Start: day, End: day}
}

// Parse converts a label into a Range.
func Parse(label string) (Range, error) {
	if m := dayPattern.FindStringSubmatch(label); m != nil {
		return fromMatch(m)
	}
	if m := barePattern.FindStringSubmatch(label); m != nil {
		return fromMatch(m)
	}
	return Range{}, &ParseError{Label: label, Err: ErrNoDigits}
}

func fromMatch(m []string) (Range, error) {
	start, err := strconv.Atoi(m[1])
	if err != nil {
		return Range{}, &ParseError{Label: m[0], Err: ErrOutOfRange}
	}
	end := start
	if m[2] != "" {
		end, err = strconv.Atoi(m[2])
		if err != nil {
			return Range{}, &ParseError{Label: m[0], Err: ErrOutOfRange}
		}
	}
	return Range{Start: start, End: end}, nil
}

// ParseValue accepts a JSON day value that is either an integer (4) or a
// label string ("Day 4", "Day 1-3").
func ParseValue(raw json.RawMessage) (Range, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return Range{}, &ParseError{Label: trimmed, Err: ErrNoDigits}
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		day, err := strconv.Atoi(n.String())
		if err != nil {
			f, ferr := n.Float64()
			if ferr != nil || math.IsNaN(f) || f > math.MaxInt32 || f < math.MinInt32 {
				return Range{}, &ParseError{Label: n.String(), Err: ErrOutOfRange}
			}
			day = int(f)
		}
		return Single(day), nil
	}

	var label string
	if err := json.Unmarshal(raw, &label); err != nil {
		return Range{}, fmt.Errorf("day value must be a number or string: %w", err)
	}
	return Parse(label)
}

// Contains reports whether day falls inside the range. Reversed ranges
// contain nothing.
func (r Range) Contains(day int) bool {
	return r.Start <= r.End && day >= r.Start && day <= r.End
}

// Len returns the number of days covered, or 0 for a reversed range.
func (r Range) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// Label formats the range as "Day N" or "Day N-M".
func (r Range) Label() string {
	if r.End == r.Start {
		return fmt.Sprintf("Day %d", r.Start)
	}
	return fmt.Sprintf("Day %d-%d", r.Start, r.End)
}

// SpanLabel always formats both ends, e.g. "Day 1-1".
func (r Range) SpanLabel() string {
	return fmt.Sprintf("Day %d-%d", r.Start, r.End)
}

func (r Range) String() string { return r.Label() }
