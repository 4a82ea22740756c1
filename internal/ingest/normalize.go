// Package ingest holds the three source parsers (nutrition spreadsheet,
// health export, tracker workout) and the shared normalization helpers
// every parser binds its output through before it reaches the upsert
// service. Normalizing once at the parser boundary is deliberate: a prior
// bug class came from letting pandas-style sentinels (NaN, "--", comma
// decimals) leak past the parser into statement binding.
package ingest

import (
	"regexp"
	"strconv"
	"strings"
)

// ParseInt parses a string to int, returning nil for empty, "--", or
// unparseable values.
func ParseInt(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" || s == "--" {
		return nil
	}
	val, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &val
}

// ParseFloat parses a string to float64, accepting a comma as the decimal
// separator.
func ParseFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "--" {
		return nil
	}
	s = strings.ReplaceAll(s, ",", ".")
	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &val
}

// ParseWeight parses values like "89.4 kg" or "89,4kg" to float64.
func ParseWeight(s string) *float64 {
	return ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "kg")))
}

// ParsePercentage parses values like "27.1 %" or "27,1%" to float64.
func ParsePercentage(s string) *float64 {
	return ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%")))
}

// ParseHeartRate parses values like "63 bpm" or "63" to an int.
func ParseHeartRate(s string) *int {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "ppm")
	s = strings.TrimSuffix(s, "bpm")
	return ParseInt(strings.TrimSpace(s))
}

var durationRegex = regexp.MustCompile(`(?:(\d+)h)?\s*(?:(\d+)min)?`)

// ParseSleepDuration parses values like "7h 3min" or "8h" to hours.
// Returns nil when nothing in the string matched the pattern.
func ParseSleepDuration(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "--" {
		return nil
	}

	matches := durationRegex.FindStringSubmatch(s)
	if matches == nil {
		return nil
	}

	var hours float64
	if matches[1] != "" {
		h, _ := strconv.Atoi(matches[1])
		hours = float64(h)
	}
	if matches[2] != "" {
		m, _ := strconv.Atoi(matches[2])
		hours += float64(m) / 60.0
	}

	if hours == 0 {
		return nil
	}
	return &hours
}

// NaNToNil reports whether f is NaN or +/-Inf, the native-float sentinel
// class that must never reach statement binding. Callers normalize with:
//
//	if ingest.NaNToNil(v) { row.Field = nil } else { row.Field = &v }
func NaNToNil(f float64) bool {
	return f != f || f > maxFinite || f < -maxFinite
}

const maxFinite = 1.7976931348623157e+308

// NormalizeFloat collapses NaN/Inf to 0 so a raw numeric sentinel never
// reaches statement binding; callers that need "absent" instead of
// "zero" should use NormalizeFloatPtr.
func NormalizeFloat(f float64) float64 {
	if NaNToNil(f) {
		return 0
	}
	return f
}

// NormalizeFloatPtr is the upsert-boundary normalization step:
// a NaN/Inf value becomes a nil column rather than a poisoned float, the
// same way an absent value would.
func NormalizeFloatPtr(f *float64) *float64 {
	if f == nil || NaNToNil(*f) {
		return nil
	}
	return f
}
