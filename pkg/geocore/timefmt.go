package geocore

import (
	"strconv"
	"time"
)

// TimeLayout is the timestamp format used on the wire, always in UTC.
const TimeLayout = "2006/01/02 15:04:05"

// FormatTime renders t in the Geocore timestamp format.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a Geocore timestamp. ok is false for empty or
// malformed input.
func ParseTime(s string) (t time.Time, ok bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(TimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// EpochMillis renders t as milliseconds since the epoch in decimal.
func EpochMillis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func parseTimePtr(s string) *time.Time {
	if t, ok := ParseTime(s); ok {
		return &t
	}
	return nil
}
