// Package timestamp provides Unix millisecond timestamp helpers for message
// event times.
//
// Event timestamps travel as int64 milliseconds since the Unix epoch. A value
// of 0 means "not set": a message without an application-level event time.
package timestamp

import (
	"fmt"
	"strconv"
	"time"
)

// Now returns the current wall-clock time as Unix milliseconds.
func Now() int64 {
	return time.Now().UnixMilli()
}

// Format converts Unix milliseconds to an RFC3339 string for logs.
// Returns empty string if timestamp is 0.
func Format(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339Nano)
}

// Min returns the earlier of two timestamps.
// Zero values are treated as "later than any other time".
func Min(a, b int64) int64 {
	if a == 0 {
		return b
	}
	if b == 0 {
		return a
	}
	if a < b {
		return a
	}
	return b
}

// Earliest returns the minimum non-zero timestamp and true, or 0 and false
// when every timestamp is unset.
func Earliest(timestamps ...int64) (int64, bool) {
	var earliest int64
	for _, ts := range timestamps {
		earliest = Min(earliest, ts)
	}
	return earliest, earliest != 0
}

// FormatHeader renders a timestamp as a transport header value.
func FormatHeader(ms int64) string {
	return strconv.FormatInt(ms, 10)
}

// ParseHeader reads a transport header value written by FormatHeader.
// An empty value yields 0 without error.
func ParseHeader(value string) (int64, error) {
	if value == "" {
		return 0, nil
	}
	ms, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse event timestamp %q: %w", value, err)
	}
	if err := Validate(ms); err != nil {
		return 0, err
	}
	return ms, nil
}

// Validate checks if a timestamp is non-negative and not absurdly far in the future.
func Validate(ms int64) error {
	if ms < 0 {
		return fmt.Errorf("timestamp cannot be negative: %d", ms)
	}
	// year 3000
	if ms > 32503680000000 {
		return fmt.Errorf("timestamp too far in future: %d", ms)
	}
	return nil
}
