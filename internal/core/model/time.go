package model

import (
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is fixed width so that lexical order of stored timestamps
// equals chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// NormalizeTimestamp converts an RFC3339 timestamp into TimestampLayout.
// An empty value yields now.
func NormalizeTimestamp(value string, now time.Time) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return FormatTimestamp(now), nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999"} {
		if t, err := time.Parse(layout, value); err == nil {
			return FormatTimestamp(t), nil
		}
	}
	return "", fmt.Errorf("invalid timestamp %q", value)
}
