package utils

import "time"

// FormatRFC3339 formats a time in RFC3339 for storage columns
func FormatRFC3339(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
