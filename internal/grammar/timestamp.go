package grammar

import (
	"strings"
	"time"
)

// timestampLayouts are tried in order. Layouts without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// NormalizeTimestamp parses an extended ISO-8601 log timestamp. A trailing "Z"
// is read as UTC. On success it returns the RFC 3339 UTC form and the parsed
// time. On failure the raw string comes back unchanged with a zero time.
func NormalizeTimestamp(raw string) (string, time.Time) {
	s := strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			t = t.UTC()
			return t.Format(time.RFC3339Nano), t
		}
	}
	return raw, time.Time{}
}
