// Package pubdate normalizes feed publication dates into one sortable form.
package pubdate

import (
	"strings"
	"time"
)

// Layout is the canonical form stored for every article. It sorts
// lexicographically in chronological order.
const Layout = "2006-01-02 15:04:05"

// Family is a group of date layouts a source is known to emit.
type Family string

const (
	// RFC822Numeric covers RFC 822/1123 dates with a numeric offset,
	// e.g. "Tue, 10 Jun 2003 04:00:00 -0500".
	RFC822Numeric Family = "rfc822_numeric"
	// RFC822Named covers RFC 822/1123 dates with a zone name,
	// e.g. "Tue, 10 Jun 2003 04:00:00 EST".
	RFC822Named Family = "rfc822_named"
	// RFC3339 covers Atom <published>/<updated> values.
	RFC3339 Family = "rfc3339"
	// Plain covers "2006-01-02 15:04:05" dates, read as UTC.
	Plain Family = "plain"
	// Auto tries every family in turn.
	Auto Family = "auto"
)

var layouts = map[Family][]string{
	RFC822Numeric: {
		time.RFC1123Z,
		"Mon, 2 Jan 2006 15:04:05 -0700",
		"Mon, 02 Jan 2006 15:04 -0700",
		"Mon, 2 Jan 2006 15:04 -0700",
		"02 Jan 2006 15:04:05 -0700",
		"2 Jan 2006 15:04:05 -0700",
		time.RFC822Z,
	},
	RFC822Named: {
		time.RFC1123,
		"Mon, 2 Jan 2006 15:04:05 MST",
		"Mon, 02 Jan 2006 15:04 MST",
		"Mon, 2 Jan 2006 15:04 MST",
		"02 Jan 2006 15:04:05 MST",
		"2 Jan 2006 15:04:05 MST",
		time.RFC822,
	},
	RFC3339: {
		time.RFC3339Nano,
		time.RFC3339,
	},
	Plain: {
		Layout,
	},
}

var autoOrder = []Family{RFC822Numeric, RFC822Named, RFC3339, Plain}

// zoneOffsets lists the zone names accepted in RFC822Named dates, in
// seconds east of UTC. Names outside this table are rejected rather than
// silently read as UTC.
var zoneOffsets = map[string]int{
	"UT": 0, "UTC": 0, "GMT": 0, "Z": 0,
	"EST": -5 * 3600, "EDT": -4 * 3600,
	"CST": -6 * 3600, "CDT": -5 * 3600,
	"MST": -7 * 3600, "MDT": -6 * 3600,
	"PST": -8 * 3600, "PDT": -7 * 3600,
	"BST": 1 * 3600, "CET": 1 * 3600, "CEST": 2 * 3600,
	"EET": 2 * 3600, "EEST": 3 * 3600,
	"MSK": 3 * 3600, "IST": 5*3600 + 1800,
	"SGT": 8 * 3600, "HKT": 8 * 3600,
	"JST": 9 * 3600, "KST": 9 * 3600,
	"AEST": 10 * 3600, "AEDT": 11 * 3600,
}

// Parse reads raw using the layouts of family. The boolean is false when no
// layout matches.
func Parse(raw string, family Family) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if family == Auto || family == "" {
		for _, f := range autoOrder {
			if t, ok := Parse(raw, f); ok {
				return t, true
			}
		}
		return time.Time{}, false
	}

	if family == RFC822Named {
		return parseNamed(raw)
	}
	for _, layout := range layouts[family] {
		t, err := time.ParseInLocation(layout, raw, time.UTC)
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Normalize converts raw into Layout in UTC. It returns "" when raw cannot
// be parsed; it never fails.
func Normalize(raw string, family Family) string {
	t, ok := Parse(raw, family)
	if !ok {
		return ""
	}
	return Format(t)
}

// Format renders t in the canonical form.
func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}

func parseNamed(raw string) (time.Time, bool) {
	raw, name := splitZone(raw)
	offset, known := zoneOffsets[strings.ToUpper(name)]
	if !known {
		return time.Time{}, false
	}
	// time.Parse resolves abbreviations against the local zone database,
	// so the name is swapped for GMT and the offset applied from the table.
	for _, layout := range layouts[RFC822Named] {
		t, err := time.ParseInLocation(layout, raw+" GMT", time.UTC)
		if err != nil {
			continue
		}
		loc := time.FixedZone(name, offset)
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc), true
	}
	return time.Time{}, false
}

// splitZone separates the trailing zone name from the rest of raw.
func splitZone(raw string) (rest, zone string) {
	i := strings.LastIndexByte(raw, ' ')
	if i < 0 {
		return raw, ""
	}
	return raw[:i], raw[i+1:]
}
