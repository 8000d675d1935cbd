// Package normalize turns loosely typed front matter values into the
// canonical fields of a post: publication date, display date, author
// initials, reading time, teaser and slug.
package normalize

import (
	"math"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// DisplayLayout renders dates as day without leading zero, abbreviated month
// and four digit year, e.g. "9 Mar 2024".
const DisplayLayout = "2 Jan 2006"

// dateLayouts are tried in order. Single digit days and months are accepted.
var dateLayouts = []string{
	"2006-1-2",
	"2-1-2006",
	"2/1/2006",
	"2006/1/2",
}

// DateOptions tunes ParseDate.
type DateOptions struct {
	// Permissive enables a natural-language fallback for strings that match
	// none of the fixed layouts.
	Permissive bool
	// Location applies to string dates without zone information. Defaults to UTC.
	Location *time.Location
}

// ParseDate interprets a front matter value as a point in time. Structured
// times are used as-is, numbers are Unix seconds, strings are matched
// against the fixed layouts. The boolean is false when no date could be
// derived; this is never an error.
func ParseDate(value any, opts DateOptions) (time.Time, bool) {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	switch v := value.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return v, !v.IsZero()
	case *time.Time:
		if v == nil || v.IsZero() {
			return time.Time{}, false
		}
		return *v, true
	case int:
		return time.Unix(int64(v), 0).UTC(), true
	case int64:
		return time.Unix(v, 0).UTC(), true
	case uint64:
		if v > math.MaxInt64 {
			return time.Time{}, false
		}
		return time.Unix(int64(v), 0).UTC(), true
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return time.Time{}, false
		}
		sec, frac := math.Modf(v)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
	case string:
		return parseDateString(v, loc, opts.Permissive)
	}
	return time.Time{}, false
}

func parseDateString(raw string, loc *time.Location, permissive bool) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	if !permissive {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(raw, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DisplayDate formats t with DisplayLayout, or returns "" when ok is false.
func DisplayDate(t time.Time, ok bool) string {
	if !ok {
		return ""
	}
	return t.Format(DisplayLayout)
}
