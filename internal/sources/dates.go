package sources

import (
	"strings"
	"time"
)

// DatePolicy names how a source decides an item belongs to the target date
type DatePolicy string

const (
	// DatePolicyFeedExact: the parsed publish time must fall on the target calendar date
	// in the target's location. Items without a parseable time are treated as latest and kept.
	DatePolicyFeedExact DatePolicy = "feed_exact"

	// DatePolicyHTMLBestEffort: a machine-readable time[datetime] value is matched exactly;
	// otherwise the date text must contain the target as dd/mm/yyyy; no date text means keep.
	DatePolicyHTMLBestEffort DatePolicy = "html_best_effort"
)

var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// MatchesFeedDate applies DatePolicyFeedExact
func MatchesFeedDate(published *time.Time, target time.Time) bool {
	if published == nil || published.IsZero() {
		return true
	}
	return sameDay(published.In(target.Location()), target)
}

// MatchesHTMLDate applies DatePolicyHTMLBestEffort
func MatchesHTMLDate(datetimeAttr, dateText string, target time.Time) bool {
	if t, ok := parseDatetime(datetimeAttr, target.Location()); ok {
		return sameDay(t.In(target.Location()), target)
	}

	dateText = strings.TrimSpace(dateText)
	if dateText == "" {
		return true
	}
	return strings.Contains(dateText, target.Format("02/01/2006"))
}

func parseDatetime(value string, loc *time.Location) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range datetimeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
