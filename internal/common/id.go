package common

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// RunIDLayout is the time layout of run identifiers (YYYYMMDD_HHMM)
const RunIDLayout = "20060102_1504"

var runIDPattern = regexp.MustCompile(`^\d{8}(_\d{4})?$`)

// NewRunID returns the run identifier for t
func NewRunID(t time.Time) string {
	return t.Format(RunIDLayout)
}

// ParseRunID returns the moment a run identifier names, in loc.
// A bare date (YYYYMMDD) is accepted and means midnight.
func ParseRunID(id string, loc *time.Location) (time.Time, error) {
	if !runIDPattern.MatchString(id) {
		return time.Time{}, fmt.Errorf("invalid run id %q: expected YYYYMMDD or YYYYMMDD_HHMM", id)
	}
	layout := RunIDLayout
	if len(id) == 8 {
		layout = "20060102"
	}
	return time.ParseInLocation(layout, id, loc)
}

// NewCorrelationID generates a unique id for one execution of a run
func NewCorrelationID() string {
	return "run_" + uuid.New().String()
}
