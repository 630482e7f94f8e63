// Package views derives the dashboard, live-tracking, and summary data from
// the canonical record list. Everything here is a pure function of its
// inputs: no store access, no mutation of the input slice.
package views

import (
	"strings"
	"time"

	"github.com/careflow/medtrack/internal/domain/medication"
)

// All is the sentinel disabling the status or source filter.
const All = "All"

// DateRange bounds records to a trailing window relative to now.
type DateRange string

const (
	RangeAll   DateRange = "all"
	RangeToday DateRange = "today"
	RangeWeek  DateRange = "week"
	RangeMonth DateRange = "month"
)

// Filter is a conjunctive set of predicates over the record list.
type Filter struct {
	// Search matches case-insensitively against name, enrollee id,
	// diagnosis, and medication list. Empty disables it.
	Search string
	// Status is an exact status match, or All.
	Status string
	// Source is an exact source match, or All.
	Source string
	// Range restricts by calendar date with an inclusive lower bound.
	Range DateRange
	// Now supplies the reference time for Range. Defaults to time.Now.
	Now func() time.Time
}

// Apply returns the records passing every active predicate, preserving
// order. The input is never mutated.
func (f Filter) Apply(reqs []medication.Request) []medication.Request {
	cutoff, bounded := f.cutoff()
	term := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]medication.Request, 0, len(reqs))
	for _, req := range reqs {
		if term != "" && !matchesSearch(req, term) {
			continue
		}
		if f.Status != "" && f.Status != All && string(req.Status) != f.Status {
			continue
		}
		if f.Source != "" && f.Source != All && string(req.Source) != f.Source {
			continue
		}
		if bounded && !onOrAfter(req.Date, cutoff) {
			continue
		}
		out = append(out, req)
	}
	return out
}

func matchesSearch(req medication.Request, term string) bool {
	return strings.Contains(strings.ToLower(req.Name), term) ||
		strings.Contains(strings.ToLower(req.EnrolleeID), term) ||
		strings.Contains(strings.ToLower(req.Diagnosis), term) ||
		strings.Contains(strings.ToLower(req.Medications), term)
}

// cutoff computes the inclusive lower date bound, midnight-aligned.
func (f Filter) cutoff() (time.Time, bool) {
	nowFn := f.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	now := nowFn()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch f.Range {
	case RangeToday:
		return midnight, true
	case RangeWeek:
		return midnight.AddDate(0, 0, -7), true
	case RangeMonth:
		return midnight.AddDate(0, 0, -30), true
	}
	return time.Time{}, false
}

// onOrAfter parses the record's calendar date; an unparseable date never
// passes a bounded range.
func onOrAfter(date string, cutoff time.Time) bool {
	d, err := time.ParseInLocation("2006-01-02", date, cutoff.Location())
	if err != nil {
		return false
	}
	return !d.Before(cutoff)
}
