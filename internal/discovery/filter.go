// Package discovery narrows event collections by a FilterSpec.
//
// Filter is pure: it performs no I/O, never returns an error, and is safe to
// call concurrently. Malformed optional input degrades to "no constraint".
package discovery

import (
	"math"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/listenupapp/sortir/internal/domain"
)

// DateLayout is the calendar-day layout accepted for FilterSpec.Date.
const DateLayout = time.DateOnly

type predicate func(domain.EventRecord) bool

// Filter returns the events matching every set field of spec, in input order.
// now supplies the location used to truncate occurrence start dates to a calendar day.
func Filter(events []domain.EventRecord, spec domain.FilterSpec, now time.Time) []domain.EventRecord {
	preds := compile(spec, now.Location())
	if len(preds) == 0 {
		return events
	}

	out := make([]domain.EventRecord, 0, len(events))
	for _, e := range events {
		if matchAll(preds, e) {
			out = append(out, e)
		}
	}
	return out
}

func matchAll(preds []predicate, e domain.EventRecord) bool {
	for _, p := range preds {
		if !p(e) {
			return false
		}
	}
	return true
}

func compile(spec domain.FilterSpec, loc *time.Location) []predicate {
	spec, _ = Normalize(spec)

	// A Caser carries state, so each compiled filter owns one.
	fold := cases.Fold()
	contains := func(haystack, needle string) bool {
		return strings.Contains(fold.String(haystack), needle)
	}

	var preds []predicate

	if text, ok := spec.Text.Get(); ok {
		needle := fold.String(text)
		preds = append(preds, func(e domain.EventRecord) bool {
			return contains(e.Title, needle) || contains(e.Description, needle)
		})
	}

	if category, ok := spec.Category.Get(); ok {
		preds = append(preds, func(e domain.EventRecord) bool {
			return e.Category == category
		})
	}

	if minRating, ok := spec.MinRating.Get(); ok {
		preds = append(preds, func(e domain.EventRecord) bool {
			return e.Rating() >= minRating
		})
	}

	if location, ok := spec.Location.Get(); ok {
		needle := fold.String(location)
		preds = append(preds, func(e domain.EventRecord) bool {
			return e.Address != nil && contains(*e.Address, needle)
		})
	}

	if raw, ok := spec.Date.Get(); ok {
		// Normalize already dropped malformed dates.
		day, _ := time.ParseInLocation(DateLayout, raw, loc)
		preds = append(preds, func(e domain.EventRecord) bool {
			first, ok := e.EarliestOccurrence()
			if !ok {
				return false
			}
			return sameDay(first.StartDate.In(loc), day)
		})
	}

	return preds
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// FieldIssue describes a filter field that was ignored.
type FieldIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Normalize returns spec with unusable fields unset, and the reasons they were dropped.
func Normalize(spec domain.FilterSpec) (domain.FilterSpec, []FieldIssue) {
	var issues []FieldIssue

	if raw, ok := spec.Date.Get(); ok {
		if _, err := time.Parse(DateLayout, strings.TrimSpace(raw)); err != nil {
			spec.Date = domain.None[string]()
			issues = append(issues, FieldIssue{Field: "date", Reason: "must be a calendar day (YYYY-MM-DD)"})
		} else {
			spec.Date = domain.Some(strings.TrimSpace(raw))
		}
	}

	if r, ok := spec.MinRating.Get(); ok && (math.IsNaN(r) || math.IsInf(r, 0)) {
		spec.MinRating = domain.None[float64]()
		issues = append(issues, FieldIssue{Field: "min_rating", Reason: "must be a finite number"})
	}

	return spec, issues
}
