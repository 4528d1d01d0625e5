package catalyst

import (
	"time"

	"github.com/wonny/catalyst/internal/contracts"
)

// Window is an inclusive day range around an anchor timestamp
type Window struct {
	LookbackDays    int `json:"lookback_days"`
	LookforwardDays int `json:"lookforward_days"`
}

// Bounds returns the first and last civil day of the window.
// Time of day is dropped; the anchor's own calendar date is used.
func (w Window) Bounds(anchor time.Time) (start, end time.Time) {
	day := civilDay(anchor)
	return day.AddDate(0, 0, -w.LookbackDays), day.AddDate(0, 0, w.LookforwardDays)
}

// Contains reports whether date falls in [anchor-lookback, anchor+lookforward]
func (w Window) Contains(anchor, date time.Time) bool {
	start, end := w.Bounds(anchor)
	d := civilDay(date)
	return !d.Before(start) && !d.After(end)
}

// FindCatalysts returns every valid event inside the window, in input order.
// An empty result is a normal outcome.
func FindCatalysts(anchor time.Time, w Window, events []contracts.Event) []contracts.Event {
	var out []contracts.Event
	for _, e := range events {
		if e.Valid() && w.Contains(anchor, e.Date) {
			out = append(out, e)
		}
	}
	return out
}

// HasNews reports whether any filing falls in the window.
// Every filing counts as news regardless of form type.
func HasNews(anchor time.Time, w Window, filings []contracts.Event) (bool, []contracts.Event) {
	found := FindCatalysts(anchor, w, filings)
	return len(found) > 0, found
}

// civilDay truncates t to midnight UTC of its own calendar date
func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
