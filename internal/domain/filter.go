package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// TimeWindow is a fixed lookback duration bounding which events are current.
type TimeWindow string

const (
	WindowHour  TimeWindow = "hour"
	WindowDay   TimeWindow = "day"
	WindowWeek  TimeWindow = "week"
	WindowMonth TimeWindow = "month"

	DefaultTimeWindow = WindowDay
)

// TimeWindows lists every supported window, shortest first.
var TimeWindows = []TimeWindow{WindowHour, WindowDay, WindowWeek, WindowMonth}

// Duration returns the lookback span and false for unrecognized windows.
func (w TimeWindow) Duration() (time.Duration, bool) {
	switch w {
	case WindowHour:
		return time.Hour, true
	case WindowDay:
		return 24 * time.Hour, true
	case WindowWeek:
		return 7 * 24 * time.Hour, true
	case WindowMonth:
		return 30 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// Valid reports whether w is one of the supported windows.
func (w TimeWindow) Valid() bool {
	_, ok := w.Duration()
	return ok
}

// Label is the human-readable name, e.g. "Past Day".
func (w TimeWindow) Label() string {
	switch w {
	case WindowHour:
		return "Past Hour"
	case WindowDay:
		return "Past Day"
	case WindowWeek:
		return "Past Week"
	case WindowMonth:
		return "Past Month"
	default:
		return ""
	}
}

// ParseTimeWindow validates a window name (case-insensitive). An empty string
// yields the default window.
func ParseTimeWindow(s string) (TimeWindow, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultTimeWindow, nil
	}
	w := TimeWindow(s)
	if !w.Valid() {
		return "", fmt.Errorf("unknown time window %q", s)
	}
	return w, nil
}

// Filter is the user's narrowing of the feed.
type Filter struct {
	Window       TimeWindow `json:"window"`
	MinMagnitude float64    `json:"min_magnitude"`
	Search       string     `json:"search"`
}

// DefaultFilter shows the past day with no magnitude floor and no search.
func DefaultFilter() Filter {
	return Filter{Window: DefaultTimeWindow}
}

// Apply filters and orders events using a single clock sample for the cutoff.
// See ApplyAt.
func Apply(events []Event, f Filter) []Event {
	return ApplyAt(events, f, clock.Now())
}

// ApplyAt runs the pipeline against a fixed now:
//  1. keep events with OccurredAtMs >= now - window
//  2. keep events whose magnitude is present and >= MinMagnitude
//  3. keep events whose place contains the trimmed search, case-insensitively
//  4. stable sort by OccurredAtMs, newest first
//
// The input slice is never modified; the result is always a new slice.
func ApplyAt(events []Event, f Filter, now time.Time) []Event {
	out := FilterByPlace(FilterByMagnitude(FilterByWindow(events, f.Window, now), f.MinMagnitude), f.Search)
	SortNewestFirst(out)
	return out
}

// FilterByWindow keeps events that occurred within window of now. An
// unrecognized window falls back to DefaultTimeWindow.
func FilterByWindow(events []Event, window TimeWindow, now time.Time) []Event {
	span, ok := window.Duration()
	if !ok {
		span, _ = DefaultTimeWindow.Duration()
	}
	cutoff := now.Add(-span).UnixMilli()

	out := make([]Event, 0, len(events))
	for _, e := range events {
		if e.OccurredAtMs >= cutoff {
			out = append(out, e)
		}
	}
	return out
}

// SortNewestFirst stable-sorts events in place by OccurredAtMs, newest first.
func SortNewestFirst(events []Event) {
	slices.SortStableFunc(events, func(a, b Event) int {
		switch {
		case a.OccurredAtMs > b.OccurredAtMs:
			return -1
		case a.OccurredAtMs < b.OccurredAtMs:
			return 1
		default:
			return 0
		}
	})
}

// FilterByMagnitude keeps events with a present magnitude >= minMagnitude.
// Negative thresholds clamp to 0, so absent magnitudes are always dropped.
func FilterByMagnitude(events []Event, minMagnitude float64) []Event {
	minMagnitude = max(minMagnitude, 0)
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if e.MagnitudeAtLeast(minMagnitude) {
			out = append(out, e)
		}
	}
	return out
}

// FilterByPlace keeps events whose place contains query. A blank query
// returns a copy of the input unchanged.
func FilterByPlace(events []Event, query string) []Event {
	q := normalizeQuery(query)
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if q == "" || strings.Contains(strings.ToLower(e.Place), q) {
			out = append(out, e)
		}
	}
	return out
}

// normalizeQuery trims and lowercases a search string; whitespace-only is empty.
func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}
