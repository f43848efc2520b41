package domain

import "math"

// Stats summarizes a filtered view.
type Stats struct {
	Total          int    `json:"total"`
	AboveThreshold int    `json:"above_threshold"`
	Largest        *Event `json:"largest,omitempty"`
}

// ComputeStats counts events, counts those with a present magnitude >= threshold,
// and picks the largest-magnitude event. Ties keep the first occurrence, which is
// the most recent one for pipeline output. Largest is nil when no event has a
// magnitude.
func ComputeStats(events []Event, threshold float64) Stats {
	s := Stats{Total: len(events)}
	for i := range events {
		e := events[i]
		if e.Magnitude == nil || math.IsNaN(*e.Magnitude) {
			continue
		}
		if *e.Magnitude >= threshold {
			s.AboveThreshold++
		}
		if s.Largest == nil || *e.Magnitude > *s.Largest.Magnitude {
			s.Largest = &events[i]
		}
	}
	if s.Largest != nil {
		largest := *s.Largest
		s.Largest = &largest
	}
	return s
}
