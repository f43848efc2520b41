package dashboard

import (
	"github.com/couchcryptid/quakewatch/internal/domain"
	"github.com/couchcryptid/quakewatch/internal/window"
)

// Row is one materialized list row.
type Row struct {
	Index          int                   `json:"index"`
	Event          domain.Event          `json:"event"`
	Classification domain.Classification `json:"classification"`
	Selected       bool                  `json:"selected"`
}

// Rows is the slice of the view a scroll viewport must render.
type Rows struct {
	Range window.Range `json:"range"`
	Rows  []Row        `json:"rows"`
}

// Marker is one event plotted on the map.
type Marker struct {
	Event    domain.Event       `json:"event"`
	Style    domain.MarkerStyle `json:"style"`
	Selected bool               `json:"selected"`
}

// Rows records a scroll observation and returns the rows inside the window.
func (d *Dashboard) Rows(scrollOffset, containerHeight float64) Rows {
	r := d.list.Observe(scrollOffset, containerHeight)

	d.mu.Lock()
	defer d.mu.Unlock()

	out := Rows{Range: r, Rows: []Row{}}
	if r.Empty() {
		return out
	}
	// The view can shrink between Observe and the lock; clamp to what exists.
	end := min(r.End, len(d.view)-1)
	for i := r.Start; i <= end; i++ {
		e := d.view[i]
		out.Rows = append(out.Rows, Row{
			Index:          i,
			Event:          e,
			Classification: domain.ClassifyMagnitude(e.Magnitude),
			Selected:       e.ID == d.selectedID,
		})
	}
	return out
}

// ListRange returns the last computed list window.
func (d *Dashboard) ListRange() window.Range {
	return d.list.Current()
}

// SubscribeRows registers fn for every recomputed list window.
func (d *Dashboard) SubscribeRows(fn func(window.Range)) (unsubscribe func()) {
	return d.list.Subscribe(fn)
}

// MapVisible returns markers for the view events inside bounds, padded by
// padding of the span on each side. It does not touch the map viewport.
func (d *Dashboard) MapVisible(bounds window.Bounds, padding float64) []Marker {
	d.mu.Lock()
	view, selected := d.view, d.selectedID
	d.mu.Unlock()

	return markers(window.Visible(view, bounds, padding), selected)
}

// PanMap records a map viewport change. The visible set is recomputed once the
// viewport settles.
func (d *Dashboard) PanMap(bounds window.Bounds) {
	if d.mapView.Move(bounds) {
		d.metrics.MapMovesSuperseded.Inc()
	}
}

// MapMarkers returns the markers of the settled map viewport. When flush is
// true a pending recompute runs first.
func (d *Dashboard) MapMarkers(flush bool) (window.Bounds, []Marker, bool) {
	var vis []domain.Event
	if flush {
		vis = d.mapView.Flush()
	} else {
		vis = d.mapView.Visible()
	}
	bounds, ok := d.mapView.Bounds()

	d.mu.Lock()
	selected := d.selectedID
	d.mu.Unlock()
	return bounds, markers(vis, selected), ok
}

// SubscribeMap registers fn for every recomputed map subset.
func (d *Dashboard) SubscribeMap(fn func([]domain.Event)) (unsubscribe func()) {
	return d.mapView.Subscribe(fn)
}

func markers(events []domain.Event, selectedID string) []Marker {
	out := make([]Marker, len(events))
	for i, e := range events {
		out[i] = Marker{
			Event:    e,
			Style:    domain.MarkerStyleFor(e.Magnitude),
			Selected: selectedID != "" && e.ID == selectedID,
		}
	}
	return out
}
