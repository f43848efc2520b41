package window

import (
	"slices"
	"sync"

	"github.com/couchcryptid/quakewatch/internal/domain"
)

// DefaultPadding is the fraction of the viewport span added to each side.
const DefaultPadding = 0.1

// MapView keeps the visible subset of an event collection for a map viewport.
// Movement is debounced so a pan or zoom animation recomputes once, using the
// final bounds.
type MapView struct {
	padding   float64
	debouncer *Debouncer

	mu        sync.Mutex
	events    []domain.Event
	bounds    Bounds
	hasBounds bool
	pending   *Bounds
	visible   []domain.Event

	onRecompute func(visible int)
	observers   Observers[[]domain.Event]
}

// MapViewOption configures a MapView.
type MapViewOption func(*MapView)

// WithRecomputeHook registers fn to run after every recompute with the size
// of the visible subset.
func WithRecomputeHook(fn func(visible int)) MapViewOption {
	return func(m *MapView) {
		m.onRecompute = fn
	}
}

// NewMapView creates a MapView. A nil debouncer uses NewDebouncer defaults.
func NewMapView(padding float64, debouncer *Debouncer, opts ...MapViewOption) *MapView {
	if debouncer == nil {
		debouncer = NewDebouncer(0, nil)
	}
	m := &MapView{
		padding:   padding,
		debouncer: debouncer,
		visible:   []domain.Event{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetEvents replaces the collection. The visible subset is recomputed at once
// when the viewport is known; a refresh is not movement and is not debounced.
func (m *MapView) SetEvents(events []domain.Event) {
	m.mu.Lock()
	m.events = events
	if !m.hasBounds {
		m.mu.Unlock()
		return
	}
	vis := m.recomputeLocked(m.bounds)
	m.mu.Unlock()

	m.publish(vis)
}

// Move records a viewport change and schedules a debounced recompute. It
// reports whether the move superseded a recompute that had not yet run.
func (m *MapView) Move(b Bounds) (superseded bool) {
	m.mu.Lock()
	m.pending = &b
	m.mu.Unlock()

	return m.debouncer.Trigger(func() { m.apply(b) })
}

// Flush runs a pending recompute immediately and returns the visible subset.
func (m *MapView) Flush() []domain.Event {
	if m.debouncer.Cancel() {
		m.mu.Lock()
		b := m.pending
		m.mu.Unlock()
		if b != nil {
			m.apply(*b)
		}
	}
	return m.Visible()
}

// Visible returns a copy of the last computed subset.
func (m *MapView) Visible() []domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.visible)
}

// Bounds returns the viewport of the last recompute and whether one exists.
func (m *MapView) Bounds() (Bounds, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bounds, m.hasBounds
}

// Pending reports whether a debounced recompute is scheduled.
func (m *MapView) Pending() bool {
	return m.debouncer.Pending()
}

// Padding returns the padding ratio applied to every viewport.
func (m *MapView) Padding() float64 {
	return m.padding
}

// Subscribe registers fn to receive every recomputed subset.
func (m *MapView) Subscribe(fn func([]domain.Event)) (unsubscribe func()) {
	return m.observers.Subscribe(fn)
}

func (m *MapView) apply(b Bounds) {
	m.mu.Lock()
	m.pending = nil
	vis := m.recomputeLocked(b)
	m.mu.Unlock()

	m.publish(vis)
}

func (m *MapView) recomputeLocked(b Bounds) []domain.Event {
	m.bounds = b
	m.hasBounds = true
	m.visible = Visible(m.events, b, m.padding)
	return m.visible
}

func (m *MapView) publish(vis []domain.Event) {
	if m.onRecompute != nil {
		m.onRecompute(len(vis))
	}
	m.observers.Notify(slices.Clone(vis))
}
