package window

import (
	"math"
	"sync"
)

// DefaultOverscan is the number of rows materialized beyond each visible edge.
const DefaultOverscan = 5

// Range is the contiguous index range a list viewport must materialize, with
// the padding needed above and below it to keep the scroll height correct.
// An empty range has Start 0 and End -1.
type Range struct {
	Start        int     `json:"start"`
	End          int     `json:"end"`
	OffsetTop    float64 `json:"offset_top"`
	OffsetBottom float64 `json:"offset_bottom"`
	TotalHeight  float64 `json:"total_height"`
}

// Empty reports whether the range materializes no items.
func (r Range) Empty() bool {
	return r.End < r.Start
}

// Len returns the number of items in the range.
func (r Range) Len() int {
	if r.Empty() {
		return 0
	}
	return r.End - r.Start + 1
}

// ComputeRange returns the window for a list of itemCount rows of itemHeight
// pixels scrolled to scrollOffset inside a container of containerHeight.
// Negative or NaN offsets and heights are treated as 0. It never scans items.
func ComputeRange(itemCount int, itemHeight, scrollOffset, containerHeight float64, overscan int) Range {
	if itemCount <= 0 || !(itemHeight > 0) || math.IsInf(itemHeight, 0) {
		return Range{Start: 0, End: -1}
	}
	scrollOffset = nonNegative(scrollOffset)
	containerHeight = nonNegative(containerHeight)
	overscan = max(overscan, 0)

	n := float64(itemCount)
	first := math.Min(math.Floor(scrollOffset/itemHeight), n)
	last := math.Min(math.Ceil((scrollOffset+containerHeight)/itemHeight), n)

	start := max(0, int(first)-overscan)
	end := min(itemCount-1, int(last)+overscan)
	// Scrolled past the end: keep the range anchored on the last rows.
	if start > end {
		start = end
	}

	total := n * itemHeight
	return Range{
		Start:        start,
		End:          end,
		OffsetTop:    float64(start) * itemHeight,
		OffsetBottom: total - float64(end+1)*itemHeight,
		TotalHeight:  total,
	}
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || v < 0 || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// ListOption configures a List.
type ListOption func(*List)

// WithOverscan sets the overscan margin. Negative values are treated as 0.
func WithOverscan(n int) ListOption {
	return func(l *List) {
		l.overscan = max(n, 0)
	}
}

// List tracks a scroll viewport over a fixed-height list and recomputes its
// Range on every observation.
type List struct {
	mu         sync.Mutex
	itemCount  int
	itemHeight float64
	overscan   int
	scroll     float64
	height     float64
	current    Range

	observers Observers[Range]
}

// NewList creates a List for itemCount rows of itemHeight pixels. The
// viewport starts at offset 0 with a zero-height container.
func NewList(itemCount int, itemHeight float64, opts ...ListOption) *List {
	l := &List{
		itemCount:  max(itemCount, 0),
		itemHeight: itemHeight,
		overscan:   DefaultOverscan,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.current = l.compute()
	return l
}

// Observe records a scroll offset and container height together.
func (l *List) Observe(scrollOffset, containerHeight float64) Range {
	return l.update(func() {
		l.scroll = scrollOffset
		l.height = containerHeight
	})
}

// Scroll records a new scroll offset and keeps the container height.
func (l *List) Scroll(scrollOffset float64) Range {
	return l.update(func() { l.scroll = scrollOffset })
}

// Resize records a new container height and keeps the scroll offset.
func (l *List) Resize(containerHeight float64) Range {
	return l.update(func() { l.height = containerHeight })
}

// SetItemCount replaces the number of rows, typically after the filtered
// view changes.
func (l *List) SetItemCount(n int) Range {
	return l.update(func() { l.itemCount = max(n, 0) })
}

// Current returns the most recently computed range.
func (l *List) Current() Range {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// ItemHeight returns the fixed row height in pixels.
func (l *List) ItemHeight() float64 {
	return l.itemHeight
}

// Overscan returns the configured overscan margin.
func (l *List) Overscan() int {
	return l.overscan
}

// Subscribe registers fn to receive every recomputed range.
func (l *List) Subscribe(fn func(Range)) (unsubscribe func()) {
	return l.observers.Subscribe(fn)
}

func (l *List) update(apply func()) Range {
	l.mu.Lock()
	apply()
	r := l.compute()
	l.current = r
	l.mu.Unlock()

	l.observers.Notify(r)
	return r
}

func (l *List) compute() Range {
	return ComputeRange(l.itemCount, l.itemHeight, l.scroll, l.height, l.overscan)
}
