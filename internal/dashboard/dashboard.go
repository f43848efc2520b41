// Package dashboard keeps the live event feed and every view derived from it:
// the filtered, time-ordered list with its statistics, the list and map
// viewports, the selected event, and alerts for newly seen significant events.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/quakewatch/internal/domain"
	"github.com/couchcryptid/quakewatch/internal/observability"
	"github.com/couchcryptid/quakewatch/internal/window"
)

// ErrNotFound is returned when an event id is not in the current feed.
var ErrNotFound = errors.New("event not found")

// Source supplies parsed feeds and can drop its cached copy of one.
type Source interface {
	Fetch(ctx context.Context, w domain.TimeWindow) (domain.Feed, error)
	Invalidate(w domain.TimeWindow)
}

// AlertSink receives newly seen events at or above the alert threshold.
type AlertSink interface {
	Publish(ctx context.Context, events []domain.Event) error
}

// Options tunes a Dashboard. Zero durations and sizes use package defaults;
// thresholds are used as given.
type Options struct {
	Filter            domain.Filter
	StatsThreshold    float64
	AlertMinMagnitude float64
	RefreshInterval   time.Duration
	ListItemHeight    float64
	ListOverscan      int
	MapPadding        float64
	MapDebounce       time.Duration
	Clock             clockwork.Clock
}

// DefaultOptions returns the settings used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Filter:            domain.DefaultFilter(),
		StatsThreshold:    5.0,
		AlertMinMagnitude: 4.5,
		RefreshInterval:   60 * time.Second,
		ListItemHeight:    57,
		ListOverscan:      window.DefaultOverscan,
		MapPadding:        window.DefaultPadding,
		MapDebounce:       window.DefaultDebounce,
	}
}

// Status describes the freshness of the loaded feed.
type Status struct {
	Ready         bool              `json:"ready"`
	Window        domain.TimeWindow `json:"window"`
	FeedEvents    int               `json:"feed_events"`
	ViewEvents    int               `json:"view_events"`
	FetchedAt     time.Time         `json:"fetched_at"`
	LastRefreshAt time.Time         `json:"last_refresh_at"`
	LastError     string            `json:"last_error,omitempty"`
}

// Dashboard orchestrates fetching, filtering, windowing and alerting.
type Dashboard struct {
	source  Source
	details domain.DetailFetcher
	alerts  AlertSink
	logger  *slog.Logger
	metrics *observability.Metrics
	opts    Options
	clock   clockwork.Clock

	list    *window.List
	mapView *window.MapView
	ready   atomic.Bool

	// refreshMu serializes refreshes so alert baselines see feeds in order.
	refreshMu sync.Mutex
	// publishMu is held from view computation until the windowers have the
	// view, so they always end on the latest one. Lock order: refreshMu,
	// publishMu, mu.
	publishMu sync.Mutex

	mu          sync.Mutex
	filter      domain.Filter
	feed        domain.Feed
	hasFeed     bool
	view        []domain.Event
	stats       domain.Stats
	selectedID  string
	seen        map[string]struct{}
	seenWindow  domain.TimeWindow
	lastErr     error
	lastRefresh time.Time
}

// New creates a Dashboard. details and alerts may be nil.
func New(source Source, details domain.DetailFetcher, alerts AlertSink, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Dashboard {
	defaults := DefaultOptions()
	if opts.Filter.Window == "" {
		opts.Filter.Window = domain.DefaultTimeWindow
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = defaults.RefreshInterval
	}
	if opts.ListItemHeight <= 0 {
		opts.ListItemHeight = defaults.ListItemHeight
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	d := &Dashboard{
		source:  source,
		details: details,
		alerts:  alerts,
		logger:  logger,
		metrics: metrics,
		opts:    opts,
		clock:   opts.Clock,
		filter:  opts.Filter,
		view:    []domain.Event{},
	}
	d.list = window.NewList(0, opts.ListItemHeight, window.WithOverscan(opts.ListOverscan))
	d.mapView = window.NewMapView(opts.MapPadding,
		window.NewDebouncer(opts.MapDebounce, opts.Clock),
		window.WithRecomputeHook(func(visible int) {
			metrics.MapRecomputes.Inc()
			metrics.MapVisibleEvents.Set(float64(visible))
		}),
	)
	return d
}

// CheckReadiness returns nil once a feed has loaded.
func (d *Dashboard) CheckReadiness(_ context.Context) error {
	if !d.ready.Load() {
		return errors.New("dashboard has not loaded a feed yet")
	}
	return nil
}

// Ready reports whether a feed has loaded.
func (d *Dashboard) Ready() bool {
	return d.ready.Load()
}

// Refresh fetches the feed for the current time window and recomputes every
// derived view. On failure the previous feed stays in place and the error is
// recorded in Status.
func (d *Dashboard) Refresh(ctx context.Context) error {
	d.refreshMu.Lock()
	defer d.refreshMu.Unlock()

	w := d.Filter().Window
	feed, err := d.source.Fetch(ctx, w)
	if err != nil {
		d.metrics.Refreshes.WithLabelValues("error").Inc()
		d.mu.Lock()
		d.lastErr = err
		d.mu.Unlock()
		return fmt.Errorf("refresh %s feed: %w", w, err)
	}

	d.publishMu.Lock()
	d.mu.Lock()
	if d.filter.Window != feed.Window {
		// The filter moved to another window while this fetch was in flight.
		d.mu.Unlock()
		d.publishMu.Unlock()
		return nil
	}
	fresh := d.newlySeenLocked(feed)
	d.feed = feed
	d.hasFeed = true
	d.lastErr = nil
	d.lastRefresh = d.clock.Now()
	if d.selectedID != "" && !containsID(feed.Events, d.selectedID) {
		d.logger.Info("selected event left the feed", "event_id", d.selectedID)
		d.selectedID = ""
	}
	view := d.recomputeLocked()
	d.mu.Unlock()

	d.publishView(view)
	d.publishMu.Unlock()
	d.ready.Store(true)
	d.metrics.Refreshes.WithLabelValues("success").Inc()
	d.metrics.FeedEvents.Set(float64(len(feed.Events)))
	d.logger.Debug("feed refreshed", "window", feed.Window, "events", len(feed.Events), "view", len(view))

	d.publishAlerts(ctx, fresh)
	return nil
}

// ForceRefresh drops the cached feed for the current window and refreshes.
func (d *Dashboard) ForceRefresh(ctx context.Context) error {
	d.source.Invalidate(d.Filter().Window)
	return d.Refresh(ctx)
}

// Filter returns the active filter.
func (d *Dashboard) Filter() domain.Filter {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.filter
}

// SetFilter validates and applies a filter. The view is recomputed from the
// loaded feed at once; a time window change also triggers a refresh. If that
// refresh fails the previous filter is restored and the error returned.
func (d *Dashboard) SetFilter(ctx context.Context, f domain.Filter) error {
	f, err := normalizeFilter(f)
	if err != nil {
		return err
	}

	prev, _ := d.swapFilter(f, nil)
	if prev.Window == f.Window {
		return nil
	}
	if err := d.Refresh(ctx); err != nil {
		if _, restored := d.swapFilter(prev, &f); restored {
			d.logger.Warn("filter change reverted", "window", f.Window, "restored", prev.Window, "error", err)
		}
		return err
	}
	return nil
}

// swapFilter replaces the filter and publishes the recomputed view. When
// expect is non-nil the swap only happens if the current filter still equals
// it. It returns the replaced filter and whether the swap happened.
func (d *Dashboard) swapFilter(f domain.Filter, expect *domain.Filter) (domain.Filter, bool) {
	d.publishMu.Lock()
	defer d.publishMu.Unlock()

	d.mu.Lock()
	prev := d.filter
	if expect != nil && prev != *expect {
		d.mu.Unlock()
		return prev, false
	}
	d.filter = f
	view := d.recomputeLocked()
	d.mu.Unlock()

	d.publishView(view)
	return prev, true
}

// Result is a filtered view with its statistics.
type Result struct {
	Filter domain.Filter  `json:"filter"`
	Events []domain.Event `json:"events"`
	Stats  domain.Stats   `json:"stats"`
}

// Query evaluates f without changing the dashboard's own filter. A window
// other than the loaded one is fetched through the source.
func (d *Dashboard) Query(ctx context.Context, f domain.Filter) (Result, error) {
	f, err := normalizeFilter(f)
	if err != nil {
		return Result{}, err
	}

	d.mu.Lock()
	feed, ok := d.feed, d.hasFeed && d.feed.Window == f.Window
	d.mu.Unlock()
	if !ok {
		if feed, err = d.source.Fetch(ctx, f.Window); err != nil {
			return Result{}, fmt.Errorf("query %s feed: %w", f.Window, err)
		}
	}

	events := domain.ApplyAt(feed.Events, f, d.clock.Now())
	return Result{
		Filter: f,
		Events: events,
		Stats:  domain.ComputeStats(events, d.opts.StatsThreshold),
	}, nil
}

// Current returns the active filter, view and statistics together.
func (d *Dashboard) Current() Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Result{Filter: d.filter, Events: slices.Clone(d.view), Stats: d.stats}
}

// View returns a copy of the filtered, time-ordered events.
func (d *Dashboard) View() []domain.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.view)
}

// Stats returns the statistics of the current view.
func (d *Dashboard) Stats() domain.Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Status reports feed freshness and the last refresh error, if any.
func (d *Dashboard) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := Status{
		Ready:         d.ready.Load(),
		Window:        d.filter.Window,
		FeedEvents:    len(d.feed.Events),
		ViewEvents:    len(d.view),
		FetchedAt:     d.feed.FetchedAt,
		LastRefreshAt: d.lastRefresh,
	}
	if d.lastErr != nil {
		s.LastError = d.lastErr.Error()
	}
	return s
}

// Event looks up an event in the loaded feed by id.
func (d *Dashboard) Event(id string) (domain.Event, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.eventLocked(id)
}

// Detail classifies an event and enriches it with its detail document.
func (d *Dashboard) Detail(ctx context.Context, id string) (domain.DetailSummary, error) {
	e, ok := d.Event(id)
	if !ok {
		return domain.DetailSummary{}, ErrNotFound
	}
	return domain.SummarizeDetail(ctx, e, d.details, d.logger), nil
}

// Select marks an event as selected. The selection survives refreshes for as
// long as the id stays in the feed.
func (d *Dashboard) Select(id string) (domain.Event, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.eventLocked(id)
	if !ok {
		return domain.Event{}, ErrNotFound
	}
	d.selectedID = id
	return e, nil
}

// ClearSelection drops the selection.
func (d *Dashboard) ClearSelection() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.selectedID = ""
}

// Selected returns the selected event from the current feed.
func (d *Dashboard) Selected() (domain.Event, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.selectedID == "" {
		return domain.Event{}, false
	}
	return d.eventLocked(d.selectedID)
}

func (d *Dashboard) eventLocked(id string) (domain.Event, bool) {
	for _, e := range d.feed.Events {
		if e.ID == id {
			return e, true
		}
	}
	return domain.Event{}, false
}

// recomputeLocked rebuilds the view and stats from the loaded feed.
func (d *Dashboard) recomputeLocked() []domain.Event {
	start := time.Now()
	d.view = domain.ApplyAt(d.feed.Events, d.filter, d.clock.Now())
	d.stats = domain.ComputeStats(d.view, d.opts.StatsThreshold)
	d.metrics.PipelineDuration.Observe(time.Since(start).Seconds())
	d.metrics.ViewEvents.Set(float64(len(d.view)))
	return d.view
}

// publishView pushes a new view into the list and map windowers. Callers
// hold publishMu.
func (d *Dashboard) publishView(view []domain.Event) {
	d.list.SetItemCount(len(view))
	d.mapView.SetEvents(view)
}

// newlySeenLocked returns events in feed at or above the alert threshold
// whose ids were absent from the previous feed for the same window, and
// records feed as the new baseline. The first feed for a window only sets
// the baseline.
func (d *Dashboard) newlySeenLocked(feed domain.Feed) []domain.Event {
	var fresh []domain.Event
	if d.seen != nil && d.seenWindow == feed.Window {
		for _, e := range feed.Events {
			if _, ok := d.seen[e.ID]; !ok && e.MagnitudeAtLeast(d.opts.AlertMinMagnitude) {
				fresh = append(fresh, e)
			}
		}
	}

	seen := make(map[string]struct{}, len(feed.Events))
	for _, e := range feed.Events {
		seen[e.ID] = struct{}{}
	}
	d.seen = seen
	d.seenWindow = feed.Window
	return fresh
}

func (d *Dashboard) publishAlerts(ctx context.Context, events []domain.Event) {
	if d.alerts == nil || len(events) == 0 {
		return
	}
	if err := d.alerts.Publish(ctx, events); err != nil {
		d.metrics.AlertErrors.Inc()
		d.logger.Error("publish alerts failed", "error", err, "count", len(events))
		return
	}
	d.metrics.AlertsPublished.Add(float64(len(events)))
}

func normalizeFilter(f domain.Filter) (domain.Filter, error) {
	w, err := domain.ParseTimeWindow(string(f.Window))
	if err != nil {
		return domain.Filter{}, err
	}
	f.Window = w
	f.MinMagnitude = max(f.MinMagnitude, 0)
	return f, nil
}

func containsID(events []domain.Event, id string) bool {
	return slices.ContainsFunc(events, func(e domain.Event) bool { return e.ID == id })
}
