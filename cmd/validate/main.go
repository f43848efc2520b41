// Command validate checks a USGS summary GeoJSON feed end to end: the raw
// document structure, the events the service parses from it, and the
// invariants of the filter, aggregate and viewport stages run over them.
//
// Usage:
//
//	go run ./cmd/validate -feed data/mock/all_day.geojson -window day
//	go run ./cmd/validate -live -window hour
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"slices"
	"time"

	geojson "github.com/paulmach/go.geojson"

	"github.com/couchcryptid/quakewatch/internal/adapter/usgs"
	"github.com/couchcryptid/quakewatch/internal/config"
	"github.com/couchcryptid/quakewatch/internal/domain"
	"github.com/couchcryptid/quakewatch/internal/observability"
	"github.com/couchcryptid/quakewatch/internal/window"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	feedPath := flag.String("feed", "", "path to a USGS summary GeoJSON file")
	live := flag.Bool("live", false, "fetch the feed from USGS_BASE_URL instead of a file")
	windowName := flag.String("window", string(domain.WindowDay), "time window of the feed")
	flag.Parse()

	if (*feedPath == "") == !*live {
		flag.Usage()
		os.Exit(1)
	}

	w, err := domain.ParseTimeWindow(*windowName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}

	data, err := load(*feedPath, *live, w)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load feed: %v\n", err)
		os.Exit(1)
	}
	os.Exit(run(data, w))
}

func load(path string, live bool, w domain.TimeWindow) ([]byte, error) {
	if !live {
		return os.ReadFile(path)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := usgs.NewClient(cfg.USGSBaseURL, cfg.USGSTimeout, observability.NewMetricsForTesting(), logger)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.USGSTimeout)
	defer cancel()
	return client.FetchFeedDocument(ctx, w)
}

func run(data []byte, w domain.TimeWindow) int {
	fmt.Println("=== Quake Feed Integrity Validation ===")
	fmt.Println()

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: decode GeoJSON: %v\n", err)
		return 1
	}
	events, err := usgs.ParseFeed(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: parse feed: %v\n", err)
		return 1
	}

	now := latest(events)
	view := domain.ApplyAt(events, domain.Filter{Window: w}, now)

	// ── Run validation phases ──
	phases := []*phase{
		validateStructure(fc),
		validateParsing(fc, events),
		validatePipeline(events, view, w, now),
		validateAggregates(view),
		validateViewports(view),
	}

	// ── Report results ──
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Features: %d GeoJSON, %d parsed, %d in %s view\n",
		len(fc.Features), len(events), len(view), w.Label())

	// Print detailed errors.
	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// latest returns the newest occurrence time so a saved feed validates the
// same way it would have when it was fetched.
func latest(events []domain.Event) time.Time {
	var ms int64
	for _, e := range events {
		ms = max(ms, e.OccurredAtMs)
	}
	return time.UnixMilli(ms).UTC()
}

// ── Phase 1: raw GeoJSON ──

func validateStructure(fc *geojson.FeatureCollection) *phase {
	p := &phase{name: "GeoJSON structure"}
	for i, f := range fc.Features {
		if f.ID == nil {
			p.errorf("feature %d: missing id", i)
		}
		if _, err := f.PropertyFloat64("time"); err != nil {
			p.errorf("feature %d: time: %v", i, err)
		}
		if v, ok := f.Properties["mag"]; ok && v != nil {
			if _, err := f.PropertyFloat64("mag"); err != nil {
				p.errorf("feature %d: mag is not numeric: %v", i, v)
			}
		}
		g := f.Geometry
		if g == nil {
			continue
		}
		if !g.IsPoint() || len(g.Point) < 2 {
			p.errorf("feature %d: geometry is %s, want Point", i, g.Type)
			continue
		}
		lon, lat := g.Point[0], g.Point[1]
		if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			p.errorf("feature %d: coordinates out of range: lat=%g lon=%g", i, lat, lon)
		}
	}
	return p
}

// ── Phase 2: parsed events ──

func validateParsing(fc *geojson.FeatureCollection, events []domain.Event) *phase {
	p := &phase{name: "Parsed events"}

	withID := 0
	for _, f := range fc.Features {
		if f.ID != nil {
			withID++
		}
	}
	if len(events) != withID {
		p.errorf("parsed %d events, want %d (features with an id)", len(events), withID)
	}

	seen := make(map[string]bool, len(events))
	for _, e := range events {
		if seen[e.ID] {
			p.errorf("duplicate id %s", e.ID)
		}
		seen[e.ID] = true
		if e.OccurredAtMs <= 0 {
			p.errorf("%s: missing occurrence time", e.ID)
		}
		if e.Magnitude != nil && math.IsNaN(*e.Magnitude) {
			p.errorf("%s: NaN magnitude", e.ID)
		}
	}
	return p
}

// ── Phase 3: filter pipeline ──

func validatePipeline(events, view []domain.Event, w domain.TimeWindow, now time.Time) *phase {
	p := &phase{name: "Filter pipeline"}

	span, _ := w.Duration()
	cutoff := now.Add(-span).UnixMilli()
	for i, e := range view {
		if e.Magnitude == nil {
			p.errorf("%s: unmeasured event in view", e.ID)
		}
		if e.OccurredAtMs < cutoff {
			p.errorf("%s: older than the %s window", e.ID, w)
		}
		if i > 0 && view[i-1].OccurredAtMs < e.OccurredAtMs {
			p.errorf("view not newest-first at index %d", i)
		}
	}

	stronger := domain.ApplyAt(events, domain.Filter{Window: w, MinMagnitude: 4.5}, now)
	if len(stronger) > len(view) {
		p.errorf("raising the magnitude floor grew the view: %d > %d", len(stronger), len(view))
	}
	for _, e := range stronger {
		if !slices.ContainsFunc(view, func(v domain.Event) bool { return v.ID == e.ID }) {
			p.errorf("%s: in the M4.5+ view but not the full view", e.ID)
		}
	}

	again := domain.ApplyAt(view, domain.Filter{Window: w}, now)
	if len(again) != len(view) {
		p.errorf("filtering is not idempotent: %d then %d", len(view), len(again))
	}
	return p
}

// ── Phase 4: aggregates ──

func validateAggregates(view []domain.Event) *phase {
	p := &phase{name: "Aggregates"}

	stats := domain.ComputeStats(view, 5.0)
	if stats.Total != len(view) {
		p.errorf("total %d, want %d", stats.Total, len(view))
	}
	if stats.AboveThreshold > stats.Total {
		p.errorf("above threshold %d exceeds total %d", stats.AboveThreshold, stats.Total)
	}
	if stats.Largest == nil {
		if len(view) > 0 {
			p.errorf("no largest event in a non-empty view")
		}
		return p
	}
	for _, e := range view {
		if e.Magnitude != nil && *e.Magnitude > *stats.Largest.Magnitude {
			p.errorf("%s (M%.1f) is larger than the reported largest %s", e.ID, *e.Magnitude, stats.Largest.ID)
		}
	}
	return p
}

// ── Phase 5: viewports ──

func validateViewports(view []domain.Event) *phase {
	p := &phase{name: "Viewports"}

	located := 0
	for _, e := range view {
		if e.Geo != nil {
			located++
		}
	}
	if n := len(window.Visible(view, window.WorldBounds(), 0)); n != located {
		p.errorf("world bounds show %d events, want %d located", n, located)
	}

	// A box straddling the antimeridian plus its complement covers the globe.
	pacific := window.Bounds{North: 90, South: -90, West: 90, East: -90}
	atlantic := window.Bounds{North: 90, South: -90, West: -90, East: 90}
	if !pacific.StraddlesAntimeridian() {
		p.errorf("bounds %+v should straddle the antimeridian", pacific)
	}
	east := window.Visible(view, pacific, 0)
	west := window.Visible(view, atlantic, 0)
	onEdge := 0
	for _, e := range east {
		if e.Geo.Lon == 90 || e.Geo.Lon == -90 {
			onEdge++
		}
	}
	if len(east)+len(west)-onEdge != located {
		p.errorf("hemispheres show %d+%d events (%d on the seam), want %d", len(east), len(west), onEdge, located)
	}

	r := window.ComputeRange(len(view), 57, 0, 600, window.DefaultOverscan)
	if len(view) > 0 && (r.Start != 0 || r.End > len(view)-1) {
		p.errorf("list window %d..%d out of range for %d rows", r.Start, r.End, len(view))
	}
	return p
}
