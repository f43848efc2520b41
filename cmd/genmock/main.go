// Command genmock generates a reproducible USGS summary GeoJSON feed for
// local runs and tests. The output is parsed back through the real feed
// parser and filter pipeline so the printed counts match service behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out data/mock/all_day.geojson \
//	  -window day -count 250 -seed 42
//
// Point USGS_BASE_URL at a static file server over data/mock to serve it.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"time"

	geojson "github.com/paulmach/go.geojson"

	"github.com/couchcryptid/quakewatch/internal/adapter/usgs"
	"github.com/couchcryptid/quakewatch/internal/domain"
	"github.com/couchcryptid/quakewatch/internal/window"
)

var defaultNow = time.Date(2024, time.April, 26, 12, 0, 0, 0, time.UTC)

// region is a seismically active area events are scattered around.
type region struct {
	place  string
	lat    float64
	lon    float64
	spread float64
	weight int
}

var regions = []region{
	{place: "Fiji", lat: -17.9, lon: 178.3, spread: 3, weight: 8},
	{place: "Tonga", lat: -20.5, lon: -175.1, spread: 3, weight: 6},
	{place: "Aleutian Islands, Alaska", lat: 51.8, lon: 179.2, spread: 4, weight: 8},
	{place: "Southern Alaska", lat: 61.2, lon: -149.9, spread: 2, weight: 12},
	{place: "Northern California", lat: 38.8, lon: -122.8, spread: 1, weight: 20},
	{place: "Central Chile", lat: -33.4, lon: -71.6, spread: 3, weight: 6},
	{place: "Honshu, Japan", lat: 37.2, lon: 141.9, spread: 2, weight: 10},
	{place: "Sumatra, Indonesia", lat: -1.5, lon: 99.2, spread: 3, weight: 6},
	{place: "Central Italy", lat: 42.7, lon: 13.2, spread: 1, weight: 4},
	{place: "Puerto Rico", lat: 18.0, lon: -66.8, spread: 1, weight: 8},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the GeoJSON feed")
	windowName := flag.String("window", string(domain.WindowDay), "time window the feed covers (hour, day, week, month)")
	count := flag.Int("count", 250, "number of features to generate")
	seed := flag.Uint64("seed", 42, "random seed")
	nowFlag := flag.String("now", defaultNow.Format(time.RFC3339), "feed generation time (RFC3339)")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	w, err := domain.ParseTimeWindow(*windowName)
	if err != nil {
		return err
	}
	now, err := time.Parse(time.RFC3339, *nowFlag)
	if err != nil {
		return fmt.Errorf("parse -now: %w", err)
	}

	fc := generate(w, *count, *seed, now)
	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal feed: %w", err)
	}
	if err := writeFile(*out, data); err != nil {
		return fmt.Errorf("writing feed: %w", err)
	}
	log.Printf("wrote %d features: %s", len(fc.Features), *out)

	events, err := usgs.ParseFeed(data)
	if err != nil {
		return fmt.Errorf("parse generated feed: %w", err)
	}
	printStats(events, w, now)
	return nil
}

func generate(w domain.TimeWindow, count int, seed uint64, now time.Time) *geojson.FeatureCollection {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	span, _ := w.Duration()

	totalWeight := 0
	for _, r := range regions {
		totalWeight += r.weight
	}

	fc := geojson.NewFeatureCollection()
	for i := range count {
		r := pickRegion(rng, totalWeight)
		lat := clamp(r.lat+rng.NormFloat64()*r.spread/2, -90, 90)
		lon := wrapLon(r.lon + rng.NormFloat64()*r.spread/2)
		depth := math.Round(rng.ExpFloat64()*25*100) / 100
		occurred := now.Add(-time.Duration(rng.Int64N(int64(span))))
		id := fmt.Sprintf("mk%08d", 10_000_000+i)

		f := geojson.NewPointFeature([]float64{lon, lat, depth})
		// Every fortieth event has not been located yet.
		if i%40 == 39 {
			f = geojson.NewFeature(nil)
		}
		f.ID = id

		mag := magnitude(rng)
		if i%23 == 22 {
			// Not yet reviewed: USGS publishes a null magnitude.
			f.SetProperty("mag", nil)
		} else {
			f.SetProperty("mag", mag)
		}
		place := fmt.Sprintf("%d km %s of %s", 2+rng.IntN(120), compass(rng), r.place)
		f.SetProperty("place", place)
		f.SetProperty("time", occurred.UnixMilli())
		f.SetProperty("updated", occurred.Add(time.Duration(rng.IntN(90))*time.Minute).UnixMilli())
		f.SetProperty("magType", magType(mag))
		f.SetProperty("status", "automatic")
		f.SetProperty("tsunami", boolInt(mag >= 7 && rng.IntN(2) == 0))
		f.SetProperty("types", ",origin,phase-data,")
		f.SetProperty("url", "https://earthquake.usgs.gov/earthquakes/eventpage/"+id)
		f.SetProperty("detail", "https://earthquake.usgs.gov/earthquakes/feed/v1.0/detail/"+id+".geojson")
		f.SetProperty("title", fmt.Sprintf("M %.1f - %s", mag, place))
		if mag >= 4 {
			f.SetProperty("mmi", math.Round(mag*1.1*100)/100)
			f.SetProperty("felt", rng.IntN(500))
			f.SetProperty("types", ",dyfi,moment-tensor,origin,phase-data,shakemap,")
		} else {
			f.SetProperty("mmi", nil)
			f.SetProperty("felt", nil)
		}
		fc.AddFeature(f)
	}
	return fc
}

func pickRegion(rng *rand.Rand, totalWeight int) region {
	n := rng.IntN(totalWeight)
	for _, r := range regions {
		if n < r.weight {
			return r
		}
		n -= r.weight
	}
	return regions[len(regions)-1]
}

// magnitude draws from an exponential tail so small events dominate, as in a
// real catalog.
func magnitude(rng *rand.Rand) float64 {
	m := 0.5 + rng.ExpFloat64()*1.1
	return math.Round(math.Min(m, 8.6)*10) / 10
}

func magType(mag float64) string {
	switch {
	case mag >= 5:
		return "mww"
	case mag >= 3:
		return "mb"
	default:
		return "ml"
	}
}

func compass(rng *rand.Rand) string {
	points := [...]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}
	return points[rng.IntN(len(points))]
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func wrapLon(lon float64) float64 {
	return math.Round(window.NormalizeLon(lon)*1e4) / 1e4
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

func printStats(events []domain.Event, w domain.TimeWindow, now time.Time) {
	view := domain.ApplyAt(events, domain.Filter{Window: w}, now)
	stats := domain.ComputeStats(view, 5.0)

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Parsed events: %d\n", len(events))
	fmt.Printf("Default view (%s): %d\n", w.Label(), len(view))
	fmt.Printf("Magnitude >= 5.0: %d\n", stats.AboveThreshold)
	if stats.Largest != nil {
		fmt.Printf("Largest: %s M%.1f %s\n", stats.Largest.ID, *stats.Largest.Magnitude, stats.Largest.Place)
	}

	bands := map[domain.Band]int{}
	for _, e := range view {
		bands[domain.ClassifyMagnitude(e.Magnitude).Band]++
	}
	keys := make([]domain.Band, 0, len(bands))
	for b := range bands {
		keys = append(keys, b)
	}
	slices.Sort(keys)
	fmt.Print("By band:")
	for _, b := range keys {
		fmt.Printf(" %s=%d", b, bands[b])
	}
	fmt.Println()

	pacific := window.Bounds{North: 60, South: -30, West: 170, East: -170}
	fmt.Printf("Antimeridian box %+v: %d\n", pacific, len(window.Visible(view, pacific, 0)))
	fmt.Printf("World: %d (unlocated excluded)\n", len(window.Visible(view, window.WorldBounds(), 0)))
}
