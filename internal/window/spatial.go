package window

import (
	"math"

	"github.com/couchcryptid/quakewatch/internal/domain"
)

// Bounds is a map viewport rectangle in degrees. East may be less than West
// when the rectangle straddles the antimeridian; the longitude span is always
// measured eastward from West to East.
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// WorldBounds covers every latitude and longitude.
func WorldBounds() Bounds {
	return Bounds{North: 90, South: -90, East: 180, West: -180}
}

// Valid reports whether the bounds describe a non-degenerate rectangle.
func (b Bounds) Valid() bool {
	for _, v := range [...]float64{b.North, b.South, b.East, b.West} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.North >= b.South
}

// LonSpan returns the eastward longitude extent in degrees, capped at 360.
func (b Bounds) LonSpan() float64 {
	d := b.East - b.West
	if d >= 360 {
		return 360
	}
	if d < 0 {
		d = mod360(d)
	}
	return d
}

// FullLongitude reports whether the rectangle wraps the whole globe.
func (b Bounds) FullLongitude() bool {
	return b.LonSpan() >= 360
}

// StraddlesAntimeridian reports whether the rectangle crosses ±180°.
func (b Bounds) StraddlesAntimeridian() bool {
	if b.FullLongitude() {
		return true
	}
	west := mod360(b.West+180) - 180
	return west+b.LonSpan() > 180
}

// Pad expands each side by ratio times the rectangle's span. Negative ratios
// are treated as 0. The result keeps East >= West, so East can exceed 180
// when the padded rectangle straddles the antimeridian.
func (b Bounds) Pad(ratio float64) Bounds {
	if !(ratio > 0) {
		ratio = 0
	}
	span := b.LonSpan()
	latPad := (b.North - b.South) * ratio
	lonPad := span * ratio

	west := b.West - lonPad
	return Bounds{
		North: b.North + latPad,
		South: b.South - latPad,
		West:  west,
		East:  west + span + 2*lonPad,
	}
}

// Contains reports whether a point lies within the rectangle. Latitude is a
// closed interval; longitude is compared in the frame that starts at West, so
// un-normalized longitudes and antimeridian crossings need no special casing.
func (b Bounds) Contains(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return false
	}
	if lat < b.South || lat > b.North {
		return false
	}
	span := b.LonSpan()
	if span >= 360 {
		return true
	}
	return mod360(lon-b.West) <= span
}

// Visible returns the events inside bounds after padding each side by
// paddingRatio of its span. Events without coordinates are skipped and
// degenerate bounds yield no events. Order is preserved and the input is
// never modified.
func Visible(events []domain.Event, bounds Bounds, paddingRatio float64) []domain.Event {
	out := make([]domain.Event, 0)
	if !bounds.Valid() {
		return out
	}
	padded := bounds.Pad(paddingRatio)
	for _, e := range events {
		if e.Geo == nil {
			continue
		}
		if padded.Contains(e.Geo.Lat, e.Geo.Lon) {
			out = append(out, e)
		}
	}
	return out
}

// NormalizeLon maps a longitude into (-180, 180].
func NormalizeLon(lon float64) float64 {
	l := mod360(lon+180) - 180
	if l == -180 {
		return 180
	}
	return l
}

func mod360(v float64) float64 {
	m := math.Mod(v, 360)
	if m < 0 {
		m += 360
	}
	return m
}
