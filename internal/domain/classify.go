package domain

import (
	"fmt"
	"math"
)

// Band is a magnitude severity band, ordered low to high.
type Band int

const (
	BandUnknown Band = iota
	BandMinor
	BandLight
	BandModerate
	BandStrong
	BandMajor
	BandGreat
)

var bandNames = [...]string{"unknown", "minor", "light", "moderate", "strong", "major", "great"}

func (b Band) String() string {
	if b < BandUnknown || b > BandGreat {
		return bandNames[BandUnknown]
	}
	return bandNames[b]
}

// MarshalText encodes the band by name so JSON output stays readable.
func (b Band) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText decodes a band name written by MarshalText.
func (b *Band) UnmarshalText(text []byte) error {
	for i, name := range bandNames {
		if name == string(text) {
			*b = Band(i)
			return nil
		}
	}
	return fmt.Errorf("unknown magnitude band %q", text)
}

// Classification is the display band for a magnitude.
type Classification struct {
	Band  Band   `json:"band"`
	Label string `json:"label"`
	Color string `json:"color"`
}

var classifications = [...]Classification{
	BandUnknown:  {Band: BandUnknown, Label: "Unknown", Color: "muted"},
	BandMinor:    {Band: BandMinor, Label: "Minor", Color: "success"},
	BandLight:    {Band: BandLight, Label: "Light", Color: "secondary"},
	BandModerate: {Band: BandModerate, Label: "Moderate", Color: "warning"},
	BandStrong:   {Band: BandStrong, Label: "Strong", Color: "destructive"},
	BandMajor:    {Band: BandMajor, Label: "Major", Color: "destructive"},
	BandGreat:    {Band: BandGreat, Label: "Great", Color: "destructive"},
}

// ClassifyMagnitude maps a magnitude to its band using half-open thresholds:
//   - <2.5 minor, <4.5 light, <6.0 moderate, <7.0 strong, <8.0 major, else great
//
// A nil or NaN magnitude is unknown.
func ClassifyMagnitude(m *float64) Classification {
	return classifications[magnitudeBand(m)]
}

func magnitudeBand(m *float64) Band {
	if m == nil || math.IsNaN(*m) {
		return BandUnknown
	}
	switch v := *m; {
	case v < 2.5:
		return BandMinor
	case v < 4.5:
		return BandLight
	case v < 6.0:
		return BandModerate
	case v < 7.0:
		return BandStrong
	case v < 8.0:
		return BandMajor
	default:
		return BandGreat
	}
}

// IntensityStatus distinguishes a missing intensity from an out-of-range one.
type IntensityStatus string

const (
	IntensityReported    IntensityStatus = "reported"
	IntensityUnknown     IntensityStatus = "unknown"
	IntensityNotReported IntensityStatus = "not_reported"
)

// Intensity is a Modified Mercalli Intensity reading with its scale band.
type Intensity struct {
	Status IntensityStatus `json:"status"`
	Value  float64         `json:"value,omitempty"`
	Roman  string          `json:"roman,omitempty"`
	Label  string          `json:"label"`
}

type intensityBand struct {
	roman string
	label string
}

// Adjacent bands share labels per the MMI scale (II and III are both "Weak").
var intensityBands = [...]intensityBand{
	{"I", "Not felt"},
	{"II", "Weak"},
	{"III", "Weak"},
	{"IV", "Light"},
	{"V", "Moderate"},
	{"VI", "Strong"},
	{"VII", "Very strong"},
	{"VIII", "Severe"},
	{"IX", "Violent"},
	{"X", "Extreme"},
	{"XI", "Extreme"},
	{"XII", "Extreme"},
}

// ClassifyIntensity maps an MMI value to its Roman numeral band. Band n covers
// [n, n+1); 12 and above is XII. Values below 1 are unknown and nil is not reported.
func ClassifyIntensity(mmi *float64) Intensity {
	if mmi == nil {
		return Intensity{Status: IntensityNotReported, Label: "Not reported"}
	}
	v := *mmi
	if math.IsNaN(v) || v < 1 {
		return Intensity{Status: IntensityUnknown, Value: v, Label: "Unknown"}
	}

	idx := int(math.Floor(v)) - 1
	if idx >= len(intensityBands) {
		idx = len(intensityBands) - 1
	}
	band := intensityBands[idx]
	return Intensity{Status: IntensityReported, Value: v, Roman: band.roman, Label: band.label}
}

// String formats a reported intensity as "6.2 (VI - Strong)" and otherwise
// returns the label alone.
func (i Intensity) String() string {
	if i.Status != IntensityReported {
		return i.Label
	}
	return fmt.Sprintf("%.1f (%s - %s)", i.Value, i.Roman, i.Label)
}

// MarkerStyle is how a map marker for an event is drawn.
type MarkerStyle struct {
	Color  string  `json:"color"`
	Radius float64 `json:"radius"`
}

// MarkerStyleFor returns the marker fill color and radius for a magnitude.
// Radius is twice the magnitude clamped to [4, 20]; absent magnitudes get a
// gray marker of radius 6.
func MarkerStyleFor(m *float64) MarkerStyle {
	if m == nil || math.IsNaN(*m) {
		return MarkerStyle{Color: "#64748b", Radius: 6}
	}

	v := *m
	var color string
	switch {
	case v >= 7.0:
		color = "#dc2626"
	case v >= 6.0:
		color = "#ea580c"
	case v >= 5.0:
		color = "#f59e0b"
	case v >= 4.0:
		color = "#eab308"
	case v >= 3.0:
		color = "#84cc16"
	default:
		color = "#22c55e"
	}
	return MarkerStyle{Color: color, Radius: math.Max(4, math.Min(v*2, 20))}
}
