package window

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/couchcryptid/quakewatch/internal/domain"
)

func at(id string, lat, lon float64) domain.Event {
	return domain.Event{ID: id, Geo: &domain.Geo{Lat: lat, Lon: lon}}
}

func ids(events []domain.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}

func TestVisible_WorldBoundsReturnsEverything(t *testing.T) {
	events := []domain.Event{
		at("a", 61.2, -149.9),
		at("b", -33.4, -70.6),
		at("c", 35.7, 139.7),
		at("d", 0, 180),
		at("e", 0, -180),
		at("f", 90, 0),
		at("g", -90, 0),
	}

	got := Visible(events, WorldBounds(), 0)

	assert.ElementsMatch(t, ids(events), ids(got))
}

func TestVisible_Antimeridian(t *testing.T) {
	events := []domain.Event{
		at("east-of-line", 0, 175),
		at("west-of-line", 0, -175),
		at("greenwich", 0, 0),
		at("edge-west", 0, 170),
		at("edge-east", 0, -170),
		at("outside", 0, -160),
	}
	b := Bounds{North: 10, South: -10, West: 170, East: -170}

	got := Visible(events, b, 0)

	assert.Equal(t, []string{"east-of-line", "west-of-line", "edge-west", "edge-east"}, ids(got))
}

func TestVisible_AntimeridianWithPadding(t *testing.T) {
	events := []domain.Event{
		at("inside-pad-west", 0, 168.5),
		at("inside-pad-east", 0, -169),
		at("outside-pad", 0, -167),
	}
	b := Bounds{North: 10, South: -10, West: 170, East: -170}

	got := Visible(events, b, 0.1)

	assert.Equal(t, []string{"inside-pad-west", "inside-pad-east"}, ids(got))
}

func TestVisible_Padding(t *testing.T) {
	events := []domain.Event{
		at("inside", 5, 5),
		at("in-padding", 10.5, 10.5),
		at("outside-lat", 12, 5),
		at("outside-lon", 5, -2),
	}
	b := Bounds{North: 10, South: 0, East: 10, West: 0}

	assert.Equal(t, []string{"inside"}, ids(Visible(events, b, 0)))
	assert.Equal(t, []string{"inside", "in-padding"}, ids(Visible(events, b, 0.1)))
}

func TestVisible_SkipsEventsWithoutCoordinates(t *testing.T) {
	events := []domain.Event{{ID: "no-geo"}, at("geo", 0, 0)}

	got := Visible(events, WorldBounds(), 0)

	assert.Equal(t, []string{"geo"}, ids(got))
}

func TestVisible_DegenerateBounds(t *testing.T) {
	events := []domain.Event{at("a", 0, 0)}

	got := Visible(events, Bounds{North: -10, South: 10, East: 10, West: -10}, 0)

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestVisible_UnnormalizedLongitude(t *testing.T) {
	events := []domain.Event{at("wrapped", 0, 535), at("negative-wrapped", 0, -545)}
	b := Bounds{North: 10, South: -10, West: 170, East: -170}

	got := Visible(events, b, 0)

	assert.Equal(t, []string{"wrapped", "negative-wrapped"}, ids(got))
}

func TestVisible_PaddingPastFullGlobe(t *testing.T) {
	events := []domain.Event{at("a", 0, 5), at("b", 0, -179), at("c", 0, 90)}
	b := Bounds{North: 10, South: -10, West: 10, East: 0}

	got := Visible(events, b, 0.1)

	assert.Len(t, got, 3)
}

func TestVisible_DoesNotMutateInput(t *testing.T) {
	events := []domain.Event{at("a", 0, 0), at("b", 50, 50)}
	before := ids(events)

	Visible(events, Bounds{North: 10, South: -10, East: 10, West: -10}, 0)

	assert.Equal(t, before, ids(events))
}

func TestBounds_StraddlesAntimeridian(t *testing.T) {
	tests := []struct {
		name   string
		bounds Bounds
		want   bool
	}{
		{"straddling", Bounds{West: 170, East: -170}, true},
		{"ordinary", Bounds{West: -10, East: 10}, false},
		{"touches line from the west edge", Bounds{West: -180, East: 0}, false},
		{"un-normalized east", Bounds{West: 170, East: 190}, true},
		{"world", WorldBounds(), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.bounds.StraddlesAntimeridian())
		})
	}
}

func TestBounds_Pad(t *testing.T) {
	got := Bounds{North: 10, South: -10, West: 170, East: -170}.Pad(0.1)

	assert.InDelta(t, 12, got.North, 1e-9)
	assert.InDelta(t, -12, got.South, 1e-9)
	assert.InDelta(t, 168, got.West, 1e-9)
	assert.InDelta(t, 192, got.East, 1e-9)
	assert.InDelta(t, 24, got.LonSpan(), 1e-9)
	assert.True(t, got.StraddlesAntimeridian())

	unchanged := Bounds{North: 1, South: 0, West: 0, East: 1}
	assert.Equal(t, unchanged, unchanged.Pad(-1))
}

func TestNormalizeLon(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{180, 180},
		{-180, 180},
		{190, -170},
		{-190, 170},
		{535, 175},
		{-179.5, -179.5},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, NormalizeLon(tt.in), 1e-9, "NormalizeLon(%v)", tt.in)
	}
}
