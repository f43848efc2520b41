package domain

import (
	"strings"
	"time"
)

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Event is one detected seismic occurrence. Values are never mutated after
// construction; a refresh produces new Events.
type Event struct {
	ID            string   `json:"id"`
	Magnitude     *float64 `json:"magnitude"`
	MagnitudeType string   `json:"magnitude_type,omitempty"`
	Place         string   `json:"place"`
	Title         string   `json:"title,omitempty"`
	OccurredAtMs  int64    `json:"occurred_at_ms"`
	UpdatedAtMs   int64    `json:"updated_at_ms,omitempty"`
	Geo           *Geo     `json:"geo,omitempty"`
	DepthKm       *float64 `json:"depth_km,omitempty"`
	Tsunami       bool     `json:"tsunami"`
	ProductTypes  string   `json:"product_types,omitempty"`
	MMI           *float64 `json:"mmi,omitempty"`
	Felt          *int     `json:"felt,omitempty"`
	Alert         string   `json:"alert,omitempty"`
	Status        string   `json:"status,omitempty"`
	URL           string   `json:"url,omitempty"`
	DetailURL     string   `json:"detail_url,omitempty"`
}

// Feed is one fetched collection of events.
type Feed struct {
	Window    TimeWindow `json:"window"`
	Events    []Event    `json:"events"`
	FetchedAt time.Time  `json:"fetched_at"`
}

// Float returns a pointer to v, for building optional fields.
func Float(v float64) *float64 {
	return &v
}

// OccurredAt returns the origin time in UTC.
func (e Event) OccurredAt() time.Time {
	return time.UnixMilli(e.OccurredAtMs).UTC()
}

// MagnitudeAtLeast reports whether the magnitude is present and >= threshold.
// An absent magnitude fails every threshold.
func (e Event) MagnitudeAtLeast(threshold float64) bool {
	return e.Magnitude != nil && *e.Magnitude >= threshold
}

// HasProduct reports whether tag appears in the comma-separated ProductTypes.
func (e Event) HasProduct(tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return false
	}
	for _, t := range strings.Split(e.ProductTypes, ",") {
		if strings.EqualFold(strings.TrimSpace(t), tag) {
			return true
		}
	}
	return false
}
