package usgs

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"

	geojson "github.com/paulmach/go.geojson"

	"github.com/couchcryptid/quakewatch/internal/domain"
)

const momentTensorProduct = "moment-tensor"

// ParseFeed decodes a USGS summary GeoJSON document into events, the same way
// the client does for live feeds.
func ParseFeed(data []byte) ([]domain.Event, error) {
	return parseFeed(data)
}

// parseFeed decodes a summary FeatureCollection. Features without an id are
// skipped; every other malformed field degrades to its absent value.
func parseFeed(data []byte) ([]domain.Event, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}

	events := make([]domain.Event, 0, len(fc.Features))
	for _, f := range fc.Features {
		if e, ok := eventFromFeature(f); ok {
			events = append(events, e)
		}
	}
	return events, nil
}

func eventFromFeature(f *geojson.Feature) (domain.Event, bool) {
	id := featureID(f)
	if f == nil || id == "" {
		return domain.Event{}, false
	}

	e := domain.Event{
		ID:            id,
		Magnitude:     optFloat(f, "mag"),
		MagnitudeType: f.PropertyMustString("magType", ""),
		Place:         f.PropertyMustString("place", ""),
		Title:         f.PropertyMustString("title", ""),
		OccurredAtMs:  int64(f.PropertyMustFloat64("time", 0)),
		UpdatedAtMs:   int64(f.PropertyMustFloat64("updated", 0)),
		Tsunami:       f.PropertyMustFloat64("tsunami", 0) != 0,
		ProductTypes:  f.PropertyMustString("types", ""),
		MMI:           optFloat(f, "mmi"),
		Alert:         f.PropertyMustString("alert", ""),
		Status:        f.PropertyMustString("status", ""),
		URL:           f.PropertyMustString("url", ""),
		DetailURL:     f.PropertyMustString("detail", ""),
	}
	if felt := optFloat(f, "felt"); felt != nil {
		n := int(*felt)
		e.Felt = &n
	}
	if g := f.Geometry; g != nil && g.IsPoint() && len(g.Point) >= 2 {
		e.Geo = &domain.Geo{Lat: g.Point[1], Lon: g.Point[0]}
		if len(g.Point) >= 3 {
			e.DepthKm = domain.Float(g.Point[2])
		}
	}
	return e, true
}

func featureID(f *geojson.Feature) string {
	if f == nil {
		return ""
	}
	switch v := f.ID.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// optFloat returns nil for missing, null, or non-numeric properties.
func optFloat(f *geojson.Feature, key string) *float64 {
	v, err := f.PropertyFloat64(key)
	if err != nil || math.IsNaN(v) {
		return nil
	}
	return &v
}

// product is one entry of a detail document's products map.
type product struct {
	Source          string            `json:"source"`
	UpdateTime      int64             `json:"updateTime"`
	PreferredWeight float64           `json:"preferredWeight"`
	Properties      map[string]string `json:"properties"`
}

type detailProducts struct {
	Properties struct {
		Products map[string][]product `json:"products"`
	} `json:"properties"`
}

// parseDetail decodes an event detail Feature and its preferred moment tensor.
func parseDetail(data []byte) (domain.EventDetail, error) {
	f, err := geojson.UnmarshalFeature(data)
	if err != nil {
		return domain.EventDetail{}, fmt.Errorf("decode detail feature: %w", err)
	}
	var doc detailProducts
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.EventDetail{}, fmt.Errorf("decode detail products: %w", err)
	}

	detail := domain.EventDetail{
		ID:        featureID(f),
		Magnitude: optFloat(f, "mag"),
		MMI:       optFloat(f, "mmi"),
		Tsunami:   f.PropertyMustFloat64("tsunami", 0) != 0,
	}
	for kind := range doc.Properties.Products {
		detail.ProductTypes = append(detail.ProductTypes, kind)
	}
	slices.Sort(detail.ProductTypes)

	if p, ok := preferred(doc.Properties.Products[momentTensorProduct]); ok {
		detail.MomentTensor = momentTensorFrom(p)
	}
	return detail, nil
}

// preferred picks the product with the highest preferredWeight; the first
// listed wins ties.
func preferred(products []product) (product, bool) {
	if len(products) == 0 {
		return product{}, false
	}
	best := products[0]
	for _, p := range products[1:] {
		if p.PreferredWeight > best.PreferredWeight {
			best = p
		}
	}
	return best, true
}

func momentTensorFrom(p product) *domain.MomentTensor {
	depth := parseOptFloat(p.Properties["derived-depth"])
	if depth == nil {
		depth = parseOptFloat(p.Properties["depth"])
	}
	return &domain.MomentTensor{
		Source:               p.Source,
		DerivedMagnitude:     parseOptFloat(p.Properties["derived-magnitude"]),
		DerivedMagnitudeType: p.Properties["derived-magnitude-type"],
		PercentDoubleCouple:  parseOptFloat(p.Properties["percent-double-couple"]),
		Depth:                depth,
		UpdatedAtMs:          p.UpdateTime,
	}
}

func parseOptFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return nil
	}
	return &v
}
