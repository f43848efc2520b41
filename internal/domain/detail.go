package domain

import (
	"context"
	"log/slog"
)

// MomentTensor is the preferred moment-tensor solution from an event's detail.
type MomentTensor struct {
	Source               string   `json:"source,omitempty"`
	DerivedMagnitude     *float64 `json:"derived_magnitude,omitempty"`
	DerivedMagnitudeType string   `json:"derived_magnitude_type,omitempty"`
	PercentDoubleCouple  *float64 `json:"percent_double_couple,omitempty"`
	Depth                *float64 `json:"depth_km,omitempty"`
	UpdatedAtMs          int64    `json:"updated_at_ms,omitempty"`
}

// EventDetail is the subset of a USGS event detail document the service uses.
type EventDetail struct {
	ID           string        `json:"id"`
	Magnitude    *float64      `json:"magnitude"`
	MMI          *float64      `json:"mmi,omitempty"`
	Tsunami      bool          `json:"tsunami"`
	ProductTypes []string      `json:"product_types,omitempty"`
	MomentTensor *MomentTensor `json:"moment_tensor,omitempty"`
}

// DetailFetcher retrieves the detail document an event's DetailURL points at.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, detailURL string) (EventDetail, error)
}

// Detail summary sources.
const (
	DetailSourceDetail  = "detail"
	DetailSourceSummary = "summary"
	DetailSourceFailed  = "failed"
)

// DetailSummary labels an event using the richest data available.
type DetailSummary struct {
	Event          Event           `json:"event"`
	Classification Classification  `json:"classification"`
	Intensity      Intensity       `json:"intensity"`
	MomentTensor   *MomentTensor   `json:"moment_tensor,omitempty"`
	DerivedBand    *Classification `json:"derived_classification,omitempty"`
	Source         string          `json:"source"`
}

// SummarizeDetail classifies an event and, when a fetcher and detail URL are
// available, enriches the summary with the detail document. Fetch failures
// degrade to the feed summary with Source set to "failed".
func SummarizeDetail(ctx context.Context, event Event, fetcher DetailFetcher, logger *slog.Logger) DetailSummary {
	summary := DetailSummary{
		Event:          event,
		Classification: ClassifyMagnitude(event.Magnitude),
		Intensity:      ClassifyIntensity(event.MMI),
		Source:         DetailSourceSummary,
	}
	if fetcher == nil || event.DetailURL == "" {
		return summary
	}

	detail, err := fetcher.FetchDetail(ctx, event.DetailURL)
	if err != nil {
		logger.Warn("event detail fetch failed",
			"event_id", event.ID,
			"detail_url", event.DetailURL,
			"error", err,
		)
		summary.Source = DetailSourceFailed
		return summary
	}

	// Detail revisions can carry a newer intensity than the summary feed.
	if detail.MMI != nil {
		summary.Intensity = ClassifyIntensity(detail.MMI)
	}
	if mt := detail.MomentTensor; mt != nil {
		summary.MomentTensor = mt
		if mt.DerivedMagnitude != nil {
			c := ClassifyMagnitude(mt.DerivedMagnitude)
			summary.DerivedBand = &c
		}
	}
	summary.Source = DetailSourceDetail
	return summary
}
