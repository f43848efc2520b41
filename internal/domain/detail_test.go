package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock fetcher ---

type mockFetcher struct {
	detail EventDetail
	err    error
	calls  int
	urls   []string
}

func (m *mockFetcher) FetchDetail(_ context.Context, detailURL string) (EventDetail, error) {
	m.calls++
	m.urls = append(m.urls, detailURL)
	return m.detail, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const testDetailURL = "https://earthquake.usgs.gov/earthquakes/feed/v1.0/detail/us7000abcd.geojson"

// --- tests ---

func TestSummarizeDetail_NilFetcher(t *testing.T) {
	event := Event{ID: "us7000abcd", Magnitude: Float(5.1), DetailURL: testDetailURL}

	s := SummarizeDetail(context.Background(), event, nil, discardLogger())

	assert.Equal(t, DetailSourceSummary, s.Source)
	assert.Equal(t, BandModerate, s.Classification.Band)
	assert.Equal(t, IntensityNotReported, s.Intensity.Status)
	assert.Nil(t, s.MomentTensor)
}

func TestSummarizeDetail_NoDetailURL(t *testing.T) {
	f := &mockFetcher{}
	s := SummarizeDetail(context.Background(), Event{ID: "x"}, f, discardLogger())

	assert.Equal(t, DetailSourceSummary, s.Source)
	assert.Equal(t, 0, f.calls)
}

func TestSummarizeDetail_MomentTensor(t *testing.T) {
	f := &mockFetcher{
		detail: EventDetail{
			ID:  "us7000abcd",
			MMI: Float(6.4),
			MomentTensor: &MomentTensor{
				Source:               "us",
				DerivedMagnitude:     Float(7.1),
				DerivedMagnitudeType: "Mww",
			},
		},
	}
	event := Event{ID: "us7000abcd", Magnitude: Float(6.9), MMI: Float(5.0), DetailURL: testDetailURL}

	s := SummarizeDetail(context.Background(), event, f, discardLogger())

	assert.Equal(t, DetailSourceDetail, s.Source)
	assert.Equal(t, BandStrong, s.Classification.Band)
	assert.Equal(t, "VI", s.Intensity.Roman, "detail intensity supersedes the summary")
	require.NotNil(t, s.MomentTensor)
	assert.Equal(t, "Mww", s.MomentTensor.DerivedMagnitudeType)
	require.NotNil(t, s.DerivedBand)
	assert.Equal(t, BandMajor, s.DerivedBand.Band)
	assert.Equal(t, []string{testDetailURL}, f.urls)
}

func TestSummarizeDetail_WithoutMomentTensor(t *testing.T) {
	f := &mockFetcher{detail: EventDetail{ID: "x"}}
	event := Event{ID: "x", MMI: Float(3.2), DetailURL: testDetailURL}

	s := SummarizeDetail(context.Background(), event, f, discardLogger())

	assert.Equal(t, DetailSourceDetail, s.Source)
	assert.Nil(t, s.MomentTensor)
	assert.Nil(t, s.DerivedBand)
	assert.Equal(t, "III", s.Intensity.Roman)
}

func TestSummarizeDetail_FetchError(t *testing.T) {
	f := &mockFetcher{err: errors.New("status 503")}
	event := Event{ID: "x", Magnitude: Float(2.0), DetailURL: testDetailURL}

	s := SummarizeDetail(context.Background(), event, f, discardLogger())

	assert.Equal(t, DetailSourceFailed, s.Source)
	assert.Equal(t, BandMinor, s.Classification.Band)
	assert.Equal(t, 1, f.calls)
}
