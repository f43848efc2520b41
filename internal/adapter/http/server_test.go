package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/quakewatch/internal/adapter/http"
	"github.com/couchcryptid/quakewatch/internal/dashboard"
	"github.com/couchcryptid/quakewatch/internal/domain"
	"github.com/couchcryptid/quakewatch/internal/observability"
	"github.com/couchcryptid/quakewatch/internal/window"
)

var testNow = time.Date(2024, time.April, 26, 12, 0, 0, 0, time.UTC)

type stubSource struct {
	mu          sync.Mutex
	events      []domain.Event
	err         error
	invalidated int
}

func (s *stubSource) Fetch(_ context.Context, w domain.TimeWindow) (domain.Feed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return domain.Feed{}, s.err
	}
	return domain.Feed{Window: w, Events: s.events, FetchedAt: testNow}, nil
}

func (s *stubSource) Invalidate(domain.TimeWindow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidated++
}

func quake(id string, mag float64, lat, lon float64) domain.Event {
	return domain.Event{
		ID:           id,
		Magnitude:    domain.Float(mag),
		Place:        "10 km from " + id,
		OccurredAtMs: testNow.Add(-time.Hour).UnixMilli(),
		Geo:          &domain.Geo{Lat: lat, Lon: lon},
	}
}

func fixtureEvents() []domain.Event {
	return []domain.Event{
		quake("fiji", 6.1, -17.9, 178.1),
		quake("tonga", 5.0, -21.2, -175.2),
		quake("alaska", 2.2, 61.2, -149.9),
	}
}

func newTestServer(t *testing.T, load bool) (*httpadapter.Server, *stubSource) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	src := &stubSource{events: fixtureEvents()}

	opts := dashboard.DefaultOptions()
	opts.Clock = clockwork.NewFakeClockAt(testNow)
	opts.MapPadding = 0
	dash := dashboard.New(src, nil, nil, opts, logger, observability.NewMetricsForTesting())
	if load {
		require.NoError(t, dash.Refresh(context.Background()))
	}
	return httpadapter.NewServer(":0", dash, logger), src
}

func do(t *testing.T, srv http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(method, target, r))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func eventIDs(events []domain.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}

func TestHealthzReturns200(t *testing.T) {
	srv, _ := newTestServer(t, false)

	rec := do(t, srv, http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzFollowsFirstLoad(t *testing.T) {
	notReady, _ := newTestServer(t, false)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, notReady, http.MethodGet, "/readyz", nil).Code)

	ready, _ := newTestServer(t, true)
	assert.Equal(t, http.StatusOK, do(t, ready, http.MethodGet, "/readyz", nil).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, false)

	rec := do(t, srv, http.MethodGet, "/metrics", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestEvents(t *testing.T) {
	srv, _ := newTestServer(t, true)

	tests := []struct {
		name   string
		target string
		code   int
		ids    []string
	}{
		{name: "current view", target: "/api/events", code: http.StatusOK, ids: []string{"fiji", "tonga", "alaska"}},
		{name: "magnitude override", target: "/api/events?min_magnitude=5", code: http.StatusOK, ids: []string{"fiji", "tonga"}},
		{name: "search override", target: "/api/events?q=ALASKA", code: http.StatusOK, ids: []string{"alaska"}},
		{name: "unknown window", target: "/api/events?window=year", code: http.StatusBadRequest},
		{name: "bad magnitude", target: "/api/events?min_magnitude=big", code: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodGet, tt.target, nil)
			require.Equal(t, tt.code, rec.Code, rec.Body.String())
			if tt.code != http.StatusOK {
				assert.Contains(t, decode[map[string]string](t, rec), "error")
				return
			}
			res := decode[dashboard.Result](t, rec)
			assert.Equal(t, tt.ids, eventIDs(res.Events))
			assert.Equal(t, len(tt.ids), res.Stats.Total)
		})
	}

	// Overrides never stick.
	res := decode[dashboard.Result](t, do(t, srv, http.MethodGet, "/api/events", nil))
	assert.Len(t, res.Events, 3)
}

func TestPutFilter(t *testing.T) {
	srv, _ := newTestServer(t, true)

	rec := do(t, srv, http.MethodPut, "/api/filter", domain.Filter{Window: domain.WindowDay, MinMagnitude: 5.5})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"fiji"}, eventIDs(decode[dashboard.Result](t, rec).Events))

	got := decode[domain.Filter](t, do(t, srv, http.MethodGet, "/api/filter", nil))
	assert.InDelta(t, 5.5, got.MinMagnitude, 1e-9)
}

func TestPutFilterFailedRefreshKeepsFilter(t *testing.T) {
	srv, src := newTestServer(t, true)
	src.mu.Lock()
	src.err = errors.New("usgs API error: status 503")
	src.mu.Unlock()

	rec := do(t, srv, http.MethodPut, "/api/filter", domain.Filter{Window: domain.WindowWeek, MinMagnitude: 5.5})
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	got := decode[domain.Filter](t, do(t, srv, http.MethodGet, "/api/filter", nil))
	assert.Equal(t, domain.DefaultFilter(), got)
	events := decode[dashboard.Result](t, do(t, srv, http.MethodGet, "/api/events", nil)).Events
	assert.Len(t, events, len(fixtureEvents()))
}

func TestPutFilterRejectsBadInput(t *testing.T) {
	srv, _ := newTestServer(t, true)

	bodies := map[string]any{
		"unknown window": map[string]any{"window": "decade"},
		"unknown field":  map[string]any{"window": "day", "colour": "red"},
		"wrong type":     map[string]any{"min_magnitude": "five"},
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPut, "/api/filter", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestRows(t *testing.T) {
	srv, _ := newTestServer(t, true)

	rec := do(t, srv, http.MethodGet, "/api/rows?scroll_offset=0&height=120", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rows := decode[dashboard.Rows](t, rec)
	assert.Equal(t, 0, rows.Range.Start)
	assert.Equal(t, 2, rows.Range.End)
	require.Len(t, rows.Rows, 3)
	assert.Equal(t, "fiji", rows.Rows[0].Event.ID)
	assert.Equal(t, domain.BandStrong, rows.Rows[0].Classification.Band)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/api/rows", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/api/rows?height=abc", nil).Code)
}

type viewport struct {
	Bounds  *window.Bounds     `json:"bounds"`
	Markers []dashboard.Marker `json:"markers"`
}

func markerIDs(markers []dashboard.Marker) []string {
	out := make([]string, len(markers))
	for i, m := range markers {
		out[i] = m.Event.ID
	}
	return out
}

func TestMapAcrossAntimeridian(t *testing.T) {
	srv, _ := newTestServer(t, true)

	rec := do(t, srv, http.MethodGet, "/api/map?north=0&south=-40&west=170&east=-170&padding=0", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"fiji", "tonga"}, markerIDs(decode[viewport](t, rec).Markers))
}

func TestMapRequiresBounds(t *testing.T) {
	srv, _ := newTestServer(t, true)

	rec := do(t, srv, http.MethodGet, "/api/map?north=10&south=0&east=10", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["error"], "west")
}

func TestMapViewport(t *testing.T) {
	srv, _ := newTestServer(t, true)

	before := decode[viewport](t, do(t, srv, http.MethodGet, "/api/map/viewport", nil))
	assert.Nil(t, before.Bounds)
	assert.Empty(t, before.Markers)

	rec := do(t, srv, http.MethodPost, "/api/map/viewport", map[string]float64{
		"north": 70, "south": 50, "west": -160, "east": -140,
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	after := decode[viewport](t, do(t, srv, http.MethodGet, "/api/map/viewport?flush=true", nil))
	require.NotNil(t, after.Bounds)
	assert.InDelta(t, 70, after.Bounds.North, 0)
	assert.Equal(t, []string{"alaska"}, markerIDs(after.Markers))
}

func TestMapViewportRejectsInvertedBounds(t *testing.T) {
	srv, _ := newTestServer(t, true)

	rec := do(t, srv, http.MethodPost, "/api/map/viewport", map[string]float64{
		"north": -10, "south": 10, "west": 0, "east": 10,
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEventDetail(t *testing.T) {
	srv, _ := newTestServer(t, true)

	rec := do(t, srv, http.MethodGet, "/api/events/fiji", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decode[domain.DetailSummary](t, rec)
	assert.Equal(t, "fiji", summary.Event.ID)
	assert.Equal(t, domain.BandStrong, summary.Classification.Band)
	assert.Equal(t, domain.DetailSourceSummary, summary.Source)

	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/api/events/nope", nil).Code)
}

func TestSelection(t *testing.T) {
	srv, _ := newTestServer(t, true)

	type selection struct {
		Selected *domain.Event `json:"selected"`
	}

	assert.Nil(t, decode[selection](t, do(t, srv, http.MethodGet, "/api/selection", nil)).Selected)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodPost, "/api/select/nope", nil).Code)

	rec := do(t, srv, http.MethodPost, "/api/select/tonga", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[selection](t, do(t, srv, http.MethodGet, "/api/selection", nil))
	require.NotNil(t, got.Selected)
	assert.Equal(t, "tonga", got.Selected.ID)

	rows := decode[dashboard.Rows](t, do(t, srv, http.MethodGet, "/api/rows?height=600", nil))
	assert.True(t, rows.Rows[1].Selected)

	assert.Equal(t, http.StatusNoContent, do(t, srv, http.MethodDelete, "/api/selection", nil).Code)
	assert.Nil(t, decode[selection](t, do(t, srv, http.MethodGet, "/api/selection", nil)).Selected)
}

func TestRefresh(t *testing.T) {
	srv, src := newTestServer(t, true)

	rec := do(t, srv, http.MethodPost, "/api/refresh", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, src.invalidated)
	status := decode[dashboard.Status](t, rec)
	assert.True(t, status.Ready)
	assert.Equal(t, 3, status.FeedEvents)

	src.mu.Lock()
	src.err = errors.New("usgs API error: status 503")
	src.mu.Unlock()

	rec = do(t, srv, http.MethodPost, "/api/refresh", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	status = decode[dashboard.Status](t, do(t, srv, http.MethodGet, "/api/status", nil))
	assert.Contains(t, status.LastError, "503")
	assert.Equal(t, 3, status.FeedEvents)
}
