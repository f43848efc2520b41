package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/couchcryptid/quakewatch/internal/dashboard"
	"github.com/couchcryptid/quakewatch/internal/domain"
	"github.com/couchcryptid/quakewatch/internal/window"
)

const maxBodyBytes = 1 << 16

type selectionResponse struct {
	Selected *domain.Event `json:"selected"`
}

type viewportResponse struct {
	Bounds  *window.Bounds     `json:"bounds"`
	Markers []dashboard.Marker `json:"markers"`
}

// handleEvents returns the current view. Any of window, min_magnitude or q
// overrides the active filter for this request only.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !q.Has("window") && !q.Has("min_magnitude") && !q.Has("q") {
		writeJSON(w, http.StatusOK, s.dash.Current())
		return
	}

	f, err := filterFromQuery(s.dash.Filter(), q)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := s.dash.Query(r.Context(), f)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleEventDetail(w http.ResponseWriter, r *http.Request) {
	summary, err := s.dash.Detail(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleGetFilter(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.dash.Filter())
}

func (s *Server) handlePutFilter(w http.ResponseWriter, r *http.Request) {
	var f domain.Filter
	if err := decodeBody(w, r, &f); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if _, err := domain.ParseTimeWindow(string(f.Window)); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.dash.SetFilter(r.Context(), f); err != nil {
		// The dashboard has rolled back to the previous filter.
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, s.dash.Current())
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.dash.Status())
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.dash.ForceRefresh(r.Context()); err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, s.dash.Status())
}

func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	scroll, err := floatParam(q, "scroll_offset", 0)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	height, err := floatParam(q, "height", math.NaN())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if math.IsNaN(height) {
		s.writeError(w, http.StatusBadRequest, errors.New("height is required"))
		return
	}
	writeJSON(w, http.StatusOK, s.dash.Rows(scroll, height))
}

// handleMap answers a one-off viewport query without moving the map.
func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	b, err := boundsFromQuery(q)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	padding, err := floatParam(q, "padding", window.DefaultPadding)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, viewportResponse{Bounds: &b, Markers: s.dash.MapVisible(b, padding)})
}

// handlePanMap records a viewport move. The recompute is debounced, so the
// response only acknowledges the move.
func (s *Server) handlePanMap(w http.ResponseWriter, r *http.Request) {
	var b window.Bounds
	if err := decodeBody(w, r, &b); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if !b.Valid() {
		s.writeError(w, http.StatusBadRequest, errors.New("bounds must have north >= south and finite values"))
		return
	}
	s.dash.PanMap(b)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "pending"})
}

func (s *Server) handleGetViewport(w http.ResponseWriter, r *http.Request) {
	flush, err := boolParam(r.URL.Query(), "flush")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	b, markers, ok := s.dash.MapMarkers(flush)
	resp := viewportResponse{Markers: markers}
	if ok {
		resp.Bounds = &b
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	e, err := s.dash.Select(r.PathValue("id"))
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, selectionResponse{Selected: &e})
}

func (s *Server) handleSelection(w http.ResponseWriter, _ *http.Request) {
	var resp selectionResponse
	if e, ok := s.dash.Selected(); ok {
		resp.Selected = &e
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClearSelection(w http.ResponseWriter, _ *http.Request) {
	s.dash.ClearSelection()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, dashboard.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeError(w, http.StatusInternalServerError, err)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("api request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

func filterFromQuery(base domain.Filter, q url.Values) (domain.Filter, error) {
	f := base
	if q.Has("window") {
		w, err := domain.ParseTimeWindow(q.Get("window"))
		if err != nil {
			return domain.Filter{}, err
		}
		f.Window = w
	}
	if q.Has("min_magnitude") {
		m, err := floatParam(q, "min_magnitude", 0)
		if err != nil {
			return domain.Filter{}, err
		}
		f.MinMagnitude = m
	}
	if q.Has("q") {
		f.Search = q.Get("q")
	}
	return f, nil
}

func boundsFromQuery(q url.Values) (window.Bounds, error) {
	var b window.Bounds
	for _, p := range []struct {
		name string
		dst  *float64
	}{
		{"north", &b.North},
		{"south", &b.South},
		{"east", &b.East},
		{"west", &b.West},
	} {
		if !q.Has(p.name) {
			return window.Bounds{}, fmt.Errorf("%s is required", p.name)
		}
		v, err := floatParam(q, p.name, 0)
		if err != nil {
			return window.Bounds{}, err
		}
		*p.dst = v
	}
	return b, nil
}

func floatParam(q url.Values, name string, fallback float64) (float64, error) {
	raw := q.Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s must be a finite number, got %q", name, raw)
	}
	return v, nil
}

func boolParam(q url.Values, name string) (bool, error) {
	raw := q.Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", name, raw)
	}
	return v, nil
}
