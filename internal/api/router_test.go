// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cinescore/internal/apperrors"
	"github.com/tomtom215/cinescore/internal/pipeline"
	"github.com/tomtom215/cinescore/internal/serving"
	"github.com/tomtom215/cinescore/internal/tracking"
)

type failingResolver struct{}

func (failingResolver) GetLatest(_ context.Context, name, stage string) (*tracking.ModelVersion, error) {
	return nil, apperrors.NotFound("model version", name+"/"+stage, nil)
}

func readyRouter() http.Handler {
	state := serving.NewReadyState([]pipeline.Prediction{
		{MovieID: 1, PredictedRating: 8.1},
		{MovieID: 2, PredictedRating: 6.4},
		{MovieID: 3, PredictedRating: 9.0},
	})
	return NewRouter(NewHandler(state), nil).SetupChi()
}

func initializingRouter() http.Handler {
	state := serving.NewState(failingResolver{}, nil, serving.Config{ModelName: "MovieRatingGBMModel"})
	return NewRouter(NewHandler(state), nil).SetupChi()
}

func serve(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder, data any) APIResponse {
	t.Helper()
	var raw struct {
		APIResponse
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	if data != nil && len(raw.Data) > 0 {
		if err := json.Unmarshal(raw.Data, data); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	return raw.APIResponse
}

func TestTopMovies(t *testing.T) {
	router := readyRouter()

	w := serve(t, router, "/top-movies?limit=2")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var data TopMoviesResponse
	resp := decodeEnvelope(t, w, &data)
	if !resp.Success || resp.Meta == nil || resp.Meta.RequestID == "" {
		t.Errorf("envelope = %+v", resp)
	}

	want := []serving.RankedPrediction{
		{Rank: 1, MovieID: 3, PredictedRating: 9.0},
		{Rank: 2, MovieID: 1, PredictedRating: 8.1},
	}
	if len(data.TopMovies) != len(want) {
		t.Fatalf("got %d movies, want %d", len(data.TopMovies), len(want))
	}
	for i := range want {
		if data.TopMovies[i] != want[i] {
			t.Errorf("movie %d = %+v, want %+v", i, data.TopMovies[i], want[i])
		}
	}
	if data.TotalMovies != 3 || data.Limit != 2 {
		t.Errorf("total_movies = %d, limit = %d", data.TotalMovies, data.Limit)
	}
}

func TestTopMoviesLimit(t *testing.T) {
	router := readyRouter()

	tests := []struct {
		query string
		code  int
		count int
	}{
		{"", http.StatusOK, 3},
		{"?limit=1", http.StatusOK, 1},
		{"?limit=50", http.StatusOK, 3},
		{"?limit=0", http.StatusBadRequest, 0},
		{"?limit=51", http.StatusBadRequest, 0},
		{"?limit=-1", http.StatusBadRequest, 0},
		{"?limit=ten", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := serve(t, router, "/top-movies"+tt.query)
			if w.Code != tt.code {
				t.Fatalf("status = %d, want %d", w.Code, tt.code)
			}
			var data TopMoviesResponse
			resp := decodeEnvelope(t, w, &data)
			if tt.code != http.StatusOK {
				if resp.Success || resp.Error == nil || resp.Error.Code != ErrCodeValidationFailed {
					t.Errorf("error envelope = %+v", resp)
				}
				return
			}
			if len(data.TopMovies) != tt.count {
				t.Errorf("got %d movies, want %d", len(data.TopMovies), tt.count)
			}
		})
	}
}

func TestDataEndpointsUnavailableWhileInitializing(t *testing.T) {
	router := initializingRouter()

	for _, path := range []string{"/predictions", "/top-movies", "/top-movies?limit=5", "/stats"} {
		w := serve(t, router, path)
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: status = %d, want 503", path, w.Code)
			continue
		}
		resp := decodeEnvelope(t, w, nil)
		if resp.Success || resp.Error == nil || resp.Error.Code != ErrCodeServiceUnavailable {
			t.Errorf("%s: envelope = %+v", path, resp)
		}
		if strings.Contains(w.Body.String(), `"data"`) {
			t.Errorf("%s: data should be omitted, got %s", path, w.Body.String())
		}
	}
}

func TestHealth(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		w := serve(t, readyRouter(), "/health")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		var h HealthStatus
		if err := json.Unmarshal(w.Body.Bytes(), &h); err != nil {
			t.Fatal(err)
		}
		d := h.ServiceDetails
		if h.Status != "healthy" || !d.ModelLoaded || !d.DataLoaded || !d.PredictionsAvailable || d.SampleCount != 3 {
			t.Errorf("health = %+v", h)
		}
	})

	t.Run("starting", func(t *testing.T) {
		w := serve(t, initializingRouter(), "/health")
		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d", w.Code)
		}
		var h HealthStatus
		if err := json.Unmarshal(w.Body.Bytes(), &h); err != nil {
			t.Fatal(err)
		}
		if h.Status != "starting" || h.ServiceDetails.ModelLoaded || h.ServiceDetails.PredictionsAvailable {
			t.Errorf("health = %+v", h)
		}
	})

	t.Run("unhealthy", func(t *testing.T) {
		state := serving.NewState(failingResolver{}, nil, serving.Config{ModelName: "MovieRatingGBMModel"})
		if err := state.Initialize(context.Background()); err == nil {
			t.Fatal("expected initialization error")
		}
		w := serve(t, NewRouter(NewHandler(state), nil).SetupChi(), "/health")
		var h HealthStatus
		if err := json.Unmarshal(w.Body.Bytes(), &h); err != nil {
			t.Fatal(err)
		}
		if w.Code != http.StatusServiceUnavailable || h.Status != "unhealthy" || h.Error == "" {
			t.Errorf("code = %d, health = %+v", w.Code, h)
		}
	})
}

func TestRootAndLiveness(t *testing.T) {
	router := initializingRouter()

	w := serve(t, router, "/")
	var info ServiceInfo
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
		t.Fatal(err)
	}
	if w.Code != http.StatusOK || info.Message != "Movie Rating Prediction API" || info.Version != Version || info.Status != "running" {
		t.Errorf("code = %d, info = %+v", w.Code, info)
	}

	if w := serve(t, router, "/health/live"); w.Code != http.StatusOK {
		t.Errorf("/health/live status = %d", w.Code)
	}
}

func TestPredictStatus(t *testing.T) {
	w := serve(t, initializingRouter(), "/predict-status")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var st PredictStatus
	decodeEnvelope(t, w, &st)
	if st.Status != string(serving.StatusInitializing) || st.Ready {
		t.Errorf("predict status = %+v", st)
	}
}

func TestPredictionsAndStats(t *testing.T) {
	router := readyRouter()

	w := serve(t, router, "/predictions")
	var preds PredictionsResponse
	decodeEnvelope(t, w, &preds)
	if w.Code != http.StatusOK || preds.TotalCount != 3 || preds.Predictions[0].MovieID != 1 {
		t.Errorf("code = %d, predictions = %+v", w.Code, preds)
	}

	w = serve(t, router, "/stats")
	var stats struct {
		Statistics   serving.Stats  `json:"statistics"`
		Distribution map[string]int `json:"distribution"`
	}
	decodeEnvelope(t, w, &stats)
	if stats.Statistics.TotalMovies != 3 || stats.Statistics.MaxRating != 9 || stats.Statistics.MinRating != 6.4 {
		t.Errorf("statistics = %+v", stats.Statistics)
	}
	if stats.Distribution["8-9"] != 1 || stats.Distribution["9-10"] != 1 || stats.Distribution["6-7"] != 1 {
		t.Errorf("distribution = %v", stats.Distribution)
	}
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	router := readyRouter()

	w := serve(t, router, "/nope")
	resp := decodeEnvelope(t, w, nil)
	if w.Code != http.StatusNotFound || resp.Error == nil || resp.Error.Code != ErrCodeNotFound {
		t.Errorf("code = %d, resp = %+v", w.Code, resp)
	}

	req := httptest.NewRequest(http.MethodPost, "/predictions", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /predictions status = %d, want 405", rec.Code)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	readyRouter().ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "req-123" {
		t.Errorf("X-Request-ID = %q", got)
	}
	resp := decodeEnvelope(t, w, nil)
	if resp.Meta == nil || resp.Meta.RequestID != "req-123" {
		t.Errorf("meta = %+v", resp.Meta)
	}
}
