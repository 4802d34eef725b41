// AuthSentry - Authentication Threat Detection and Incident Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authsentry

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/authsentry/internal/metrics"
)

func TestPrometheusMetrics(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics)
	r.Get("/widgets/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Post("/widgets", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	counter := func(method, endpoint, code string) float64 {
		return testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues(method, endpoint, code))
	}

	beforeGet := counter("GET", "/widgets/{id}", "418")
	beforePost := counter("POST", "/widgets", "200")

	for _, path := range []string{"/widgets/1", "/widgets/2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusTeapot {
			t.Fatalf("status = %d, want 418", rec.Code)
		}
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/widgets", nil))

	if got := counter("GET", "/widgets/{id}", "418") - beforeGet; got != 2 {
		t.Errorf("templated route counted %v times, want 2", got)
	}
	if got := counter("POST", "/widgets", "200") - beforePost; got != 1 {
		t.Errorf("implicit 200 counted %v times, want 1", got)
	}
}

func TestRoutePattern_NoRouteContext(t *testing.T) {
	t.Parallel()

	if got := routePattern(httptest.NewRequest(http.MethodGet, "/x", nil)); got != unmatchedEndpoint {
		t.Errorf("routePattern = %q, want %q", got, unmatchedEndpoint)
	}
}

func TestMetricsResponseWriter_FirstStatusWins(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	rw := &metricsResponseWriter{ResponseWriter: rec, statusCode: http.StatusOK}
	_, _ = rw.Write([]byte("body"))
	rw.WriteHeader(http.StatusInternalServerError)

	if rw.statusCode != http.StatusOK {
		t.Errorf("statusCode = %d, want 200 after body was written", rw.statusCode)
	}
}
