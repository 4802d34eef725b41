// AuthSentry - Authentication Threat Detection and Incident Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authsentry

package api

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/authsentry/internal/detection"
	"github.com/tomtom215/authsentry/internal/incident"
	"github.com/tomtom215/authsentry/internal/ingest"
	"github.com/tomtom215/authsentry/internal/models"
	"github.com/tomtom215/authsentry/internal/risk"
)

var t0 = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

type envelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	clock := func() time.Time { return t0.Add(time.Minute) }
	scorer := risk.NewScorer(risk.WithClock(clock))
	store := incident.NewStore(filepath.Join(t.TempDir(), "incidents.json"), scorer, incident.WithClock(clock))
	handler := NewHandler(ingest.NewPipeline(store, scorer), nil, "test")
	handler.now = clock

	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitDisabled = true
	return NewRouter(handler, NewChiMiddleware(cfg)).SetupChi()
}

func do(t *testing.T, srv http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(path, "/api/") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("%s %s: response is not an envelope: %v (%s)", method, path, err, rec.Body.String())
		}
	}
	return rec, env
}

// bruteForceBody returns an ingest body with n failures for one ip/user pair.
func bruteForceBody(n int) string {
	events := make([]string, n)
	for i := range events {
		events[i] = fmt.Sprintf(`{"timestamp":"%s","source_ip":"10.0.0.5","username":"alice","event_type":"login","result":"failure","source":"sshd"}`,
			detection.FormatTimestamp(t0.Add(time.Duration(i)*time.Second)))
	}
	return `{"events":[` + strings.Join(events, ",") + `]}`
}

func ingestOne(t *testing.T, srv http.Handler) string {
	t.Helper()
	rec, env := do(t, srv, http.MethodPost, "/api/v1/ingest", bruteForceBody(5))
	if rec.Code != http.StatusOK {
		t.Fatalf("ingest status = %d: %s", rec.Code, rec.Body.String())
	}
	var result ingest.RunResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Incidents) != 1 {
		t.Fatalf("ingest stored %d incidents, want 1", len(result.Incidents))
	}
	return result.Incidents[0].IncidentID
}

func TestHealth(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	rec, _ := do(t, srv, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var health models.HealthStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatal(err)
	}
	if health.Status != "ok" {
		t.Errorf("health status = %q", health.Status)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestIngest(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	rec, env := do(t, srv, http.MethodPost, "/api/v1/ingest", bruteForceBody(6))
	if rec.Code != http.StatusOK || env.Status != "success" {
		t.Fatalf("status = %d %s: %s", rec.Code, env.Status, rec.Body.String())
	}

	var result ingest.RunResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatal(err)
	}
	if result.RunID == "" || result.EventsReceived != 6 || result.IncidentsDetected != 1 {
		t.Errorf("result = %+v", result)
	}
	if result.Incidents[0].EvidenceCount != 6 {
		t.Errorf("evidence_count = %d, want 6", result.Incidents[0].EvidenceCount)
	}
}

func TestIngest_BadPayloads(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	tests := []struct {
		name string
		body string
		want int
	}{
		{"not json", `{"events": [`, http.StatusBadRequest},
		{"scalar", `12`, http.StatusBadRequest},
		{"empty batch", `{"events": []}`, http.StatusBadRequest},
		{"no event objects", `[1, 2, 3]`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		rec, env := do(t, srv, http.MethodPost, "/api/v1/ingest", tt.body)
		if rec.Code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.name, rec.Code, tt.want)
		}
		if env.Error == nil || env.Error.Code != "VALIDATION_ERROR" {
			t.Errorf("%s: error = %+v", tt.name, env.Error)
		}
	}
}

func TestIncidentLifecycle(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	id := ingestOne(t, srv)

	rec, env := do(t, srv, http.MethodGet, "/api/v1/incidents/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var view incident.View
	if err := json.Unmarshal(env.Data, &view); err != nil {
		t.Fatal(err)
	}
	if view.Status != detection.StatusOpen {
		t.Errorf("status = %q", view.Status)
	}
	if !bytes.Contains(env.Data, []byte(`"is_stale":false`)) {
		t.Errorf("is_stale missing from %s", env.Data)
	}

	rec, env = do(t, srv, http.MethodPatch, "/api/v1/incidents/"+id, `{"status":"closed","resolution_reason":"x"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("open -> closed status = %d, want 409", rec.Code)
	}
	if env.Error == nil || env.Error.Message != "Invalid transition: open -> closed" {
		t.Errorf("error = %+v", env.Error)
	}

	rec, _ = do(t, srv, http.MethodPatch, "/api/v1/incidents/"+id, `{"status":"acknowledged"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("open -> acknowledged status = %d", rec.Code)
	}
	rec, env = do(t, srv, http.MethodPatch, "/api/v1/incidents/"+id, `{"status":"closed","resolution_reason":"password reset"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("acknowledged -> closed status = %d", rec.Code)
	}
	if err := json.Unmarshal(env.Data, &view); err != nil {
		t.Fatal(err)
	}
	if view.ResolutionReason == nil || *view.ResolutionReason != "password reset" {
		t.Errorf("resolution_reason = %v", view.ResolutionReason)
	}

	// A new detection reopens it.
	ingestOne(t, srv)
	_, env = do(t, srv, http.MethodGet, "/api/v1/incidents/"+id, "")
	if err := json.Unmarshal(env.Data, &view); err != nil {
		t.Fatal(err)
	}
	if view.Status != detection.StatusOpen || view.ResolutionReason != nil || view.EvidenceCount != 10 {
		t.Errorf("after reopen: status=%s reason=%v evidence=%d", view.Status, view.ResolutionReason, view.EvidenceCount)
	}
}

func TestIncidentErrors(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	tests := []struct {
		method, path, body string
		wantStatus         int
		wantCode           string
	}{
		{http.MethodGet, "/api/v1/incidents/inc_missing", "", http.StatusNotFound, "NOT_FOUND"},
		{http.MethodPatch, "/api/v1/incidents/inc_missing", `{"status":"acknowledged"}`, http.StatusNotFound, "NOT_FOUND"},
		{http.MethodPatch, "/api/v1/incidents/inc_missing", `{"status":"resolved"}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{http.MethodPatch, "/api/v1/incidents/inc_missing", `{"state":"closed"}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{http.MethodGet, "/api/v1/incidents?status=pending", "", http.StatusBadRequest, "VALIDATION_ERROR"},
	}
	for _, tt := range tests {
		rec, env := do(t, srv, tt.method, tt.path, tt.body)
		if rec.Code != tt.wantStatus {
			t.Errorf("%s %s %s: status = %d, want %d", tt.method, tt.path, tt.body, rec.Code, tt.wantStatus)
			continue
		}
		if env.Error == nil || env.Error.Code != tt.wantCode {
			t.Errorf("%s %s: error = %+v, want %s", tt.method, tt.path, env.Error, tt.wantCode)
		}
	}
}

func TestListIncidents_Filters(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	id := ingestOne(t, srv)
	do(t, srv, http.MethodPatch, "/api/v1/incidents/"+id, `{"status":"acknowledged"}`)

	count := func(query string) int {
		t.Helper()
		rec, env := do(t, srv, http.MethodGet, "/api/v1/incidents"+query, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("list%s status = %d", query, rec.Code)
		}
		var list models.IncidentListResponse
		if err := json.Unmarshal(env.Data, &list); err != nil {
			t.Fatal(err)
		}
		return list.Total
	}

	if got := count(""); got != 1 {
		t.Errorf("unfiltered total = %d, want 1", got)
	}
	if got := count("?status=acknowledged&type=brute_force"); got != 1 {
		t.Errorf("matching filter total = %d, want 1", got)
	}
	if got := count("?status=open"); got != 0 {
		t.Errorf("status=open total = %d, want 0", got)
	}
	if got := count("?type=credential_abuse"); got != 0 {
		t.Errorf("type=credential_abuse total = %d, want 0", got)
	}
}

func TestEntityRisk(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	ingestOne(t, srv)

	rec, env := do(t, srv, http.MethodGet, "/api/v1/entity-risk", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp models.EntityRiskResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.DecayHalfLifeHours != 24 {
		t.Errorf("decay_half_life_hours = %v", resp.DecayHalfLifeHours)
	}
	if resp.IncrementWeights[detection.IncidentTypeCredentialAbuse] != 25 {
		t.Errorf("increment_weights = %v", resp.IncrementWeights)
	}
	if resp.GeneratedAt != "2024-01-01T10:01:00Z" {
		t.Errorf("generated_at = %q", resp.GeneratedAt)
	}
	if len(resp.Entities) != 2 {
		t.Fatalf("entities = %+v", resp.Entities)
	}
	if resp.Entities[0].EntityType != risk.EntitySourceIP || resp.Entities[0].TotalIncidents != 1 {
		t.Errorf("first row = %+v", resp.Entities[0])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	ingestOne(t, srv)

	rec, _ := do(t, srv, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "authsentry_events_ingested_total") {
		t.Error("metrics output missing authsentry_events_ingested_total")
	}
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	cfg := DefaultChiMiddlewareConfig()
	cfg.CORSAllowedOrigins = []string{"https://soc.example.com"}
	scorer := risk.NewScorer()
	store := incident.NewStore(filepath.Join(t.TempDir(), "incidents.json"), scorer)
	srv := NewRouter(NewHandler(ingest.NewPipeline(store, scorer), nil, "test"), NewChiMiddleware(cfg)).SetupChi()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/incidents", nil)
	req.Header.Set("Origin", "https://soc.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://soc.example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}
