// AuthSentry - Authentication Threat Detection and Incident Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authsentry

package incident

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/authsentry/internal/detection"
)

var t0 = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// countingRecorder counts Record calls per incident ID.
type countingRecorder struct {
	mu    sync.Mutex
	calls map[string]int
}

func (r *countingRecorder) Record(inc *detection.Incident) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = make(map[string]int)
	}
	r.calls[inc.IncidentID]++
}

func (r *countingRecorder) count(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[id]
}

type panickingRecorder struct{}

func (panickingRecorder) Record(*detection.Incident) {
	panic("risk backend unavailable")
}

// candidate builds a brute-force style incident with n evidence events
// starting at start, cycling through sources.
func candidate(id string, n int, start time.Time, sources ...string) detection.Incident {
	events := make([]detection.CanonicalEvent, n)
	timeline := make([]detection.TimelineEntry, n)
	for i := 0; i < n; i++ {
		ev := detection.CanonicalEvent{
			Timestamp: detection.FormatTimestamp(start.Add(time.Duration(i) * time.Second)),
			SourceIP:  "10.0.0.5",
			Username:  "alice",
			EventType: "login_attempt",
			Result:    detection.ResultFailure,
		}
		if len(sources) > 0 {
			ev.Source = sources[i%len(sources)]
		}
		events[i] = ev
		timeline[i] = detection.TimelineEntry{Timestamp: ev.Timestamp, EventType: ev.EventType, Result: ev.Result, Username: ev.Username}
	}
	end := start.Add(time.Duration(n-1) * time.Second)
	return detection.Incident{
		IncidentID:         id,
		Type:               detection.IncidentTypeBruteForce,
		Mitre:              detection.Mitre{Tactic: "Credential Access", Technique: "T1110", TechniqueName: "Brute Force"},
		Severity:           detection.SeverityLow,
		Confidence:         0.70,
		FirstSeen:          detection.FormatTimestamp(start),
		LastSeen:           detection.FormatTimestamp(end),
		AffectedEntities:   []string{"10.0.0.5", "alice"},
		EvidenceCount:      n,
		SourceCount:        detection.CountSources(events),
		Summary:            "summary",
		RecommendedActions: detection.RecommendedActions(),
		Explanation:        detection.Explanation{Threshold: 5, Observed: 5, Window: "60s", TriggerField: "username"},
		Subject:            detection.Subject{SourceIP: "10.0.0.5", Username: "alice"},
		Evidence: detection.Evidence{
			WindowStart: detection.FormatTimestamp(start),
			WindowEnd:   detection.FormatTimestamp(end),
			Counts:      map[string]int{detection.CountFailures: n},
			Timeline:    timeline,
			Events:      events,
		},
	}
}

func newTestStore(t *testing.T, risk RiskRecorder) (*Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: t0.Add(time.Minute)}
	path := filepath.Join(t.TempDir(), "runs", "incidents.json")
	return NewStore(path, risk, WithClock(clock.Now)), clock
}

func TestStore_UpsertNew(t *testing.T) {
	t.Parallel()

	rec := &countingRecorder{}
	store, clock := newTestStore(t, rec)

	got, err := store.Upsert(candidate("inc_a", 5, t0))
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if got.Status != detection.StatusOpen {
		t.Errorf("Status = %q, want open", got.Status)
	}
	want := detection.FormatTimestamp(clock.Now())
	if got.CreatedAt != want || got.UpdatedAt != want {
		t.Errorf("CreatedAt/UpdatedAt = %q/%q, want %q", got.CreatedAt, got.UpdatedAt, want)
	}
	if got.ResolutionReason != nil {
		t.Error("ResolutionReason should be nil for a new incident")
	}
	if rec.count("inc_a") != 1 {
		t.Errorf("risk recorded %d times, want 1", rec.count("inc_a"))
	}
}

func TestStore_MergeRepeatedDetection(t *testing.T) {
	t.Parallel()

	rec := &countingRecorder{}
	store, clock := newTestStore(t, rec)

	if _, err := store.Upsert(candidate("inc_a", 5, t0, "auth_service")); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Transition("inc_a", detection.StatusAcknowledged, nil); err != nil {
		t.Fatal(err)
	}
	clock.Advance(time.Minute)

	second := candidate("inc_a", 3, t0.Add(30*time.Second), "vpn_gateway")
	second.AffectedEntities = []string{"10.0.0.5", "alice", "bob"}
	second.Severity = detection.SeverityMedium

	got, err := store.Upsert(second)
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if got.EvidenceCount != 8 {
		t.Errorf("EvidenceCount = %d, want 8", got.EvidenceCount)
	}
	if got.Evidence.Counts[detection.CountFailures] != 8 {
		t.Errorf("counts.failures = %d, want 8", got.Evidence.Counts[detection.CountFailures])
	}
	if got.SourceCount != 2 {
		t.Errorf("SourceCount = %d, want 2", got.SourceCount)
	}
	if got.Status != detection.StatusAcknowledged {
		t.Errorf("Status = %q, want acknowledged", got.Status)
	}
	if got.LastSeen != "2024-01-01T10:00:32Z" {
		t.Errorf("LastSeen = %q, want the later of the two", got.LastSeen)
	}
	if got.FirstSeen != "2024-01-01T10:00:00Z" {
		t.Errorf("FirstSeen = %q", got.FirstSeen)
	}
	if strings.Join(got.AffectedEntities, ",") != "10.0.0.5,alice,bob" {
		t.Errorf("AffectedEntities = %v", got.AffectedEntities)
	}
	if len(got.Evidence.Events) != 8 || len(got.Evidence.Timeline) != 8 {
		t.Errorf("evidence not concatenated: %d events, %d timeline", len(got.Evidence.Events), len(got.Evidence.Timeline))
	}
	if got.Severity != detection.SeverityMedium {
		t.Errorf("Severity = %q, want incoming medium", got.Severity)
	}
	if got.CreatedAt == got.UpdatedAt {
		t.Error("UpdatedAt should advance on merge")
	}
	if rec.count("inc_a") != 1 {
		t.Errorf("risk recorded %d times, want 1 (updates do not accrue)", rec.count("inc_a"))
	}
}

func TestStore_TransitionRules(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t, nil)
	if _, err := store.Upsert(candidate("inc_a", 5, t0)); err != nil {
		t.Fatal(err)
	}

	_, err := store.Transition("inc_a", detection.StatusClosed, nil)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("open -> closed err = %v, want ErrInvalidTransition", err)
	}
	if !strings.Contains(err.Error(), "open -> closed") {
		t.Errorf("error %q should name the transition", err)
	}
	got, _ := store.Get("inc_a")
	if got.Status != detection.StatusOpen {
		t.Errorf("failed transition changed status to %q", got.Status)
	}

	if _, err := store.Transition("inc_a", detection.StatusAcknowledged, nil); err != nil {
		t.Fatalf("open -> acknowledged: %v", err)
	}
	reason := "false positive"
	closed, err := store.Transition("inc_a", detection.StatusClosed, &reason)
	if err != nil {
		t.Fatalf("acknowledged -> closed: %v", err)
	}
	if closed.ResolutionReason == nil || *closed.ResolutionReason != reason {
		t.Errorf("ResolutionReason = %v, want %q", closed.ResolutionReason, reason)
	}

	for _, to := range []detection.Status{detection.StatusOpen, detection.StatusAcknowledged, detection.StatusClosed, "bogus"} {
		if _, err := store.Transition("inc_a", to, nil); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("closed -> %s err = %v, want ErrInvalidTransition", to, err)
		}
	}
}

func TestStore_NotFound(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t, nil)
	if _, err := store.Get("inc_missing"); !errors.Is(err, ErrIncidentNotFound) {
		t.Errorf("Get err = %v, want ErrIncidentNotFound", err)
	}
	if _, err := store.Transition("inc_missing", detection.StatusAcknowledged, nil); !errors.Is(err, ErrIncidentNotFound) {
		t.Errorf("Transition err = %v, want ErrIncidentNotFound", err)
	}
}

func TestStore_ReopenOnNewDetection(t *testing.T) {
	t.Parallel()

	rec := &countingRecorder{}
	store, clock := newTestStore(t, rec)

	first, err := store.Upsert(candidate("inc_a", 5, t0))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Transition("inc_a", detection.StatusAcknowledged, nil); err != nil {
		t.Fatal(err)
	}
	reason := "contained"
	if _, err := store.Transition("inc_a", detection.StatusClosed, &reason); err != nil {
		t.Fatal(err)
	}

	clock.Advance(10 * time.Minute)
	got, err := store.Upsert(candidate("inc_a", 2, t0.Add(2*time.Minute)))
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != detection.StatusOpen {
		t.Errorf("Status = %q, want open", got.Status)
	}
	if got.ResolutionReason != nil {
		t.Errorf("ResolutionReason = %q, want nil", *got.ResolutionReason)
	}
	if got.CreatedAt != first.CreatedAt {
		t.Errorf("CreatedAt = %q, want original %q", got.CreatedAt, first.CreatedAt)
	}
	if got.EvidenceCount != 7 {
		t.Errorf("EvidenceCount = %d, want 7", got.EvidenceCount)
	}
	if rec.count("inc_a") != 2 {
		t.Errorf("risk recorded %d times, want 2 (create + reopen)", rec.count("inc_a"))
	}
}

func TestStore_PersistenceSurvivesReload(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t, nil)
	for _, id := range []string{"inc_b", "inc_a"} {
		if _, err := store.Upsert(candidate(id, 5, t0)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := store.Transition("inc_a", detection.StatusAcknowledged, nil); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatal(err)
	}
	var onDisk []detection.Incident
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("file is not a JSON array of incidents: %v", err)
	}
	if len(onDisk) != 2 || onDisk[0].IncidentID != "inc_a" || onDisk[1].IncidentID != "inc_b" {
		t.Fatalf("file not sorted by incident_id: %+v", onDisk)
	}

	reloaded := NewStore(store.Path(), nil)
	list, err := reloaded.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("reloaded %d incidents, want 2", len(list))
	}
	if list[0].Status != detection.StatusAcknowledged {
		t.Errorf("reloaded status = %q, want acknowledged", list[0].Status)
	}

	entries, _ := os.ReadDir(filepath.Dir(store.Path()))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file %s left behind", e.Name())
		}
	}
}

func TestStore_LoadMissingAndCorrupt(t *testing.T) {
	t.Parallel()

	t.Run("missing file is created", func(t *testing.T) {
		t.Parallel()
		store, _ := newTestStore(t, nil)
		if err := store.Load(); err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		data, err := os.ReadFile(store.Path())
		if err != nil {
			t.Fatalf("file not created: %v", err)
		}
		if strings.TrimSpace(string(data)) != "[]" {
			t.Errorf("file content = %q, want []", data)
		}
	})

	t.Run("corrupt file starts empty", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "incidents.json")
		if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
			t.Fatal(err)
		}
		list, err := NewStore(path, nil).List()
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(list) != 0 {
			t.Errorf("got %d incidents, want 0", len(list))
		}
	})

	t.Run("invalid entries skipped", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "incidents.json")
		valid, _ := json.Marshal(candidate("inc_ok", 5, t0))
		content := fmt.Sprintf(`[%s, {"incident_id": 12}, {"incident_id": "inc_partial"}]`, valid)
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		list, err := NewStore(path, nil).List()
		if err != nil {
			t.Fatal(err)
		}
		if len(list) != 1 || list[0].IncidentID != "inc_ok" {
			t.Errorf("got %+v, want only inc_ok", list)
		}
		if list[0].Status != detection.StatusOpen {
			t.Errorf("missing status should default to open, got %q", list[0].Status)
		}
	})
}

func TestStore_WriteFailureRollsBack(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "data")
	store := NewStore(filepath.Join(dir, "incidents.json"), nil)
	if err := store.Load(); err != nil {
		t.Fatal(err)
	}

	// Replace the directory with a file so the next write cannot land.
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dir, []byte("blocker"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Upsert(candidate("inc_a", 5, t0)); !errors.Is(err, ErrPersistence) {
		t.Fatalf("Upsert err = %v, want ErrPersistence", err)
	}
	if list, _ := store.List(); len(list) != 0 {
		t.Errorf("memory ran ahead of disk: %d incidents", len(list))
	}
}

func TestStore_RejectsInvalidCandidate(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t, nil)
	bad := candidate("inc_a", 5, t0)
	bad.IncidentID = "not-an-incident"
	if _, err := store.Upsert(bad); !errors.Is(err, ErrInvalidIncident) {
		t.Errorf("err = %v, want ErrInvalidIncident", err)
	}
}

func TestStore_RiskFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t, panickingRecorder{})
	if _, err := store.Upsert(candidate("inc_a", 5, t0)); err != nil {
		t.Fatalf("Upsert should succeed despite risk failure: %v", err)
	}
	if _, err := store.Get("inc_a"); err != nil {
		t.Errorf("incident not stored: %v", err)
	}
}

func TestStore_ReturnsCopies(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t, nil)
	got, err := store.Upsert(candidate("inc_a", 5, t0))
	if err != nil {
		t.Fatal(err)
	}
	got.AffectedEntities[0] = "mutated"
	got.Evidence.Counts[detection.CountFailures] = 99

	again, _ := store.Get("inc_a")
	if again.AffectedEntities[0] != "10.0.0.5" || again.Evidence.Counts[detection.CountFailures] != 5 {
		t.Error("caller mutation leaked into the store")
	}
}

func TestStore_ConcurrentUpserts(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t, &countingRecorder{})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := store.Upsert(candidate(fmt.Sprintf("inc_%02d", i%10), 5, t0)); err != nil {
				t.Errorf("Upsert: %v", err)
			}
		}(i)
	}
	wg.Wait()

	list, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 10 {
		t.Fatalf("got %d incidents, want 10", len(list))
	}
	for _, inc := range list {
		if inc.EvidenceCount != 10 {
			t.Errorf("%s EvidenceCount = %d, want 10", inc.IncidentID, inc.EvidenceCount)
		}
	}
}

func TestIsStale(t *testing.T) {
	t.Parallel()

	inc := candidate("inc_a", 1, t0)
	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"fresh", t0.Add(4 * time.Minute), false},
		{"exactly five minutes", t0.Add(StaleAfter), false},
		{"stale", t0.Add(6 * time.Minute), true},
	}
	for _, tt := range tests {
		if got := IsStale(&inc, tt.now); got != tt.want {
			t.Errorf("%s: IsStale = %v, want %v", tt.name, got, tt.want)
		}
	}

	inc.LastSeen = "garbage"
	if IsStale(&inc, t0.Add(time.Hour)) {
		t.Error("unparsable last_seen should not be stale")
	}
}

func TestStore_ViewOf(t *testing.T) {
	t.Parallel()

	store, clock := newTestStore(t, nil)
	got, err := store.Upsert(candidate("inc_a", 5, t0))
	if err != nil {
		t.Fatal(err)
	}
	if store.ViewOf(got).IsStale {
		t.Error("incident one minute old should not be stale")
	}
	clock.Advance(10 * time.Minute)

	data, err := json.Marshal(store.ViewOf(got))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"is_stale":true`) || !strings.Contains(string(data), `"incident_id":"inc_a"`) {
		t.Errorf("view JSON = %s", data)
	}
}
