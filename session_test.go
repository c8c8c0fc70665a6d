package markercluster

import (
	"fmt"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestSession(t *testing.T, debounce time.Duration) *Session {
	t.Helper()
	s, err := NewSession(SessionConfig{Debounce: debounce})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestNewSession_InvalidConfig(t *testing.T) {
	for _, cfg := range []SessionConfig{
		{Config: Config{Radius: -5}},
		{Config: Config{SeparationFactor: 2}},
		{Debounce: -time.Second},
	} {
		if _, err := NewSession(cfg); err == nil {
			t.Errorf("config %+v: expected an error", cfg)
		}
	}
}

func TestSession_CoalescesMutations(t *testing.T) {
	s := newTestSession(t, time.Hour)
	for i, p := range generatePoints(100, 51) {
		p.ID = fmt.Sprintf("p%d", i)
		if err := s.Add(p); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	s.Remove("p0", "p1")
	if s.Index() != nil {
		t.Fatal("index built before the debounce window closed")
	}

	s.Flush()
	if got := s.Builds(); got != 1 {
		t.Errorf("Builds = %d, want 1", got)
	}
	if got := s.Index().Len(); got != 98 {
		t.Errorf("Len = %d, want 98", got)
	}

	s.Flush()
	if got := s.Builds(); got != 1 {
		t.Errorf("Flush with nothing pending rebuilt: Builds = %d", got)
	}
}

func TestSession_DebounceFires(t *testing.T) {
	s := newTestSession(t, time.Millisecond)
	if err := s.Add(generatePoints(10, 52)...); err != nil {
		t.Fatalf("Add: %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for s.Builds() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("debounced rebuild never ran")
		}
		time.Sleep(time.Millisecond)
	}
	if got := s.Index().Len(); got != 10 {
		t.Errorf("Len = %d, want 10", got)
	}
}

func TestSession_AddRejectsInvalidPoints(t *testing.T) {
	s := newTestSession(t, time.Hour)
	err := s.Add(Point{ID: "ok", Lat: 1, Lng: 1}, Point{ID: "bad", Lat: math.NaN(), Lng: 0})
	if err == nil {
		t.Fatal("expected an error")
	}
	if err := s.Reset([]Point{{ID: "bad", Lat: 0, Lng: math.Inf(1)}}); err == nil {
		t.Fatal("Reset: expected an error")
	}
	s.Flush()
	if s.Builds() != 0 || s.Index() != nil {
		t.Errorf("rejected batch was applied: builds %d", s.Builds())
	}
}

func TestSession_AddReplacesByID(t *testing.T) {
	s := newTestSession(t, time.Hour)
	_ = s.Add(Point{ID: "a", Lat: 1, Lng: 1})
	_ = s.Add(Point{ID: "a", Lat: 2, Lng: 2})
	s.Flush()
	pts := s.Index().All()
	if len(pts) != 1 || pts[0].Lat != 2 {
		t.Errorf("All = %v, want the replacement only", pts)
	}
}

func TestSession_ResetAndClear(t *testing.T) {
	s := newTestSession(t, time.Hour)
	_ = s.Add(generatePoints(20, 53)...)
	s.Flush()

	if err := s.Reset([]Point{{ID: "x", Lat: 5, Lng: 5}}); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	s.Flush()
	if got := s.Index().Len(); got != 1 {
		t.Errorf("after Reset Len = %d, want 1", got)
	}

	s.Clear()
	s.Flush()
	if s.Index() != nil {
		t.Errorf("after Clear the index should be nil, got %d points", s.Index().Len())
	}
	if got := s.Builds(); got != 3 {
		t.Errorf("Builds = %d, want 3", got)
	}
}

func TestSession_SnapshotIsStable(t *testing.T) {
	s := newTestSession(t, time.Hour)
	_ = s.Add(generatePoints(30, 54)...)
	s.Flush()
	old := s.Index()

	_ = s.Add(Point{ID: "extra", Lat: 0, Lng: 0})
	s.Flush()
	if old.Len() != 30 {
		t.Errorf("old snapshot changed: Len = %d", old.Len())
	}
	if s.Index() == old || s.Index().Len() != 31 {
		t.Errorf("new snapshot not published")
	}
}

func TestSession_ExpandedCluster(t *testing.T) {
	s := newTestSession(t, time.Hour)
	_ = s.Add(
		Point{ID: "a", Lat: 0, Lng: 0},
		Point{ID: "b", Lat: 0, Lng: 0.0001},
		Point{ID: "c", Lat: 10, Lng: 10},
	)
	s.Flush()

	view := worldView(5)
	clusters, err := s.Clusters(view)
	if err != nil {
		t.Fatalf("Clusters: %v", err)
	}
	var pair GridKey
	for k, c := range clusters {
		if c.Count == 2 {
			pair = k
		}
	}

	s.Expand(pair)
	if _, err := s.Clusters(view); err != nil {
		t.Fatalf("Clusters: %v", err)
	}
	if got, ok := s.Expanded(); !ok || got != pair {
		t.Errorf("Expanded = %v, %v; want %v, true", got, ok, pair)
	}

	// Zoomed out the pair is merged away and the expansion is dropped.
	if _, err := s.Clusters(worldView(0)); err != nil {
		t.Fatalf("Clusters: %v", err)
	}
	if _, ok := s.Expanded(); ok {
		t.Error("expansion kept for a cluster that is no longer shown")
	}

	s.Expand(pair)
	s.Collapse()
	if _, ok := s.Expanded(); ok {
		t.Error("Collapse left a cluster expanded")
	}

	s.Expand(pair)
	_ = s.Add(Point{ID: "d", Lat: -10, Lng: -10})
	s.Flush()
	if _, ok := s.Expanded(); ok {
		t.Error("rebuild left a cluster expanded")
	}
}

func TestSession_Close(t *testing.T) {
	s := newTestSession(t, time.Millisecond)
	s.Close()
	_ = s.Add(generatePoints(5, 55)...)
	s.Flush()
	time.Sleep(10 * time.Millisecond)
	if s.Builds() != 0 || s.Index() != nil {
		t.Errorf("closed session rebuilt: builds %d", s.Builds())
	}
}

func TestSession_LogsRebuilds(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s, err := NewSession(SessionConfig{Debounce: time.Hour, Logger: zap.New(core)})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer s.Close()

	_ = s.Add(Point{ID: "a", Lat: 1, Lng: 1})
	_ = s.Add(Point{ID: "b", Lat: 2, Lng: 2})
	s.Remove("a")
	s.Flush()

	entries := logs.FilterMessage("rebuilt index").All()
	if len(entries) != 1 {
		t.Fatalf("got %d rebuild log entries, want 1", len(entries))
	}
	e := entries[0]
	if e.LoggerName != "markercluster" {
		t.Errorf("logger name = %q", e.LoggerName)
	}
	fields := e.ContextMap()
	if fields["points"] != int64(1) || fields["coalesced_mutations"] != int64(3) {
		t.Errorf("fields = %v", fields)
	}
}

func TestSession_StaleTimerIgnored(t *testing.T) {
	s := newTestSession(t, time.Hour)
	_ = s.Add(Point{ID: "a", Lat: 1, Lng: 1})
	s.mu.Lock()
	stale := s.gen
	s.mu.Unlock()
	s.Flush()

	// A new window opens; the old timer's callback arrives late.
	_ = s.Add(Point{ID: "b", Lat: 2, Lng: 2})
	s.rebuild(stale)
	if got := s.Builds(); got != 1 {
		t.Errorf("stale timer rebuilt early: Builds = %d, want 1", got)
	}
	s.mu.Lock()
	armed := s.timer != nil
	current := s.gen
	s.mu.Unlock()
	if !armed {
		t.Fatal("stale timer cleared the pending rebuild")
	}

	s.rebuild(current)
	if got := s.Builds(); got != 2 {
		t.Errorf("Builds = %d, want 2", got)
	}
	if got := s.Index().Len(); got != 2 {
		t.Errorf("Len = %d, want 2", got)
	}
}
