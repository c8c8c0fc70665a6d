package markercluster

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// SessionConfig configures a Session.
type SessionConfig struct {
	Config

	// Debounce is how long the session waits after a mutation before
	// rebuilding the index. Mutations arriving within the window are folded
	// into the same rebuild. Must be >= 0; 0 uses the default of 1ms.
	Debounce time.Duration

	// Logger receives rebuild diagnostics. Default: no logging.
	Logger *zap.Logger
}

const defaultDebounce = time.Millisecond

// Session owns a changing point set and the index built from it. Mutations
// are batched: any number of Add/Remove/Reset calls in quick succession
// cause a single rebuild. Readers always see a complete index, either the
// one before a rebuild or the one after.
//
// The session also owns the "expanded" cluster of the current view, the
// cluster a host has opened to show its members individually.
type Session struct {
	cfg      Config
	debounce time.Duration
	log      *zap.Logger

	index atomic.Pointer[Index]

	mu       sync.Mutex
	points   map[string]Point
	timer    *time.Timer
	gen      uint64 // generation of timer
	pending  int // mutations since the last rebuild
	builds   int
	expanded *GridKey
	closed   bool
}

// NewSession returns an empty session.
func NewSession(cfg SessionConfig) (*Session, error) {
	applyDefaults(&cfg.Config)
	if err := validateConfig(&cfg.Config); err != nil {
		return nil, err
	}
	if cfg.Debounce < 0 {
		return nil, fmt.Errorf("markercluster: Debounce must be >= 0, got %v", cfg.Debounce)
	}
	if cfg.Debounce == 0 {
		cfg.Debounce = defaultDebounce
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Session{
		cfg:      cfg.Config,
		debounce: cfg.Debounce,
		log:      cfg.Logger.Named("markercluster"),
		points:   make(map[string]Point),
	}, nil
}

// Add inserts or replaces points by ID. Nothing is added if any point is
// invalid.
func (s *Session) Add(points ...Point) error {
	for _, p := range points {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range points {
		s.points[p.ID] = p
	}
	s.scheduleLocked(len(points))
	return nil
}

// Remove deletes points by ID. Unknown IDs are ignored.
func (s *Session) Remove(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.points, id)
	}
	s.scheduleLocked(len(ids))
}

// Reset replaces the whole point set.
func (s *Session) Reset(points []Point) error {
	for _, p := range points {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.points)
	for _, p := range points {
		s.points[p.ID] = p
	}
	s.scheduleLocked(len(points) + 1)
	return nil
}

// Clear removes every point.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.points)
	s.scheduleLocked(1)
}

func (s *Session) scheduleLocked(n int) {
	if s.closed || n == 0 {
		return
	}
	s.pending += n
	if s.timer == nil {
		s.gen++
		gen := s.gen
		s.timer = time.AfterFunc(s.debounce, func() { s.rebuild(gen) })
	}
}

// rebuild is run by the debounce timer armed as generation gen. A timer
// that fired after being replaced or stopped does nothing.
func (s *Session) rebuild(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.timer == nil {
		return
	}
	s.timer = nil
	if s.closed || s.pending == 0 {
		return
	}
	s.rebuildLocked()
}

func (s *Session) rebuildLocked() {
	start := time.Now()
	points := make([]Point, 0, len(s.points))
	for _, p := range s.points {
		points = append(points, p)
	}
	idx, err := Build(points)
	if err != nil {
		// Points are validated on the way in, so this means a broken invariant.
		s.log.Error("rebuilding index", zap.Int("points", len(points)), zap.Error(err))
		return
	}
	s.index.Store(idx)
	s.builds++
	s.expanded = nil
	s.log.Debug("rebuilt index",
		zap.Int("points", len(points)),
		zap.Int("coalesced_mutations", s.pending),
		zap.Duration("duration", time.Since(start)))
	s.pending = 0
}

// Flush rebuilds the index now if any mutation is pending, cancelling the
// scheduled rebuild.
func (s *Session) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.pending > 0 && !s.closed {
		s.rebuildLocked()
	}
}

// Close cancels any pending rebuild. The current index stays readable.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Index returns the current index snapshot. It is nil until the first
// rebuild and whenever the point set is empty.
func (s *Session) Index() *Index {
	return s.index.Load()
}

// Builds returns how many times the index has been rebuilt.
func (s *Session) Builds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builds
}

// Clusters aggregates the current index snapshot for view. If the expanded
// cluster is not part of the result it is collapsed.
func (s *Session) Clusters(view Viewport) (map[GridKey]Cluster, error) {
	clusters, err := Aggregate(s.Index(), view, s.cfg)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expanded != nil {
		if _, ok := clusters[*s.expanded]; !ok {
			s.expanded = nil
		}
	}
	return clusters, nil
}

// Expand marks the cluster at key as expanded. Only one cluster is expanded
// at a time; expanding another collapses the previous one.
func (s *Session) Expand(key GridKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expanded = &key
}

// Expanded returns the key of the expanded cluster, if any.
func (s *Session) Expanded() (GridKey, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expanded == nil {
		return GridKey{}, false
	}
	return *s.expanded, true
}

// Collapse clears the expanded cluster.
func (s *Session) Collapse() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expanded = nil
}
