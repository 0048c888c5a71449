package services

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"driver-compare/internal/models"
)

type session struct {
	workbook *models.Workbook
	lastSeen time.Time
}

// Sessions keeps uploaded workbooks in memory, one per browser session.
// Entries idle longer than the TTL are evicted by the janitor.
type Sessions struct {
	mu       sync.RWMutex
	entries  map[string]*session
	fallback *models.Workbook
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	onChange func(n int)
}

func NewSessions(ttl time.Duration, logger *slog.Logger) *Sessions {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sessions{
		entries: make(map[string]*session),
		ttl:     ttl,
		now:     time.Now,
		logger:  logger.With("component", "sessions"),
		stop:    make(chan struct{}),
	}
}

// Create stores wb under a fresh session id.
func (s *Sessions) Create(wb *models.Workbook) string {
	id := uuid.NewString()

	s.mu.Lock()
	s.entries[id] = &session{workbook: wb, lastSeen: s.now()}
	n := len(s.entries)
	s.mu.Unlock()

	s.changed(n)
	return id
}

// Get returns the workbook for id, or the default workbook when id is
// unknown or expired. A hit refreshes the session's idle timer.
func (s *Sessions) Get(id string) (*models.Workbook, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.entries[id]; ok && id != "" {
		if s.now().Sub(entry.lastSeen) <= s.ttl {
			entry.lastSeen = s.now()
			return entry.workbook, true
		}
	}
	if s.fallback != nil {
		return s.fallback, true
	}
	return nil, false
}

// SetDefault sets the workbook served to requests without a session.
func (s *Sessions) SetDefault(wb *models.Workbook) {
	s.mu.Lock()
	s.fallback = wb
	s.mu.Unlock()
}

func (s *Sessions) Delete(id string) {
	s.mu.Lock()
	delete(s.entries, id)
	n := len(s.entries)
	s.mu.Unlock()

	s.changed(n)
}

func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// OnChange registers a callback receiving the session count after each
// create, delete or eviction.
func (s *Sessions) OnChange(fn func(n int)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Sessions) changed(n int) {
	s.mu.RLock()
	fn := s.onChange
	s.mu.RUnlock()
	if fn != nil {
		fn(n)
	}
}

// EvictExpired drops sessions idle longer than the TTL and returns how
// many were removed.
func (s *Sessions) EvictExpired() int {
	s.mu.Lock()
	now := s.now()
	removed := 0
	for id, entry := range s.entries {
		if now.Sub(entry.lastSeen) > s.ttl {
			delete(s.entries, id)
			removed++
		}
	}
	n := len(s.entries)
	s.mu.Unlock()

	if removed > 0 {
		s.logger.Debug("evicted expired sessions", "removed", removed, "remaining", n)
		s.changed(n)
	}
	return removed
}

// Start runs the janitor until Stop is called.
func (s *Sessions) Start(interval time.Duration) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.EvictExpired()
			case <-s.stop:
				return
			}
		}
	}()
}

func (s *Sessions) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()
}
