package session

import (
	"container/list"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Config bounds the store. Zero values take the defaults below.
type Config struct {
	MaxTurns      int           // per-session history cap, oldest trimmed first
	MaxSessions   int           // total session cap, LRU evicted
	IdleTimeout   time.Duration // sessions idle longer than this are swept
	SweepInterval time.Duration // how often the sweeper runs
	Logger        *slog.Logger
}

// Store defaults.
const (
	DefaultMaxTurns      = 50
	DefaultMaxSessions   = 10000
	DefaultIdleTimeout   = 30 * time.Minute
	DefaultSweepInterval = 5 * time.Minute
)

// Store holds bounded conversation history per (tenant, user) key.
//
// Store is safe for concurrent use. The store mutex guards the session map
// and the LRU list; each session additionally carries its own mutex so that
// appends to the same key are atomic relative to each other while reads stay
// cheap. Lock order is always store mutex before session mutex.
type Store struct {
	mu       sync.Mutex
	sessions map[Key]*memSession
	lru      *list.List // front = most recently appended

	maxTurns    int
	maxSessions int
	idleTimeout time.Duration
	sweepEvery  time.Duration
	logger      *slog.Logger
}

// memSession is one session's mutable state.
type memSession struct {
	mu         sync.Mutex
	turns      []Turn
	seq        uint64 // monotonic, bumped on every append; detects stale writes
	lastAccess time.Time
	elem       *list.Element // position in the store's LRU list, holds Key
}

// NewStore creates a session store with the given bounds.
func NewStore(cfg Config) *Store {
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = DefaultMaxTurns
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Store{
		sessions:    make(map[Key]*memSession),
		lru:         list.New(),
		maxTurns:    cfg.MaxTurns,
		maxSessions: cfg.MaxSessions,
		idleTimeout: cfg.IdleTimeout,
		sweepEvery:  cfg.SweepInterval,
		logger:      cfg.Logger,
	}
}

// Append adds a turn to the session, creating the session lazily, and returns
// the session's new sequence number. History is trimmed to MaxTurns, oldest
// first. Appends to the same key are serialized; appends to different keys
// only contend on the brief map lookup.
func (s *Store) Append(tenantID, userID string, turn Turn) (uint64, error) {
	if tenantID == "" || userID == "" {
		return 0, ErrEmptyKey
	}
	if turn.Role == "" || turn.Text == "" {
		return 0, fmt.Errorf("%w: role=%q", ErrInvalidTurn, turn.Role)
	}

	key := Key{TenantID: tenantID, UserID: userID}

	s.mu.Lock()
	sess, ok := s.sessions[key]
	if !ok {
		sess = &memSession{lastAccess: time.Now()}
		sess.elem = s.lru.PushFront(key)
		s.sessions[key] = sess
		s.evictOverCapLocked()
	} else {
		s.lru.MoveToFront(sess.elem)
	}
	s.mu.Unlock()

	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.turns = append(sess.turns, turn)
	if over := len(sess.turns) - s.maxTurns; over > 0 {
		sess.turns = sess.turns[over:]
	}
	sess.seq++
	sess.lastAccess = time.Now()
	return sess.seq, nil
}

// Window returns the most recent n turns in chronological order, or fewer if
// the history is shorter. It never mutates store state; in particular it does
// not refresh the session's LRU position. The returned slice is a copy.
func (s *Store) Window(tenantID, userID string, n int) []Turn {
	if n <= 0 {
		return nil
	}

	s.mu.Lock()
	sess, ok := s.sessions[Key{TenantID: tenantID, UserID: userID}]
	s.mu.Unlock()
	if !ok {
		return nil
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	start := len(sess.turns) - n
	if start < 0 {
		start = 0
	}
	out := make([]Turn, len(sess.turns)-start)
	copy(out, sess.turns[start:])
	return out
}

// Seq returns the session's current sequence number, or 0 if the session
// does not exist. Callers can compare sequence numbers across operations to
// detect that another writer got in between.
func (s *Store) Seq(tenantID, userID string) uint64 {
	s.mu.Lock()
	sess, ok := s.sessions[Key{TenantID: tenantID, UserID: userID}]
	s.mu.Unlock()
	if !ok {
		return 0
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.seq
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// EvictIdle removes sessions whose last access is older than maxIdle and
// returns how many were removed.
func (s *Store) EvictIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for e := s.lru.Back(); e != nil; {
		prev := e.Prev()
		key := e.Value.(Key)
		sess := s.sessions[key]

		sess.mu.Lock()
		idle := sess.lastAccess.Before(cutoff)
		sess.mu.Unlock()

		if idle {
			s.removeLocked(key, sess)
			evicted++
		}
		e = prev
	}

	if evicted > 0 {
		s.logger.Debug("evicted idle sessions", "count", evicted, "remaining", len(s.sessions))
	}
	return evicted
}

// Start runs the idle sweeper until ctx is canceled.
func (s *Store) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.sweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.EvictIdle(s.idleTimeout)
			}
		}
	}()
}

// evictOverCapLocked drops least-recently-used sessions until the session
// count is within MaxSessions. Caller holds s.mu.
func (s *Store) evictOverCapLocked() {
	for len(s.sessions) > s.maxSessions {
		back := s.lru.Back()
		if back == nil {
			return
		}
		key := back.Value.(Key)
		s.removeLocked(key, s.sessions[key])
		s.logger.Debug("evicted LRU session", "tenant", key.TenantID, "user", key.UserID)
	}
}

// removeLocked deletes a session from the map and LRU list. Caller holds s.mu.
func (s *Store) removeLocked(key Key, sess *memSession) {
	if sess == nil {
		return
	}
	s.lru.Remove(sess.elem)
	delete(s.sessions, key)
}
