package controller

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"haak-weather/internal/metrics"
	"haak-weather/internal/modules/weather/presenter"
)

const sessionCookieName = "haak_session"

// PresenterFactory builds the presenter a session uses for one station,
// starting from the session's settings.
type PresenterFactory func(stationID string, settings Settings) *presenter.Presenter

type session struct {
	settings   Settings
	presenters map[string]*presenter.Presenter
	lastSeen   time.Time
}

// Sessions keeps one presenter per station for every browser, keyed by the
// haak_session cookie. Sessions unused for longer than the idle timeout are
// dropped, and at most limit sessions are kept: starting one more evicts the
// least recently used.
type Sessions struct {
	factory PresenterFactory
	idle    time.Duration
	limit   int
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

func NewSessions(factory PresenterFactory, idle time.Duration, limit int, logger *slog.Logger) *Sessions {
	if logger == nil {
		logger = slog.Default()
	}
	if limit <= 0 {
		limit = 1
	}
	return &Sessions{
		factory:  factory,
		idle:     idle,
		limit:    limit,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// Presenter returns the caller's presenter for stationID. A request without a
// live session gets a fresh one; the cookie is refreshed on every call.
func (s *Sessions) Presenter(w http.ResponseWriter, r *http.Request, stationID string) *presenter.Presenter {
	s.mu.Lock()
	id, sess := s.lookup(r)
	p, ok := sess.presenters[stationID]
	if !ok {
		p = s.factory(stationID, sess.settings)
		sess.presenters[stationID] = p
	}
	n := len(s.sessions)
	s.mu.Unlock()

	metrics.SetSessionsActive(n)
	writeSessionCookie(w, id, s.idle)
	return p
}

// Settings returns the caller's settings, starting a session if needed.
func (s *Sessions) Settings(w http.ResponseWriter, r *http.Request) Settings {
	s.mu.Lock()
	id, sess := s.lookup(r)
	settings := sess.settings
	n := len(s.sessions)
	s.mu.Unlock()

	metrics.SetSessionsActive(n)
	writeSessionCookie(w, id, s.idle)
	return settings
}

// UpdateSettings applies update to the caller's settings and drops every
// presenter of the session except the one for keepStation, so the others are
// rebuilt from the new settings on their next use. An empty keepStation drops
// them all.
func (s *Sessions) UpdateSettings(w http.ResponseWriter, r *http.Request, keepStation string, update func(*Settings)) Settings {
	s.mu.Lock()
	id, sess := s.lookup(r)
	update(&sess.settings)
	for station := range sess.presenters {
		if station != keepStation {
			delete(sess.presenters, station)
		}
	}
	settings := sess.settings
	n := len(s.sessions)
	s.mu.Unlock()

	metrics.SetSessionsActive(n)
	writeSessionCookie(w, id, s.idle)
	return settings
}

// lookup returns the caller's live session, starting one when the cookie is
// missing, unknown or idle. s.mu must be held.
func (s *Sessions) lookup(r *http.Request) (string, *session) {
	id := readSessionCookie(r)
	now := s.now()

	sess, ok := s.sessions[id]
	if ok && now.Sub(sess.lastSeen) > s.idle {
		delete(s.sessions, id)
		ok = false
	}
	if !ok {
		for len(s.sessions) >= s.limit {
			s.evictOldest()
		}
		id = uuid.NewString()
		sess = &session{
			settings:   DefaultSettings(),
			presenters: make(map[string]*presenter.Presenter),
		}
		s.sessions[id] = sess
		s.logger.Debug("session started", "session", id)
	}
	sess.lastSeen = now
	return id, sess
}

// evictOldest drops the least recently used session. s.mu must be held.
func (s *Sessions) evictOldest() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, sess := range s.sessions {
		if oldestID == "" || sess.lastSeen.Before(oldest) {
			oldestID, oldest = id, sess.lastSeen
		}
	}
	delete(s.sessions, oldestID)
	s.logger.Debug("session evicted", "session", oldestID, "limit", s.limit)
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep drops idle sessions and returns how many were removed.
func (s *Sessions) Sweep() int {
	now := s.now()
	s.mu.Lock()
	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.idle {
			delete(s.sessions, id)
			removed++
		}
	}
	n := len(s.sessions)
	s.mu.Unlock()

	metrics.SetSessionsActive(n)
	if removed > 0 {
		s.logger.Debug("idle sessions removed", "removed", removed, "active", n)
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (s *Sessions) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// readSessionCookie returns the session id, or "" when the cookie is missing
// or not a UUID.
func readSessionCookie(r *http.Request) string {
	c, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return ""
	}
	return c.Value
}

func writeSessionCookie(w http.ResponseWriter, id string, idle time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(idle / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
