package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// session is the ephemeral per-conversation context. At most one pacing
// delivery is in flight per session; starting a new turn cancels the prior
// one (barge-in) and waits for it to wind down so partial output never
// interleaves.
type session struct {
	id          string
	userID      string
	therapistID string
	startedAt   time.Time

	// turnMu serializes turns within the session.
	turnMu sync.Mutex

	ctlMu      sync.Mutex
	cancel     context.CancelFunc
	done       chan struct{}
	lastTurnAt time.Time
}

// bargeIn cancels the in-flight turn, if any, and blocks until it has
// fully stopped.
func (s *session) bargeIn() {
	s.ctlMu.Lock()
	cancel, done := s.cancel, s.done
	s.ctlMu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (s *session) beginTurn(cancel context.CancelFunc, done chan struct{}, at time.Time) {
	s.ctlMu.Lock()
	defer s.ctlMu.Unlock()

	s.cancel = cancel
	s.done = done
	s.lastTurnAt = at
}

func (s *session) endTurn(done chan struct{}) {
	s.ctlMu.Lock()
	s.cancel = nil
	s.done = nil
	s.ctlMu.Unlock()

	close(done)
}

func (s *session) idleSince() time.Time {
	s.ctlMu.Lock()
	defer s.ctlMu.Unlock()
	return s.lastTurnAt
}

func (s *session) active() bool {
	s.ctlMu.Lock()
	defer s.ctlMu.Unlock()
	return s.cancel != nil
}

type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*session
	logger   *zap.Logger
	now      func() time.Time
}

func newSessionRegistry(logger *zap.Logger) *sessionRegistry {
	return &sessionRegistry{
		sessions: make(map[string]*session),
		logger:   logger,
		now:      time.Now,
	}
}

func (r *sessionRegistry) acquire(sessionID, userID, therapistID string) *session {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, exists := r.sessions[sessionID]
	if !exists {
		now := r.now()
		sess = &session{
			id:          sessionID,
			userID:      userID,
			therapistID: therapistID,
			startedAt:   now,
			lastTurnAt:  now,
		}
		r.sessions[sessionID] = sess
		r.logger.Info("session created",
			zap.String("session_id", sessionID),
			zap.String("user_id", userID))
	}
	return sess
}

// end removes a session, cancelling any in-flight delivery.
func (r *sessionRegistry) end(sessionID string) {
	r.mu.Lock()
	sess, exists := r.sessions[sessionID]
	if exists {
		delete(r.sessions, sessionID)
	}
	r.mu.Unlock()

	if exists {
		sess.bargeIn()
	}
}

// sweep archives sessions idle for longer than maxIdle. Sessions with an
// in-flight turn are never swept.
func (r *sessionRegistry) sweep(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	var stale []*session
	for id, sess := range r.sessions {
		if !sess.active() && sess.idleSince().Before(cutoff) {
			delete(r.sessions, id)
			stale = append(stale, sess)
		}
	}
	r.mu.Unlock()

	for _, sess := range stale {
		r.logger.Info("session archived after inactivity",
			zap.String("session_id", sess.id),
			zap.String("user_id", sess.userID))
	}
	return len(stale)
}

// runSweeper is an explicit scheduled task carrying cancellation; it stops
// as soon as ctx is done.
func (r *sessionRegistry) runSweeper(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(maxIdle)
		}
	}
}
