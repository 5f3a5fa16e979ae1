package ivr

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/soyeahso/switchboard/internal/domain"
)

// Sessions is the in-memory table of calls currently moving through the menu.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*domain.CallSession // callSid → session
	now      func() time.Time
}

// NewSessions creates an empty session table.
func NewSessions() *Sessions {
	return &Sessions{
		sessions: make(map[string]*domain.CallSession),
		now:      time.Now,
	}
}

// Get returns a copy of the session for callSid.
func (s *Sessions) Get(callSid string) (domain.CallSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[callSid]
	if !ok {
		return domain.CallSession{}, false
	}
	return *sess, true
}

// Update applies fn to the session for callSid, creating it on first use,
// and returns the updated copy. fn runs under the table lock.
func (s *Sessions) Update(callSid string, fn func(*domain.CallSession)) domain.CallSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess, ok := s.sessions[callSid]
	if !ok {
		sess = &domain.CallSession{
			CallSid:   callSid,
			State:     domain.StateFrontDoor,
			CreatedAt: now,
		}
		s.sessions[callSid] = sess
	}
	fn(sess)
	sess.UpdatedAt = now
	return *sess
}

// End removes the session for callSid.
func (s *Sessions) End(callSid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, callSid)
}

// Sweep removes sessions not touched within idle and returns how many
// were removed. Callers that hang up mid-menu never reach a terminal
// state, so this is what bounds the table.
func (s *Sessions) Sweep(idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-idle)
	removed := 0
	for sid, sess := range s.sessions {
		if sess.UpdatedAt.Before(cutoff) {
			delete(s.sessions, sid)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Schedule registers a periodic idle sweep on c.
func (s *Sessions) Schedule(c *cron.Cron, every, idle time.Duration) (cron.EntryID, error) {
	return c.AddFunc(fmt.Sprintf("@every %s", every), func() { s.Sweep(idle) })
}
