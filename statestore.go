package studymcq

import (
	"sync"
	"time"
)

// UserState is the ephemeral scratch area of one user: the running quiz,
// the open input flow and whether the next message is study material.
type UserState struct {
	Session    *QuizSession
	Flow       *Flow
	UploadMode bool

	mu       sync.Mutex
	lastSeen time.Time
	refs     int // guarded by StateStore.mu
}

// StateStore keeps one UserState per user id.
type StateStore struct {
	mu     sync.Mutex
	states map[int64]*UserState
	ttl    time.Duration
	now    func() time.Time
}

// NewStateStore creates a state store. A zero ttl disables idle expiry.
func NewStateStore(ttl time.Duration) *StateStore {
	return &StateStore{
		states: make(map[int64]*UserState),
		ttl:    ttl,
		now:    time.Now,
	}
}

// SetClock replaces the time source used for idle tracking.
func (ss *StateStore) SetClock(now func() time.Time) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.now = now
}

// Acquire locks the user's state, creating it if needed. Messages from the same
// user are handled one at a time; the returned release func must be called once.
func (ss *StateStore) Acquire(userID int64) (*UserState, func()) {
	ss.mu.Lock()
	st, ok := ss.states[userID]
	if !ok {
		st = &UserState{}
		ss.states[userID] = st
	}
	st.refs++
	now := ss.now
	ss.mu.Unlock()

	st.mu.Lock()
	st.lastSeen = now()

	var once sync.Once
	return st, func() {
		once.Do(func() {
			st.lastSeen = now()
			st.mu.Unlock()

			ss.mu.Lock()
			st.refs--
			ss.mu.Unlock()
		})
	}
}

// Sweep drops states idle for longer than the ttl and returns how many were removed.
func (ss *StateStore) Sweep() int {
	if ss.ttl <= 0 {
		return 0
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()

	cutoff := ss.now().Add(-ss.ttl)
	removed := 0
	for id, st := range ss.states {
		if st.refs > 0 {
			continue
		}
		if st.lastSeen.Before(cutoff) {
			delete(ss.states, id)
			removed++
		}
	}
	if removed > 0 {
		VerboseLog("Swept %d idle user states", removed)
	}
	return removed
}

// Size returns the number of tracked users
func (ss *StateStore) Size() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.states)
}
