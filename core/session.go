package core

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type (
	Session struct {
		ID        string
		AccountID int
		Role      string
		CreatedAt time.Time
		ExpiresAt time.Time
	}

	// SessionStore tracks live logins. It replaces the usual process-wide
	// session map with an explicit object that is safe for concurrent use by
	// request-handling goroutines: created once at startup, entries inserted
	// on login and removed on logout or expiry.
	SessionStore struct {
		mu       sync.RWMutex
		sessions map[string]Session
		timeout  time.Duration
		nowFunc  func() time.Time // mockable
	}
)

func NewSessionStore(timeout time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]Session),
		timeout:  timeout,
		nowFunc:  time.Now,
	}
}

// New registers a session for the given account and returns it.
func (st *SessionStore) New(accountID int, role string) Session {
	now := st.nowFunc()
	sess := Session{
		ID:        uuid.New().String(),
		AccountID: accountID,
		Role:      role,
		CreatedAt: now,
		ExpiresAt: now.Add(st.timeout),
	}
	st.mu.Lock()
	st.sessions[sess.ID] = sess
	st.mu.Unlock()
	return sess
}

// Get looks a session up by ID. Expired entries are dropped on access.
func (st *SessionStore) Get(id string) (Session, bool) {
	st.mu.RLock()
	sess, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return Session{}, false
	}
	if st.nowFunc().After(sess.ExpiresAt) {
		st.Invalidate(id)
		return Session{}, false
	}
	return sess, true
}

func (st *SessionStore) Invalidate(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

// InvalidateAccount removes every session belonging to the given account.
func (st *SessionStore) InvalidateAccount(accountID int, role string) {
	st.mu.Lock()
	for id, sess := range st.sessions {
		if sess.AccountID == accountID && sess.Role == role {
			delete(st.sessions, id)
		}
	}
	st.mu.Unlock()
}

// PurgeExpired drops all expired sessions and reports how many were removed.
func (st *SessionStore) PurgeExpired() int {
	now := st.nowFunc()
	var purged int
	st.mu.Lock()
	for id, sess := range st.sessions {
		if now.After(sess.ExpiresAt) {
			delete(st.sessions, id)
			purged++
		}
	}
	st.mu.Unlock()
	return purged
}

func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
