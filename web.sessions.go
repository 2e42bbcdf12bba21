package main

import (
	"net/http"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

const SessionCookieName = "bookshelf_session"

// session is a cached page state with its last access time.
type session struct {
	state    *UIState
	lastSeen atomic.Int64
}

// SessionStore keeps one page state per browser session in memory. It holds
// at most a fixed number of sessions, evicting the least recently used, and
// drops sessions idle for longer than the ttl.
type SessionStore struct {
	cache      *lru.Cache
	ttl        time.Duration
	clock      Clocker
	idsHandler UIDHandler
	newState   func() *UIState
}

// NewSessionStore provides an empty store. newState builds the state of new sessions.
func NewSessionStore(idsHandler UIDHandler, clock Clocker, size int, ttl time.Duration, newState func() *UIState) (*SessionStore, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &SessionStore{
		cache:      cache,
		ttl:        ttl,
		clock:      clock,
		idsHandler: idsHandler,
		newState:   newState,
	}, nil
}

// Get returns the state of an existing session and refreshes its access time.
func (ss *SessionStore) Get(id string) (*UIState, bool) {
	v, ok := ss.cache.Get(id)
	if !ok {
		return nil, false
	}
	s := v.(*session)
	now := ss.clock.Now()
	if ss.ttl > 0 && now.Sub(time.Unix(0, s.lastSeen.Load())) > ss.ttl {
		ss.cache.Remove(id)
		return nil, false
	}
	s.lastSeen.Store(now.UnixNano())
	return s.state, true
}

// Create registers a new session and returns its id with its state.
func (ss *SessionStore) Create() (string, *UIState) {
	id := ss.idsHandler.Generate(SessionIDPrefix)
	s := &session{state: ss.newState()}
	s.lastSeen.Store(ss.clock.Now().UnixNano())
	ss.cache.Add(id, s)
	return id, s.state
}

// Len returns the number of cached sessions, expired ones included
// until they are looked up or evicted.
func (ss *SessionStore) Len() int {
	return ss.cache.Len()
}

// FromRequest returns the session state of the caller and creates one,
// with its cookie, when the request carries no known session.
func (ss *SessionStore) FromRequest(w http.ResponseWriter, r *http.Request) *UIState {
	if c, err := r.Cookie(SessionCookieName); err == nil {
		if state, ok := ss.Get(c.Value); ok {
			return state
		}
	}
	id, state := ss.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return state
}
