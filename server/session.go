package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/alwitt/catalog/editor"
	"github.com/alwitt/catalog/store"
	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// SessionCookie name of the cookie carrying the session ID
const SessionCookie = "catalog_session"

// Session one user editing session: one engine per entity kind
//
// Engine calls of a session are serialized behind the session lock.
type Session struct {
	// ID session ID
	ID string

	lock       sync.Mutex
	engines    map[string]*editor.Engine
	lastActive time.Time
}

// Engine the engine of one entity kind
func (s *Session) Engine(kind string) (*editor.Engine, bool) {
	engine, ok := s.engines[kind]
	return engine, ok
}

/*
Serialized run a function while holding the session lock

	@param fn func() error - the function
*/
func (s *Session) Serialized(fn func() error) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return fn()
}

// SessionManagerParams session manager parameters
type SessionManagerParams struct {
	// Repositories the repository of each entity kind
	Repositories map[string]store.Repository `validate:"required,min=1"`
	// DefaultPageSize list page size when a request does not give one
	DefaultPageSize int `validate:"required,gt=0"`
	// IdleTTL idle time after which a session is dropped
	IdleTTL time.Duration `validate:"required"`
	// SecureCookie whether the session cookie is HTTPS only
	SecureCookie bool
}

// SessionManager in-memory session table
type SessionManager struct {
	goutils.Component
	params SessionManagerParams

	lock     sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
}

/*
NewSessionManager define a new session manager

	@param params SessionManagerParams - manager parameters
	@returns new manager
*/
func NewSessionManager(params SessionManagerParams) (*SessionManager, error) {
	if err := validator.New().Struct(&params); err != nil {
		return nil, fmt.Errorf("invalid session manager parameters [%w]", err)
	}
	return &SessionManager{
		Component: goutils.Component{
			LogTags: log.Fields{"module": "server", "component": "session-manager"},
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		params:   params,
		sessions: map[string]*Session{},
		now:      time.Now,
	}, nil
}

// newSession define a session with a fresh engine per entity kind
func (m *SessionManager) newSession(ctx context.Context) (*Session, error) {
	session := &Session{
		ID:         uuid.NewString(),
		engines:    map[string]*editor.Engine{},
		lastActive: m.now(),
	}
	for kind, repo := range m.params.Repositories {
		engine, err := editor.NewEngine(ctx, editor.EngineParams{
			Repository: repo, DefaultPageSize: m.params.DefaultPageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to define %s engine [%w]", kind, err)
		}
		session.engines[kind] = engine
	}
	return session, nil
}

/*
Load fetch the session of a request, starting a new one if the request has none

	@param w http.ResponseWriter - the response, receives the cookie of a new session
	@param r *http.Request - the request
	@returns the session
*/
func (m *SessionManager) Load(w http.ResponseWriter, r *http.Request) (*Session, error) {
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		if session, ok := m.Get(cookie.Value); ok {
			return session, nil
		}
	}

	ctx := r.Context()
	session, err := m.newSession(ctx)
	if err != nil {
		return nil, err
	}

	m.lock.Lock()
	m.sessions[session.ID] = session
	m.lock.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.params.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	log.WithFields(m.GetLogTagsForContext(ctx)).
		WithField("session", session.ID).
		Info("Started new session")
	return session, nil
}

/*
Get fetch a live session, refreshing its idle timer

	@param sessionID string - session ID
	@returns the session, and whether it exists
*/
func (m *SessionManager) Get(sessionID string) (*Session, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()
	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, false
	}
	now := m.now()
	if now.Sub(session.lastActive) > m.params.IdleTTL {
		delete(m.sessions, sessionID)
		return nil, false
	}
	session.lastActive = now
	return session, true
}

// Count number of sessions in the table
func (m *SessionManager) Count() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return len(m.sessions)
}

/*
Sweep drop every idle session

	@param ctx context.Context - execution context
	@returns number of sessions dropped
*/
func (m *SessionManager) Sweep(ctx context.Context) int {
	m.lock.Lock()
	defer m.lock.Unlock()
	now := m.now()
	dropped := 0
	for sessionID, session := range m.sessions {
		if now.Sub(session.lastActive) > m.params.IdleTTL {
			delete(m.sessions, sessionID)
			dropped++
		}
	}
	if dropped > 0 {
		log.WithFields(m.GetLogTagsForContext(ctx)).
			WithField("dropped", dropped).
			Debug("Dropped idle sessions")
	}
	return dropped
}

/*
Run sweep idle sessions periodically until the context is cancelled

	@param ctx context.Context - execution context
	@param interval time.Duration - sweep interval
*/
func (m *SessionManager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}
