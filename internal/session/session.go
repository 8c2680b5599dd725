// Package session holds server-side session state keyed by a signed
// client-held token. Admin and per-project authentication flags live here;
// the cookie itself carries only the opaque session ID.
package session

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wakegate/wakegate/internal/auth"
)

// CookieName is the session cookie set on every gated route.
const CookieName = "wakegate_session"

type state struct {
	admin     bool
	projects  map[string]string // project name -> cached display name
	expiresAt time.Time
}

// Manager owns all session state. All methods are safe for concurrent use.
type Manager struct {
	secret []byte
	ttl    time.Duration

	mu       sync.RWMutex
	sessions map[string]*state
}

// NewManager creates a Manager signing tokens with secret; sessions live
// for ttl from creation.
func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{
		secret:   []byte(secret),
		ttl:      ttl,
		sessions: make(map[string]*state),
	}
}

// Lookup resolves the request's session ID if the cookie carries a valid,
// unexpired token backed by live server state.
func (m *Manager) Lookup(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", false
	}
	id, err := auth.ParseSessionToken(m.secret, cookie.Value)
	if err != nil {
		return "", false
	}

	m.mu.RLock()
	st, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || time.Now().After(st.expiresAt) {
		return "", false
	}
	return id, true
}

// Ensure returns the request's session ID, creating a new session and
// setting the cookie when none is valid.
func (m *Manager) Ensure(w http.ResponseWriter, r *http.Request) (string, error) {
	if id, ok := m.Lookup(r); ok {
		return id, nil
	}

	now := time.Now()
	id := uuid.NewString()
	token, err := auth.NewSessionToken(m.secret, id, m.ttl, now)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	m.sessions[id] = &state{
		projects:  make(map[string]string),
		expiresAt: now.Add(m.ttl),
	}
	m.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(m.ttl / time.Second),
		Expires:  now.Add(m.ttl),
	})
	return id, nil
}

// IsAdmin reports the session's admin flag.
func (m *Manager) IsAdmin(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.sessions[id]
	return ok && st.admin
}

// SetAdmin sets or clears the session's admin flag. Project grants are
// untouched: admin and project sessions are independent.
func (m *Manager) SetAdmin(id string, v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.sessions[id]; ok {
		st.admin = v
	}
}

// GrantProject marks one testing project as authenticated for the session
// and caches its display name.
func (m *Manager) GrantProject(id, project, displayName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.sessions[id]; ok {
		st.projects[project] = displayName
	}
}

// ProjectGranted reports whether the session is authenticated for project
// and returns the cached display name.
func (m *Manager) ProjectGranted(id, project string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.sessions[id]
	if !ok {
		return "", false
	}
	name, ok := st.projects[project]
	return name, ok
}

// RevokeProject clears only the one project's flag.
func (m *Manager) RevokeProject(id, project string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.sessions[id]; ok {
		delete(st.projects, project)
	}
}

// PurgeExpired drops sessions past their expiry and returns the count.
func (m *Manager) PurgeExpired(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, st := range m.sessions {
		if now.After(st.expiresAt) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}
