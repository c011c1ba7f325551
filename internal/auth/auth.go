package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/abrezinsky/zoolo/internal/catalog"
	"github.com/abrezinsky/zoolo/internal/models"
)

const (
	CookieName    = "zoolo_session"
	SessionExpiry = 12 * time.Hour
)

type contextKey struct{}

type session struct {
	actor  models.Actor
	expiry time.Time
}

// Auth keeps login sessions in memory. A session maps a random token to
// the caller identity established at login.
type Auth struct {
	sessions map[string]session
	mu       sync.RWMutex
	now      func() time.Time
}

// New creates a new Auth instance
func New() *Auth {
	return &Auth{
		sessions: make(map[string]session),
		now:      time.Now,
	}
}

// GeneratePassword creates a random 3-word password from animal names
func GeneratePassword() string {
	animals := catalog.All()
	words := make([]string, 3)
	for i := range words {
		words[i] = strings.ToLower(animals[randomInt(len(animals))].Name)
	}
	return strings.Join(words, "-")
}

// Start opens a session for actor and returns its token
func (a *Auth) Start(actor models.Actor) string {
	token := generateToken()
	a.mu.Lock()
	a.sessions[token] = session{actor: actor, expiry: a.now().Add(SessionExpiry)}
	a.mu.Unlock()
	return token
}

// Logout invalidates a session token
func (a *Auth) Logout(token string) {
	a.mu.Lock()
	delete(a.sessions, token)
	a.mu.Unlock()
}

// LogoutAgency ends every session of an agency
func (a *Auth) LogoutAgency(agencyID int64) {
	a.mu.Lock()
	for token, s := range a.sessions {
		if s.actor.AgencyID == agencyID {
			delete(a.sessions, token)
		}
	}
	a.mu.Unlock()
}

// ValidateSession returns the actor of a live session
func (a *Auth) ValidateSession(token string) (models.Actor, bool) {
	a.mu.RLock()
	s, exists := a.sessions[token]
	a.mu.RUnlock()

	if !exists {
		return models.Actor{}, false
	}

	if a.now().After(s.expiry) {
		a.mu.Lock()
		delete(a.sessions, token)
		a.mu.Unlock()
		return models.Actor{}, false
	}

	return s.actor, true
}

// TokenFromRequest returns the session token from the cookie or an
// "Authorization: Bearer" header
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if cookie, err := r.Cookie(CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// GetSessionFromRequest extracts and validates the session from a request
func (a *Auth) GetSessionFromRequest(r *http.Request) (models.Actor, bool) {
	token := TokenFromRequest(r)
	if token == "" {
		return models.Actor{}, false
	}
	return a.ValidateSession(token)
}

// RequireAuthAPI middleware for API endpoints (returns 401). The actor is
// stored in the request context.
func (a *Auth) RequireAuthAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := a.GetSessionFromRequest(r)
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized - please log in")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

// RequireAdmin middleware rejects non-operator actors (returns 403).
// It must run after RequireAuthAPI.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFrom(r.Context())
		if !ok || !actor.Admin {
			writeJSONError(w, http.StatusForbidden, "FORBIDDEN", "Operator access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithActor returns a context carrying actor
func WithActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, contextKey{}, actor)
}

// ActorFrom returns the actor stored by RequireAuthAPI
func ActorFrom(ctx context.Context) (models.Actor, bool) {
	actor, ok := ctx.Value(contextKey{}).(models.Actor)
	return actor, ok
}

// SetSessionCookie sets the session cookie on the response
func SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(SessionExpiry.Seconds()),
	})
}

// ClearSessionCookie removes the session cookie
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

func writeJSONError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"code":"` + code + `","error":"` + msg + `"}`))
}

// generateToken creates a random session token
func generateToken() string {
	bytes := make([]byte, 32)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// randomInt returns a random int in [0, max)
func randomInt(max int) int {
	bytes := make([]byte, 2)
	rand.Read(bytes)
	return (int(bytes[0])<<8 | int(bytes[1])) % max
}
