package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const CookieName = "contact_session"

var ErrNotFound = errors.New("session not found")

// Session carries the anti-forgery token for one browser session. The token
// is rotated once it is older than the configured TTL.
type Session struct {
	ID            string
	CSRFToken     string
	TokenIssuedAt time.Time
	UserAgent     string
	IPAddress     string
}

type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, sess *Session, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

type Manager struct {
	store      Store
	tokenTTL   time.Duration
	sessionTTL time.Duration
	log        *logrus.Entry

	// overridable in tests
	now func() time.Time
}

func NewManager(logger *logrus.Logger, store Store, tokenTTL, sessionTTL time.Duration) *Manager {
	return &Manager{
		store:      store,
		tokenTTL:   tokenTTL,
		sessionTTL: sessionTTL,
		log:        logger.WithField("component", "session"),
		now:        time.Now,
	}
}

// Ensure returns the session identified by the request cookie, creating a new
// one (and setting the cookie) when none exists. The cookie TTL is refreshed
// either way.
func (m *Manager) Ensure(ctx context.Context, w http.ResponseWriter, r *http.Request) (*Session, error) {
	sess, err := m.Lookup(ctx, r)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		sess = &Session{
			ID:        uuid.NewString(),
			UserAgent: r.UserAgent(),
			IPAddress: r.RemoteAddr,
		}
		if err := m.store.Put(ctx, sess, m.sessionTTL); err != nil {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
		m.log.WithField("session_id", sess.ID).Debug("Created session")
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sess.ID,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		MaxAge:   int(m.sessionTTL.Seconds()),
	})
	return sess, nil
}

// Lookup returns the request's session, or nil when the cookie is absent or
// refers to an expired session.
func (m *Manager) Lookup(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}
	sess, err := m.store.Get(ctx, cookie.Value)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session lookup failed: %w", err)
	}
	return sess, nil
}

// Issue returns the session's anti-forgery token, generating a fresh one when
// the session has none or the existing token has expired.
func (m *Manager) Issue(ctx context.Context, sess *Session) (string, error) {
	if sess.CSRFToken != "" && m.now().Sub(sess.TokenIssuedAt) <= m.tokenTTL {
		return sess.CSRFToken, nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("token generation failed: %w", err)
	}
	sess.CSRFToken = hex.EncodeToString(buf)
	sess.TokenIssuedAt = m.now()

	if err := m.store.Put(ctx, sess, m.sessionTTL); err != nil {
		return "", fmt.Errorf("failed to persist token: %w", err)
	}
	return sess.CSRFToken, nil
}

// Validate reports whether the supplied token matches the session's current
// one. Expired tokens are evicted from the session and are never re-issued
// here; the client must request a new token.
func (m *Manager) Validate(ctx context.Context, sess *Session, token string) bool {
	if sess == nil || sess.CSRFToken == "" || token == "" {
		return false
	}

	if m.now().Sub(sess.TokenIssuedAt) > m.tokenTTL {
		sess.CSRFToken = ""
		sess.TokenIssuedAt = time.Time{}
		if err := m.store.Put(ctx, sess, m.sessionTTL); err != nil {
			m.log.WithError(err).Warn("Failed to evict expired token")
		}
		return false
	}

	return subtle.ConstantTimeCompare([]byte(sess.CSRFToken), []byte(token)) == 1
}
