package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bumikarya/contact-api/internal/config"
	"github.com/bumikarya/contact-api/internal/mailer"
	"github.com/bumikarya/contact-api/internal/ratelimit"
	"github.com/bumikarya/contact-api/internal/seclog"
	"github.com/bumikarya/contact-api/internal/session"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubNotifier struct {
	sent []*mailer.Submission
	err  error
}

func (s *stubNotifier) Send(_ context.Context, sub *mailer.Submission) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sub)
	return nil
}

type testEnv struct {
	handler  *ContactHandler
	notifier *stubNotifier
}

func newTestEnv(t *testing.T, maxAttempts int, minGap time.Duration) *testEnv {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := &config.Config{
		RecipientEmail:       "contact@bumikarya.co.id",
		FromEmail:            "noreply@bumikarya.co.id",
		FromName:             "ABI Contact Form",
		RateLimitMaxAttempts: maxAttempts,
		RateLimitWindow:      time.Hour,
		MinSubmissionGap:     minGap,
		CSRFTokenTTL:         time.Hour,
		SessionTTL:           24 * time.Hour,
		AllowedOrigins:       []string{"https://bumikarya.co.id"},
	}

	audit, err := seclog.New(logger, nil, filepath.Join(t.TempDir(), "security.log"))
	require.NoError(t, err)
	t.Cleanup(func() { audit.Close() })

	sessions := session.NewManager(logger, session.NewMemoryStore(), cfg.CSRFTokenTTL, cfg.SessionTTL)
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(), cfg.RateLimitMaxAttempts, cfg.RateLimitWindow, cfg.MinSubmissionGap)
	notifier := &stubNotifier{}

	return &testEnv{
		handler:  NewContactHandler(logger, cfg, sessions, limiter, notifier, audit),
		notifier: notifier,
	}
}

// fetchToken performs the GET leg and returns the session cookie plus the
// issued token.
func (e *testEnv) fetchToken(t *testing.T) (*http.Cookie, string) {
	t.Helper()

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/contact", nil)
	e.handler.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body["csrf_token"])

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0], body["csrf_token"]
}

func (e *testEnv) post(t *testing.T, cookie *http.Cookie, body string) *httptest.ResponseRecorder {
	t.Helper()

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/api/contact", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		r.AddCookie(cookie)
	}
	e.handler.ServeHTTP(w, r)
	return w
}

func validBody(token string) string {
	payload := map[string]string{
		"firstName":  "Jane",
		"lastName":   "Doe",
		"email":      "jane@example.com",
		"phone":      "+1 555-123-4567",
		"message":    "Hello there, interested in your services.",
		"csrf_token": token,
	}
	raw, _ := json.Marshal(payload)
	return string(raw)
}

func TestGetIssuesToken(t *testing.T) {
	env := newTestEnv(t, 5, 0)

	cookie, token := env.fetchToken(t)
	assert.Equal(t, session.CookieName, cookie.Name)
	assert.Len(t, token, 64)
}

func TestGetReturnsSameTokenWhileValid(t *testing.T) {
	env := newTestEnv(t, 5, 0)

	cookie, first := env.fetchToken(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/contact", nil)
	r.AddCookie(cookie)
	env.handler.ServeHTTP(w, r)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, first, body["csrf_token"])
}

func TestValidSubmissionRoundTrip(t *testing.T) {
	env := newTestEnv(t, 5, 0)
	cookie, token := env.fetchToken(t)

	w := env.post(t, cookie, validBody(token))

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["message"])

	require.Len(t, env.notifier.sent, 1)
	sub := env.notifier.sent[0]
	assert.Equal(t, "Jane", sub.FirstName)
	assert.Equal(t, "Doe", sub.LastName)
	assert.Equal(t, "jane@example.com", sub.Email)
	assert.NotEmpty(t, sub.ClientIP)
}

func TestOptionsPreflight(t *testing.T) {
	env := newTestEnv(t, 5, 0)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("OPTIONS", "/api/contact", nil)
	env.handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, 5, 0)

	for _, method := range []string{"PUT", "DELETE", "PATCH"} {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(method, "/api/contact", nil)
		env.handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusMethodNotAllowed, w.Code, method)
		assert.Contains(t, w.Body.String(), "Method not allowed")
	}
}

func TestMalformedJSON(t *testing.T) {
	env := newTestEnv(t, 5, 0)
	cookie, _ := env.fetchToken(t)

	w := env.post(t, cookie, "{not json")

	// malformed bodies map to 500, not 400
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "error")
}

func TestMissingCSRFToken(t *testing.T) {
	env := newTestEnv(t, 5, 0)
	cookie, _ := env.fetchToken(t)

	w := env.post(t, cookie, validBody(""))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid security token")
	assert.Empty(t, env.notifier.sent)
}

func TestWrongCSRFToken(t *testing.T) {
	env := newTestEnv(t, 5, 0)
	cookie, _ := env.fetchToken(t)

	w := env.post(t, cookie, validBody(strings.Repeat("ab", 32)))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMissingSessionCookie(t *testing.T) {
	env := newTestEnv(t, 5, 0)
	_, token := env.fetchToken(t)

	w := env.post(t, nil, validBody(token))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestTokenAcceptedFromHeader(t *testing.T) {
	env := newTestEnv(t, 5, 0)
	cookie, token := env.fetchToken(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/api/contact", strings.NewReader(validBody("")))
	r.Header.Set("X-CSRF-Token", token)
	r.AddCookie(cookie)
	env.handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitExceeded(t *testing.T) {
	env := newTestEnv(t, 2, 0)
	cookie, token := env.fetchToken(t)

	for i := 0; i < 2; i++ {
		w := env.post(t, cookie, validBody(token))
		require.Equal(t, http.StatusOK, w.Code, "attempt %d", i+1)
	}

	w := env.post(t, cookie, validBody(token))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "Too many requests")
	assert.Len(t, env.notifier.sent, 2)
}

func TestSubmittedTooSoon(t *testing.T) {
	env := newTestEnv(t, 5, 10*time.Second)
	cookie, token := env.fetchToken(t)

	w := env.post(t, cookie, validBody(token))
	require.Equal(t, http.StatusOK, w.Code)

	w = env.post(t, cookie, validBody(token))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestHoneypotRejected(t *testing.T) {
	env := newTestEnv(t, 5, 0)
	cookie, token := env.fetchToken(t)

	payload := map[string]string{
		"firstName":  "Jane",
		"lastName":   "Doe",
		"email":      "jane@example.com",
		"phone":      "+1 555-123-4567",
		"message":    "Hello there, interested in your services.",
		"csrf_token": token,
		"website":    "http://spam.example",
	}
	raw, _ := json.Marshal(payload)

	w := env.post(t, cookie, string(raw))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "spam")
	assert.Empty(t, env.notifier.sent)
}

func TestScriptTagRejectedBeforeValidation(t *testing.T) {
	env := newTestEnv(t, 5, 0)
	cookie, token := env.fetchToken(t)

	// other fields are deliberately invalid: the spam gate runs first
	payload := map[string]string{
		"firstName":  "",
		"lastName":   "",
		"email":      "not-an-email",
		"phone":      "x",
		"message":    "<script>alert(1)</script>",
		"csrf_token": token,
	}
	raw, _ := json.Marshal(payload)

	w := env.post(t, cookie, string(raw))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "spam")
	assert.NotContains(t, w.Body.String(), "errors")
}

func TestValidationFailure(t *testing.T) {
	env := newTestEnv(t, 5, 0)
	cookie, token := env.fetchToken(t)

	payload := map[string]string{
		"firstName":  "Jane",
		"lastName":   "Doe",
		"email":      "not-an-email",
		"phone":      "+1 555-123-4567",
		"message":    "Hello there, interested in your services.",
		"csrf_token": token,
	}
	raw, _ := json.Marshal(payload)

	w := env.post(t, cookie, string(raw))

	require.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Please enter a valid email address", body.Errors["email"])
	assert.Len(t, body.Errors, 1)
	assert.Empty(t, env.notifier.sent)
}

func TestDispatchFailure(t *testing.T) {
	env := newTestEnv(t, 5, 0)
	env.notifier.err = errors.New("smtp down")
	cookie, token := env.fetchToken(t)

	w := env.post(t, cookie, validBody(token))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "error")
}

func TestMessageSanitizedBeforeNotify(t *testing.T) {
	env := newTestEnv(t, 5, 0)
	cookie, token := env.fetchToken(t)

	payload := map[string]string{
		"firstName":  "Jane",
		"lastName":   "Doe",
		"email":      "jane@example.com",
		"phone":      "+1 555-123-4567",
		"message":    `Quotes "here" & angle bracket > test message`,
		"csrf_token": token,
	}
	raw, _ := json.Marshal(payload)

	w := env.post(t, cookie, string(raw))

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, env.notifier.sent, 1)
	msg := env.notifier.sent[0].Message
	assert.NotContains(t, msg, `"`)
	assert.Contains(t, msg, "&amp;")
	assert.Contains(t, msg, "&gt;")
}
