package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/bumikarya/contact-api/internal/config"
	"github.com/bumikarya/contact-api/internal/mailer"
	"github.com/bumikarya/contact-api/internal/ratelimit"
	"github.com/bumikarya/contact-api/internal/seclog"
	"github.com/bumikarya/contact-api/internal/session"
	"github.com/bumikarya/contact-api/internal/spam"
	"github.com/bumikarya/contact-api/internal/validation"
	"github.com/sirupsen/logrus"
)

const (
	msgGenericError = "An error occurred while processing your request. Please try again later."
	msgInvalidToken = "Invalid security token. Please refresh the page."
	msgTooMany      = "Too many requests. Please try again later."
	msgSpam         = "Your submission appears to be spam."
	msgMethod       = "Method not allowed"
	msgAccepted     = "Thank you for contacting us! We will get back to you soon."
)

// contactRequest is the raw POST body. Website is the honeypot: hidden in the
// form, so any value means a bot filled it in.
type contactRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Message   string `json:"message"`
	CSRFToken string `json:"csrf_token"`
	Website   string `json:"website,omitempty"`
}

type ContactHandler struct {
	cfg      *config.Config
	sessions *session.Manager
	limiter  *ratelimit.Limiter
	notifier mailer.Notifier
	audit    *seclog.Logger
	log      *logrus.Entry
}

func NewContactHandler(logger *logrus.Logger, cfg *config.Config, sessions *session.Manager,
	limiter *ratelimit.Limiter, notifier mailer.Notifier, audit *seclog.Logger) *ContactHandler {
	return &ContactHandler{
		cfg:      cfg,
		sessions: sessions,
		limiter:  limiter,
		notifier: notifier,
		audit:    audit,
		log:      logger.WithField("component", "contact_handler"),
	}
}

func (h *ContactHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleToken(w, r)
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
	case http.MethodPost:
		h.handleSubmit(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, msgMethod)
	}
}

// handleToken serves GET: it only ensures a session and hands out the current
// anti-forgery token. No other pipeline gate applies here.
func (h *ContactHandler) handleToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sess, err := h.sessions.Ensure(ctx, w, r)
	if err != nil {
		h.log.WithError(err).Error("Session setup failed")
		writeError(w, http.StatusInternalServerError, msgGenericError)
		return
	}

	token, err := h.sessions.Issue(ctx, sess)
	if err != nil {
		h.log.WithError(err).Error("Token issuance failed")
		writeError(w, http.StatusInternalServerError, msgGenericError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"csrf_token": token})
}

// handleSubmit runs the POST pipeline. Gate order is deliberate and fixed:
// CSRF, then rate limiting, then spam heuristics, then field validation —
// cheapest checks and highest attacker cost first.
func (h *ContactHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientIP := getClientIP(r)
	userAgent := r.UserAgent()

	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.audit.Event(ctx, clientIP, userAgent, "Error: invalid JSON data", nil)
		writeError(w, http.StatusInternalServerError, msgGenericError)
		return
	}

	token := req.CSRFToken
	if token == "" {
		token = r.Header.Get("X-CSRF-Token")
	}

	sess, err := h.sessions.Lookup(ctx, r)
	if err != nil {
		h.log.WithError(err).Error("Session lookup failed")
		writeError(w, http.StatusInternalServerError, msgGenericError)
		return
	}
	if !h.sessions.Validate(ctx, sess, token) {
		h.audit.Event(ctx, clientIP, userAgent, "CSRF token validation failed", req)
		writeError(w, http.StatusForbidden, msgInvalidToken)
		return
	}

	identity := ratelimit.Identity(clientIP, userAgent)
	if err := h.limiter.CheckAndRecord(ctx, identity); err != nil {
		switch {
		case errors.Is(err, ratelimit.ErrLimitExceeded):
			h.audit.Event(ctx, clientIP, userAgent, "Rate limit exceeded", req)
			writeError(w, http.StatusTooManyRequests, msgTooMany)
		case errors.Is(err, ratelimit.ErrTooSoon):
			h.audit.Event(ctx, clientIP, userAgent, "Submitted too soon", req)
			writeError(w, http.StatusTooManyRequests, msgTooMany)
		default:
			h.log.WithError(err).Error("Rate limit check failed")
			writeError(w, http.StatusInternalServerError, msgGenericError)
		}
		return
	}

	// Spam heuristics see the raw input, before any sanitization.
	if reason := spam.Check(req.Website, req.Message); reason != "" {
		h.audit.Event(ctx, clientIP, userAgent, reason, req)
		writeError(w, http.StatusBadRequest, msgSpam)
		return
	}

	result := validation.Validate(map[string]string{
		"firstName": req.FirstName,
		"lastName":  req.LastName,
		"email":     req.Email,
		"phone":     req.Phone,
		"message":   req.Message,
	})
	if !result.OK() {
		// Field errors are a client problem, not a security event.
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": result.Errors})
		return
	}

	sub := &mailer.Submission{
		FirstName:   result.Sanitized["firstName"],
		LastName:    result.Sanitized["lastName"],
		Email:       result.Sanitized["email"],
		Phone:       result.Sanitized["phone"],
		Message:     result.Sanitized["message"],
		ClientIP:    clientIP,
		SubmittedAt: time.Now(),
	}

	if err := h.notifier.Send(ctx, sub); err != nil {
		h.audit.Event(ctx, clientIP, userAgent, "Error: failed to send email", nil)
		writeError(w, http.StatusInternalServerError, msgGenericError)
		return
	}

	h.audit.Record(ctx, clientIP, userAgent, "Form submitted successfully", map[string]string{
		"email": sub.Email,
		"name":  sub.FirstName + " " + sub.LastName,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": msgAccepted,
	})
}
