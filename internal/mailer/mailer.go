// Package mailer formats accepted submissions and dispatches them to the
// configured recipient.
package mailer

import (
	"context"
	"errors"
	"time"
)

// ErrDispatchFailed marks transport-level delivery failures so callers can
// tell them apart from validation rejections.
var ErrDispatchFailed = errors.New("notification dispatch failed")

// Submission is the sanitized record handed over once every pipeline gate has
// passed. Field values are already HTML-escaped per their kind.
type Submission struct {
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	Message     string
	ClientIP    string
	SubmittedAt time.Time
}

type Notifier interface {
	Send(ctx context.Context, sub *Submission) error
}
