// Package seclog is the audit trail for security-relevant rejections. Entries
// are appended to a flat log file, mirrored to the structured logger, and
// persisted to Postgres. The file and table are write-only for this service;
// aggregation happens elsewhere.
package seclog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bumikarya/contact-api/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	alertThreshold = 3
	alertWindow    = 15 * time.Minute
)

type Logger struct {
	log  *logrus.Entry
	db   *gorm.DB
	file *os.File

	mu     sync.Mutex
	recent map[string][]time.Time

	// overridable in tests
	now func() time.Time
}

// New opens (creating if needed) the append-only security log file. db may be
// nil, in which case events are file-only.
func New(logger *logrus.Logger, db *gorm.DB, filePath string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open security log: %w", err)
	}

	return &Logger{
		log:    logger.WithField("component", "security_log"),
		db:     db,
		file:   file,
		recent: make(map[string][]time.Time),
		now:    time.Now,
	}, nil
}

func (l *Logger) Close() error {
	return l.file.Close()
}

// Event records one security-relevant rejection and feeds the repeat-failure
// alerting. data is an arbitrary snapshot of the triggering request and is
// stored JSON-encoded.
func (l *Logger) Event(ctx context.Context, clientIP, userAgent, message string, data any) {
	l.write(ctx, clientIP, userAgent, message, data)
	l.trackRepeat(ctx, clientIP, message, l.now())
}

// Record writes an audit entry without counting toward alerts. Used for
// non-failure entries such as accepted submissions.
func (l *Logger) Record(ctx context.Context, clientIP, userAgent, message string, data any) {
	l.write(ctx, clientIP, userAgent, message, data)
}

func (l *Logger) write(ctx context.Context, clientIP, userAgent, message string, data any) {
	snapshot, err := json.Marshal(data)
	if err != nil {
		snapshot = []byte("{}")
	}

	ts := l.now()
	line := fmt.Sprintf("[%s] IP: %s | Message: %s | User-Agent: %s | Data: %s\n",
		ts.Format("2006-01-02 15:04:05"), clientIP, message, userAgent, snapshot)

	l.mu.Lock()
	if _, err := l.file.WriteString(line); err != nil {
		l.log.WithError(err).Error("Failed to append security log line")
	}
	l.mu.Unlock()

	l.log.WithFields(logrus.Fields{
		"client_ip":  clientIP,
		"user_agent": userAgent,
		"message":    message,
	}).Warn("Security event")

	if l.db != nil {
		entry := models.SecurityEvent{
			Timestamp: ts,
			ClientIP:  clientIP,
			UserAgent: userAgent,
			Message:   message,
			Data:      string(snapshot),
		}
		if err := l.db.WithContext(ctx).Create(&entry).Error; err != nil {
			l.log.WithError(err).Warn("Failed to persist security event")
		}
	}
}

// trackRepeat raises an alert once the same failure message repeats
// alertThreshold times from one IP within the alert window. The counter
// resets after each alert so sustained abuse keeps alerting.
func (l *Logger) trackRepeat(ctx context.Context, clientIP, message string, ts time.Time) {
	key := clientIP + "|" + message
	cutoff := ts.Add(-alertWindow)

	l.mu.Lock()
	times := l.recent[key]
	kept := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, ts)

	triggered := len(kept) >= alertThreshold
	if triggered {
		kept = kept[:0]
	}
	l.recent[key] = kept
	l.mu.Unlock()

	if !triggered {
		return
	}

	l.log.WithFields(logrus.Fields{
		"client_ip": clientIP,
		"message":   message,
		"count":     alertThreshold,
	}).Warn("Repeated security failures from client")

	if l.db != nil {
		alert := models.Alert{
			Timestamp: ts,
			ClientIP:  clientIP,
			Message:   message,
			Count:     alertThreshold,
		}
		if err := l.db.WithContext(ctx).Create(&alert).Error; err != nil {
			l.log.WithError(err).Warn("Failed to persist alert")
		}
	}
}
