package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

var (
	ErrLimitExceeded = errors.New("rate limit exceeded")
	ErrTooSoon       = errors.New("submitted too soon")
)

// Store gives the limiter an exclusive read-modify-write over one identity's
// attempt list. fn receives the persisted attempts (unix seconds) and returns
// the list to persist; the returned list is written even when fn also returns
// a rejection, so lazy pruning survives rejected requests.
type Store interface {
	Update(ctx context.Context, identity string, fn func(attempts []int64) ([]int64, error)) error
}

// Identity derives the stable rate-limit key for a client.
func Identity(ip, userAgent string) string {
	sum := sha256.Sum256([]byte(ip + "\n" + userAgent))
	return hex.EncodeToString(sum[:])
}

type Limiter struct {
	store       Store
	maxAttempts int
	window      time.Duration
	minGap      time.Duration

	// overridable in tests
	now func() time.Time
}

func NewLimiter(store Store, maxAttempts int, window, minGap time.Duration) *Limiter {
	return &Limiter{
		store:       store,
		maxAttempts: maxAttempts,
		window:      window,
		minGap:      minGap,
		now:         time.Now,
	}
}

// CheckAndRecord admits or rejects one submission attempt for identity.
// Admitted attempts are recorded; rejected ones are not.
func (l *Limiter) CheckAndRecord(ctx context.Context, identity string) error {
	return l.store.Update(ctx, identity, func(attempts []int64) ([]int64, error) {
		now := l.now().Unix()
		cutoff := now - int64(l.window.Seconds())

		kept := attempts[:0]
		for _, ts := range attempts {
			if ts > cutoff {
				kept = append(kept, ts)
			}
		}

		if len(kept) >= l.maxAttempts {
			return kept, ErrLimitExceeded
		}
		if len(kept) > 0 {
			last := kept[len(kept)-1]
			if now-last < int64(l.minGap.Seconds()) {
				return kept, ErrTooSoon
			}
		}

		return append(kept, now), nil
	})
}
