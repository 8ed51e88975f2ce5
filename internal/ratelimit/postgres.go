package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bumikarya/contact-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgresStore serializes concurrent updates for one identity with a
// row-level FOR UPDATE lock; distinct identities never contend.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Update(ctx context.Context, identity string, fn func(attempts []int64) ([]int64, error)) error {
	var verdict error

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec models.RateRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("identity = ?", identity).
			First(&rec).Error

		var attempts []int64
		switch {
		case err == nil:
			if err := json.Unmarshal([]byte(rec.Attempts), &attempts); err != nil {
				return fmt.Errorf("corrupt rate record for %s: %w", identity, err)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			// first attempt for this identity
		default:
			return fmt.Errorf("rate record read failed: %w", err)
		}

		updated, v := fn(attempts)
		verdict = v

		if updated != nil {
			raw, err := json.Marshal(updated)
			if err != nil {
				return fmt.Errorf("rate record encode failed: %w", err)
			}
			rec = models.RateRecord{
				Identity:  identity,
				Attempts:  string(raw),
				UpdatedAt: time.Now(),
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "identity"}},
				UpdateAll: true,
			}).Create(&rec).Error; err != nil {
				return fmt.Errorf("rate record write failed: %w", err)
			}
		}
		return nil
	})

	if txErr != nil {
		return txErr
	}
	return verdict
}
