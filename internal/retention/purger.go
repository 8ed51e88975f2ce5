// Package retention trims aged rows from the append-only tables. The service
// itself never reads them back, so growth is bounded here instead of at
// write time.
package retention

import (
	"context"
	"time"

	"github.com/bumikarya/contact-api/internal/config"
	"github.com/bumikarya/contact-api/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Purger struct {
	logger *logrus.Logger
	db     *gorm.DB
	cfg    *config.Config
}

func NewPurger(logger *logrus.Logger, db *gorm.DB, cfg *config.Config) *Purger {
	return &Purger{
		logger: logger,
		db:     db,
		cfg:    cfg,
	}
}

func (p *Purger) Start(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Minute)
	defer ticker.Stop()

	logEntry := p.logger.WithField("component", "retention_purger")
	logEntry.Info("Starting retention purger")

	for {
		select {
		case <-ticker.C:
			p.purge(ctx, logEntry)
		case <-ctx.Done():
			logEntry.Info("Stopping retention purger")
			return
		}
	}
}

func (p *Purger) purge(ctx context.Context, log *logrus.Entry) {
	log = log.WithField("operation", "retention_purge")
	now := time.Now()

	// Rate records are dead weight once every attempt in them has aged out
	// of the window.
	staleBefore := now.Add(-2 * p.cfg.RateLimitWindow)
	res := p.db.WithContext(ctx).
		Where("updated_at < ?", staleBefore).
		Delete(&models.RateRecord{})
	if res.Error != nil {
		log.WithError(res.Error).Error("Rate record purge failed")
	} else if res.RowsAffected > 0 {
		log.WithField("count", res.RowsAffected).Info("Purged stale rate records")
	}

	retainAfter := now.Add(-p.cfg.LogRetention)

	res = p.db.WithContext(ctx).
		Where("timestamp < ?", retainAfter).
		Delete(&models.AccessLog{})
	if res.Error != nil {
		log.WithError(res.Error).Error("Access log purge failed")
	}

	res = p.db.WithContext(ctx).
		Where("timestamp < ?", retainAfter).
		Delete(&models.SecurityEvent{})
	if res.Error != nil {
		log.WithError(res.Error).Error("Security event purge failed")
	}
}
