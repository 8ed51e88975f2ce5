package models

import (
	"time"
)

type AccessLog struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Timestamp time.Time `gorm:"index;not null"`
	Method    string    `gorm:"type:varchar(10);not null"`
	Path      string    `gorm:"type:text;not null;index:,length:256"`
	Status    int       `gorm:"not null;index"`
	Duration  time.Duration
	ClientIP  string `gorm:"type:varchar(45);not null"`
	UserAgent string `gorm:"type:text"`
	BytesSent int    `gorm:"not null;default:0"`
}

// RateRecord holds the submission attempt history for one client identity.
// Attempts is a JSON array of unix timestamps; entries older than the rate
// window are pruned on every check.
type RateRecord struct {
	Identity  string    `gorm:"primaryKey;type:varchar(64);not null"`
	Attempts  string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"index;not null"`
}

// SecurityEvent is an append-only audit row. Rows are written on every
// security-relevant rejection and never read back by the service itself.
type SecurityEvent struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Timestamp time.Time `gorm:"index;not null"`
	ClientIP  string    `gorm:"type:varchar(45);not null;index"`
	UserAgent string    `gorm:"type:text"`
	Message   string    `gorm:"type:text;not null"`
	Data      string    `gorm:"type:text"`
}

// Alert records repeated failures of the same kind from one client.
type Alert struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Timestamp time.Time `gorm:"index;not null"`
	ClientIP  string    `gorm:"type:varchar(45);not null;index"`
	Message   string    `gorm:"type:text;not null"`
	Count     int       `gorm:"not null"`
}

func (AccessLog) TableName() string {
	return "access_logs"
}

func (RateRecord) TableName() string {
	return "rate_records"
}

func (SecurityEvent) TableName() string {
	return "security_events"
}

func (Alert) TableName() string {
	return "alerts"
}
