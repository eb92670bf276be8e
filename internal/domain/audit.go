package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuditEvent is a persisted lifecycle event.
type AuditEvent struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	EventType    string    `gorm:"type:varchar(64);not null;index" json:"event_type"`
	AttachmentID string    `gorm:"type:varchar(64);index" json:"attachment_id"`
	Metadata     JSONMap   `gorm:"type:text" json:"metadata"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName returns the database table name for AuditEvent.
func (AuditEvent) TableName() string {
	return "audit_events"
}

// ModelPrice is the per-million-token price of a model.
type ModelPrice struct {
	Model         string          `gorm:"type:varchar(128);primaryKey" json:"model"`
	Provider      string          `gorm:"type:varchar(32)" json:"provider"`
	InputPerMTok  decimal.Decimal `gorm:"type:decimal(20,10)" json:"input_per_mtok"`
	OutputPerMTok decimal.Decimal `gorm:"type:decimal(20,10)" json:"output_per_mtok"`
	SyncedAt      time.Time       `json:"synced_at"`
}

// TableName returns the database table name for ModelPrice.
func (ModelPrice) TableName() string {
	return "model_prices"
}

// SyncLock is a named, time-boxed lock row shared by all processes.
type SyncLock struct {
	Name      string    `gorm:"type:varchar(64);primaryKey"`
	Owner     string    `gorm:"type:text;not null"`
	ExpiresAt time.Time `gorm:"not null"`
}

// TableName returns the database table name for SyncLock.
func (SyncLock) TableName() string {
	return "sync_locks"
}
