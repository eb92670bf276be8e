package repository

import (
	"context"

	"github.com/timmy/altseo/internal/domain"
	"gorm.io/gorm"
)

// AuditRepository persists lifecycle events.
type AuditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Record inserts one audit event.
func (r *AuditRepository) Record(ctx context.Context, eventType, attachmentID string, metadata map[string]interface{}) error {
	return r.db.WithContext(ctx).Create(&domain.AuditEvent{
		EventType:    eventType,
		AttachmentID: attachmentID,
		Metadata:     domain.JSONMap(metadata),
	}).Error
}

// ListByAttachment returns the newest events of an attachment.
func (r *AuditRepository) ListByAttachment(ctx context.Context, attachmentID string, limit int) ([]domain.AuditEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var events []domain.AuditEvent
	err := r.db.WithContext(ctx).
		Where("attachment_id = ?", attachmentID).
		Order("id DESC").
		Limit(limit).
		Find(&events).Error
	return events, err
}
