package repository

import (
	"context"
	"time"

	"github.com/timmy/altseo/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MetadataRepository is the key/value metadata store of attachments.
// Keys follow the "{field}_{language}" convention.
type MetadataRepository struct {
	db *gorm.DB
}

// NewMetadataRepository creates a new MetadataRepository.
func NewMetadataRepository(db *gorm.DB) *MetadataRepository {
	return &MetadataRepository{db: db}
}

// Get returns field@language, or "" when unset.
func (r *MetadataRepository) Get(ctx context.Context, attachmentID, field, language string) (string, error) {
	var entry domain.MetadataEntry
	err := r.db.WithContext(ctx).
		Where("attachment_id = ? AND meta_key = ?", attachmentID, domain.MetaKey(field, language)).
		Limit(1).Find(&entry).Error
	if err != nil {
		return "", err
	}
	return entry.Value, nil
}

// Set writes field@language.
func (r *MetadataRepository) Set(ctx context.Context, attachmentID, field, language, value string) error {
	return r.SetMany(ctx, attachmentID, map[string]string{domain.MetaKey(field, language): value})
}

// SetMany upserts raw keys in one statement.
func (r *MetadataRepository) SetMany(ctx context.Context, attachmentID string, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	now := time.Now()
	entries := make([]domain.MetadataEntry, 0, len(values))
	for k, v := range values {
		entries = append(entries, domain.MetadataEntry{AttachmentID: attachmentID, Key: k, Value: v, UpdatedAt: now})
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "attachment_id"}, {Name: "meta_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"meta_value", "updated_at"}),
	}).Create(&entries).Error
}

// Delete removes raw keys.
func (r *MetadataRepository) Delete(ctx context.Context, attachmentID string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("attachment_id = ? AND meta_key IN ?", attachmentID, keys).
		Delete(&domain.MetadataEntry{}).Error
}

// GetAll returns every key of an attachment.
func (r *MetadataRepository) GetAll(ctx context.Context, attachmentID string) (map[string]string, error) {
	all, err := r.BulkGetAll(ctx, []string{attachmentID})
	if err != nil {
		return nil, err
	}
	if m, ok := all[attachmentID]; ok {
		return m, nil
	}
	return map[string]string{}, nil
}

// BulkGetAll returns every key of many attachments in one query.
func (r *MetadataRepository) BulkGetAll(ctx context.Context, attachmentIDs []string) (map[string]map[string]string, error) {
	out := make(map[string]map[string]string, len(attachmentIDs))
	if len(attachmentIDs) == 0 {
		return out, nil
	}
	var entries []domain.MetadataEntry
	if err := r.db.WithContext(ctx).Where("attachment_id IN ?", attachmentIDs).Find(&entries).Error; err != nil {
		return nil, err
	}
	for _, e := range entries {
		m, ok := out[e.AttachmentID]
		if !ok {
			m = make(map[string]string)
			out[e.AttachmentID] = m
		}
		m[e.Key] = e.Value
	}
	return out, nil
}
