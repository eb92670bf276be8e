package repository

import (
	"context"
	"time"

	"github.com/timmy/altseo/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LockRepository implements named, time-boxed locks on a table so that
// every process sharing the database sees the same lock.
type LockRepository struct {
	db *gorm.DB
}

// NewLockRepository creates a new LockRepository.
func NewLockRepository(db *gorm.DB) *LockRepository {
	return &LockRepository{db: db}
}

// Acquire takes the lock for ttl. It returns false when another owner
// holds an unexpired lock.
func (r *LockRepository) Acquire(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	now := time.Now()
	db := r.db.WithContext(ctx)

	if err := db.Where("name = ? AND expires_at < ?", name, now).Delete(&domain.SyncLock{}).Error; err != nil {
		return false, err
	}

	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&domain.SyncLock{
		Name:      name,
		Owner:     owner,
		ExpiresAt: now.Add(ttl),
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Release drops the lock if owner still holds it.
func (r *LockRepository) Release(ctx context.Context, name, owner string) error {
	return r.db.WithContext(ctx).
		Where("name = ? AND owner = ?", name, owner).
		Delete(&domain.SyncLock{}).Error
}
