package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/opendgw/odg/internal/domain/models"
	"github.com/opendgw/odg/internal/domain/repository"
	"github.com/opendgw/odg/pkg/logger"
)

// rateLimitRecordRow is the persistence shape of models.RateLimitRecord.
type rateLimitRecordRow struct {
	ID        string    `gorm:"primaryKey;size:36"`
	UserID    string    `gorm:"index:idx_rl_user_ts,priority:1;size:255;not null"`
	Endpoint  string    `gorm:"size:1024"`
	Timestamp time.Time `gorm:"index:idx_rl_user_ts,priority:2;not null"`
}

func (rateLimitRecordRow) TableName() string { return "rate_limit_records" }

// RateLimitRepo implements repository.RateLimitRepository on GORM.
type RateLimitRepo struct {
	db  *gorm.DB
	log logger.Logger
}

// NewRateLimitRepo creates the repository.
func NewRateLimitRepo(db *gorm.DB, log logger.Logger) *RateLimitRepo {
	return &RateLimitRepo{db: db, log: log.WithComponent("ratelimit-repo")}
}

var _ repository.RateLimitRepository = (*RateLimitRepo)(nil)

// Save implements repository.RateLimitRepository.
func (r *RateLimitRepo) Save(ctx context.Context, record *models.RateLimitRecord) error {
	row := rateLimitRecordRow{
		ID:        record.ID.String(),
		UserID:    record.UserID,
		Endpoint:  record.Endpoint,
		Timestamp: record.Timestamp,
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

// CountInWindow implements repository.RateLimitRepository with inclusive
// bounds.
func (r *RateLimitRepo) CountInWindow(ctx context.Context, userID string, start, end time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&rateLimitRecordRow{}).
		Where("user_id = ? AND timestamp >= ? AND timestamp <= ?", userID, start, end).
		Count(&count).Error
	return count, err
}

// OldestInWindow implements repository.RateLimitRepository.
func (r *RateLimitRepo) OldestInWindow(ctx context.Context, userID string, start, end time.Time) (time.Time, bool, error) {
	var row rateLimitRecordRow
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND timestamp >= ? AND timestamp <= ?", userID, start, end).
		Order("timestamp ASC").
		First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return row.Timestamp, true, nil
}

// DeleteByUser implements repository.RateLimitRepository.
func (r *RateLimitRepo) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&rateLimitRecordRow{})
	return res.RowsAffected, res.Error
}

// DeleteOlderThan implements repository.RateLimitRepository.
func (r *RateLimitRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("timestamp < ?", cutoff).
		Delete(&rateLimitRecordRow{})
	return res.RowsAffected, res.Error
}
