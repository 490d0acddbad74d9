package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/opendgw/odg/internal/domain/models"
	"github.com/opendgw/odg/internal/domain/repository"
	"github.com/opendgw/odg/pkg/logger"
)

// accessLogRow is the persistence shape of models.AccessLogRecord.
type accessLogRow struct {
	ID        string    `gorm:"primaryKey;size:36"`
	UserID    string    `gorm:"index;size:255"`
	Endpoint  string    `gorm:"size:1024"`
	Method    string    `gorm:"size:16"`
	Status    int       `gorm:"not null"`
	Timestamp time.Time `gorm:"index;not null"`
}

func (accessLogRow) TableName() string { return "access_logs" }

// AccessLogRepo implements repository.AccessLogRepository on GORM.
type AccessLogRepo struct {
	db  *gorm.DB
	log logger.Logger
}

// NewAccessLogRepo creates the repository.
func NewAccessLogRepo(db *gorm.DB, log logger.Logger) *AccessLogRepo {
	return &AccessLogRepo{db: db, log: log.WithComponent("accesslog-repo")}
}

var _ repository.AccessLogRepository = (*AccessLogRepo)(nil)

// Save implements repository.AccessLogRepository.
func (r *AccessLogRepo) Save(ctx context.Context, record *models.AccessLogRecord) error {
	row := accessLogRow{
		ID:        record.ID.String(),
		UserID:    record.UserID,
		Endpoint:  record.Endpoint,
		Method:    record.Method,
		Status:    record.Status,
		Timestamp: record.Timestamp,
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

// DeleteOlderThan implements repository.AccessLogRepository.
func (r *AccessLogRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("timestamp < ?", cutoff).
		Delete(&accessLogRow{})
	return res.RowsAffected, res.Error
}
