package repositories

import (
	"context"
	"time"

	"skystore/models"

	"gorm.io/gorm"
)

type GormUploadSessionRepository struct {
	db *gorm.DB
}

func NewGormUploadSessionRepository(db *gorm.DB) *GormUploadSessionRepository {
	return &GormUploadSessionRepository{db: db}
}

func (r *GormUploadSessionRepository) Create(_ context.Context, tx *gorm.DB, session *models.UploadSession) error {
	return useTx(r.db, tx).Create(session).Error
}

func (r *GormUploadSessionRepository) GetBySessionID(_ context.Context, tx *gorm.DB, sessionID string) (models.UploadSession, error) {
	var session models.UploadSession
	err := useTx(r.db, tx).Where("session_id = ?", sessionID).First(&session).Error
	return session, err
}

func (r *GormUploadSessionRepository) UpdateStatus(_ context.Context, tx *gorm.DB, sessionID string, status string) error {
	return useTx(r.db, tx).Model(&models.UploadSession{}).
		Where("session_id = ?", sessionID).
		Update("status", status).Error
}

func (r *GormUploadSessionRepository) DeleteByID(_ context.Context, tx *gorm.DB, id uint) error {
	return useTx(r.db, tx).Delete(&models.UploadSession{}, id).Error
}

func (r *GormUploadSessionRepository) ListExpired(_ context.Context, tx *gorm.DB, now time.Time) ([]models.UploadSession, error) {
	var sessions []models.UploadSession
	err := useTx(r.db, tx).
		Where("expires_at < ? AND status != ?", now, models.SessionCompleted).
		Find(&sessions).Error
	return sessions, err
}
