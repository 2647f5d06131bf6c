package repositories

import (
	"context"
	"errors"

	"skystore/models"

	"gorm.io/gorm"
)

type GormQuotaRepository struct {
	db *gorm.DB
}

func NewGormQuotaRepository(db *gorm.DB) *GormQuotaRepository {
	return &GormQuotaRepository{db: db}
}

func (r *GormQuotaRepository) GetByType(_ context.Context, tx *gorm.DB, quotaType models.Space) (models.StorageQuota, error) {
	var quota models.StorageQuota
	err := useTx(r.db, tx).Where("quota_type = ?", quotaType).First(&quota).Error
	return quota, err
}

func (r *GormQuotaRepository) Upsert(_ context.Context, tx *gorm.DB, quotaType models.Space, limit int64, updatedBy uint) (models.StorageQuota, error) {
	db := useTx(r.db, tx)

	var quota models.StorageQuota
	err := db.Where("quota_type = ?", quotaType).First(&quota).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		quota = models.StorageQuota{QuotaType: quotaType, QuotaLimit: limit, UpdatedBy: updatedBy}
		if err := db.Create(&quota).Error; err != nil {
			return models.StorageQuota{}, err
		}
		return quota, nil
	}
	if err != nil {
		return models.StorageQuota{}, err
	}

	if err := db.Model(&quota).Updates(map[string]interface{}{
		"quota_limit": limit,
		"updated_by":  updatedBy,
	}).Error; err != nil {
		return models.StorageQuota{}, err
	}
	quota.QuotaLimit = limit
	quota.UpdatedBy = updatedBy
	return quota, nil
}
