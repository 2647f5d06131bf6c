package repositories

import (
	"context"

	"skystore/models"

	"gorm.io/gorm"
)

type GormBlobRepository struct {
	db *gorm.DB
}

func NewGormBlobRepository(db *gorm.DB) *GormBlobRepository {
	return &GormBlobRepository{db: db}
}

func (r *GormBlobRepository) Create(_ context.Context, tx *gorm.DB, blob *models.Blob) error {
	return useTx(r.db, tx).Create(blob).Error
}

func (r *GormBlobRepository) GetByID(_ context.Context, tx *gorm.DB, blobID uint) (models.Blob, error) {
	var blob models.Blob
	err := useTx(r.db, tx).First(&blob, blobID).Error
	return blob, err
}

func (r *GormBlobRepository) IncrementRefCount(_ context.Context, tx *gorm.DB, blobID uint) error {
	return useTx(r.db, tx).Model(&models.Blob{}).
		Where("id = ?", blobID).
		UpdateColumn("ref_count", gorm.Expr("ref_count + 1")).Error
}

func (r *GormBlobRepository) DecrementRefCount(_ context.Context, tx *gorm.DB, blobID uint) error {
	return useTx(r.db, tx).Model(&models.Blob{}).
		Where("id = ? AND ref_count > 0", blobID).
		UpdateColumn("ref_count", gorm.Expr("ref_count - 1")).Error
}

func (r *GormBlobRepository) UpdateByID(_ context.Context, tx *gorm.DB, blobID uint, updates map[string]interface{}) error {
	return useTx(r.db, tx).Model(&models.Blob{}).Where("id = ?", blobID).Updates(updates).Error
}

func (r *GormBlobRepository) DeleteByID(_ context.Context, tx *gorm.DB, blobID uint) error {
	return useTx(r.db, tx).Delete(&models.Blob{}, blobID).Error
}
