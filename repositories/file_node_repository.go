package repositories

import (
	"context"

	"skystore/models"

	"gorm.io/gorm"
)

type GormFileNodeRepository struct {
	db *gorm.DB
}

func NewGormFileNodeRepository(db *gorm.DB) *GormFileNodeRepository {
	return &GormFileNodeRepository{db: db}
}

func (r *GormFileNodeRepository) Create(_ context.Context, tx *gorm.DB, node *models.FileNode) error {
	return useTx(r.db, tx).Create(node).Error
}

func (r *GormFileNodeRepository) GetByID(_ context.Context, tx *gorm.DB, id string) (models.FileNode, error) {
	var node models.FileNode
	err := useTx(r.db, tx).Where("id = ?", id).First(&node).Error
	return node, err
}

func (r *GormFileNodeRepository) ListChildren(_ context.Context, tx *gorm.DB, in ListChildrenInput) ([]models.FileNode, error) {
	q := useTx(r.db, tx).
		Where("owner_type = ? AND owner_id = ?", in.OwnerType, in.OwnerID)
	if in.ParentID == nil {
		q = q.Where("parent_id IS NULL")
	} else {
		q = q.Where("parent_id = ?", *in.ParentID)
	}
	if len(in.Statuses) > 0 {
		q = q.Where("status IN ?", in.Statuses)
	}

	var nodes []models.FileNode
	err := q.Order("is_folder DESC, name ASC").Find(&nodes).Error
	return nodes, err
}

func (r *GormFileNodeRepository) ListByStatus(_ context.Context, tx *gorm.DB, status string) ([]models.FileNode, error) {
	var nodes []models.FileNode
	err := useTx(r.db, tx).
		Where("status = ? AND is_folder = ?", status, false).
		Order("created_at ASC").
		Find(&nodes).Error
	return nodes, err
}

func (r *GormFileNodeRepository) CountChildren(_ context.Context, tx *gorm.DB, parentID string) (int64, error) {
	var count int64
	err := useTx(r.db, tx).Model(&models.FileNode{}).
		Where("parent_id = ?", parentID).
		Count(&count).Error
	return count, err
}

func (r *GormFileNodeRepository) UpdateByID(_ context.Context, tx *gorm.DB, id string, updates map[string]interface{}) error {
	return useTx(r.db, tx).Model(&models.FileNode{}).Where("id = ?", id).Updates(updates).Error
}

func (r *GormFileNodeRepository) DeleteByID(_ context.Context, tx *gorm.DB, id string) error {
	return useTx(r.db, tx).Where("id = ?", id).Delete(&models.FileNode{}).Error
}

func (r *GormFileNodeRepository) FindApprovedByHashAndSize(_ context.Context, tx *gorm.DB, hash string, size int64) (models.FileNode, error) {
	var node models.FileNode
	err := useTx(r.db, tx).
		Where("content_hash = ? AND size = ? AND is_folder = ? AND status = ?",
			hash, size, false, models.StatusApproved).
		First(&node).Error
	return node, err
}

func (r *GormFileNodeRepository) SumSizeBySpace(_ context.Context, tx *gorm.DB, ownerType models.Space) (int64, error) {
	var total int64
	err := useTx(r.db, tx).Model(&models.FileNode{}).
		Where("owner_type = ? AND status IN ?",
			ownerType, []string{models.StatusApproved, models.StatusPending}).
		Select("COALESCE(SUM(size), 0)").
		Scan(&total).Error
	return total, err
}
