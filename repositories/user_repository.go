package repositories

import (
	"context"

	"skystore/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) CountByUsername(_ context.Context, username string) (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error
	return count, err
}

func (r *GormUserRepository) CountByEmail(_ context.Context, email string) (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error
	return count, err
}

func (r *GormUserRepository) Create(_ context.Context, tx *gorm.DB, user *models.User) error {
	return useTx(r.db, tx).Create(user).Error
}

func (r *GormUserRepository) GetByUsername(_ context.Context, tx *gorm.DB, username string) (models.User, error) {
	var user models.User
	err := useTx(r.db, tx).Where("username = ?", username).First(&user).Error
	return user, err
}

func (r *GormUserRepository) GetByID(_ context.Context, tx *gorm.DB, userID uint) (models.User, error) {
	var user models.User
	err := useTx(r.db, tx).First(&user, userID).Error
	return user, err
}

func (r *GormUserRepository) GetByIDForUpdate(_ context.Context, tx *gorm.DB, userID uint) (models.User, error) {
	var user models.User
	err := useTx(r.db, tx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, userID).Error
	return user, err
}

func (r *GormUserRepository) ListByRole(_ context.Context, tx *gorm.DB, role string, offset int, limit int) ([]models.User, error) {
	var users []models.User
	err := useTx(r.db, tx).Where("role = ?", role).Offset(offset).Limit(limit).Find(&users).Error
	return users, err
}

func (r *GormUserRepository) UpdateByID(_ context.Context, tx *gorm.DB, userID uint, updates map[string]interface{}) error {
	return useTx(r.db, tx).Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error
}

func (r *GormUserRepository) AddUsedStorage(_ context.Context, tx *gorm.DB, userID uint, delta int64) error {
	if delta == 0 {
		return nil
	}
	return useTx(r.db, tx).Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("used_storage", gorm.Expr("used_storage + ?", delta)).Error
}

func (r *GormUserRepository) SubUsedStorage(_ context.Context, tx *gorm.DB, userID uint, delta int64) error {
	if delta <= 0 {
		return nil
	}
	return useTx(r.db, tx).Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("used_storage", gorm.Expr("GREATEST(used_storage - ?, 0)", delta)).Error
}
