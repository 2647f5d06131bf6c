package repositories

import (
	"context"
	"time"

	"skystore/models"

	"gorm.io/gorm"
)

type TxManager interface {
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type UserRepository interface {
	CountByUsername(ctx context.Context, username string) (int64, error)
	CountByEmail(ctx context.Context, email string) (int64, error)
	Create(ctx context.Context, tx *gorm.DB, user *models.User) error
	GetByUsername(ctx context.Context, tx *gorm.DB, username string) (models.User, error)
	GetByID(ctx context.Context, tx *gorm.DB, userID uint) (models.User, error)
	// GetByIDForUpdate takes a row lock so that concurrent quota
	// reservations for the same user serialize.
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, userID uint) (models.User, error)
	ListByRole(ctx context.Context, tx *gorm.DB, role string, offset int, limit int) ([]models.User, error)
	UpdateByID(ctx context.Context, tx *gorm.DB, userID uint, updates map[string]interface{}) error
	AddUsedStorage(ctx context.Context, tx *gorm.DB, userID uint, delta int64) error
	SubUsedStorage(ctx context.Context, tx *gorm.DB, userID uint, delta int64) error
}

type QuotaRepository interface {
	GetByType(ctx context.Context, tx *gorm.DB, quotaType models.Space) (models.StorageQuota, error)
	Upsert(ctx context.Context, tx *gorm.DB, quotaType models.Space, limit int64, updatedBy uint) (models.StorageQuota, error)
}

type ListChildrenInput struct {
	OwnerType models.Space
	OwnerID   uint
	ParentID  *string
	// Statuses restricts visibility; empty means every status.
	Statuses []string
}

type FileNodeRepository interface {
	Create(ctx context.Context, tx *gorm.DB, node *models.FileNode) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (models.FileNode, error)
	ListChildren(ctx context.Context, tx *gorm.DB, in ListChildrenInput) ([]models.FileNode, error)
	ListByStatus(ctx context.Context, tx *gorm.DB, status string) ([]models.FileNode, error)
	CountChildren(ctx context.Context, tx *gorm.DB, parentID string) (int64, error)
	UpdateByID(ctx context.Context, tx *gorm.DB, id string, updates map[string]interface{}) error
	DeleteByID(ctx context.Context, tx *gorm.DB, id string) error
	// FindApprovedByHashAndSize backs the dedup lookup: an approved,
	// non-folder node whose content hash and size both match.
	FindApprovedByHashAndSize(ctx context.Context, tx *gorm.DB, hash string, size int64) (models.FileNode, error)
	// SumSizeBySpace totals approved and pending node sizes across an entire
	// space for shared-quota checks. Public nodes keep per-uploader owner ids,
	// so the sum must ignore owner_id.
	SumSizeBySpace(ctx context.Context, tx *gorm.DB, ownerType models.Space) (int64, error)
}

type BlobRepository interface {
	Create(ctx context.Context, tx *gorm.DB, blob *models.Blob) error
	GetByID(ctx context.Context, tx *gorm.DB, blobID uint) (models.Blob, error)
	IncrementRefCount(ctx context.Context, tx *gorm.DB, blobID uint) error
	DecrementRefCount(ctx context.Context, tx *gorm.DB, blobID uint) error
	UpdateByID(ctx context.Context, tx *gorm.DB, blobID uint, updates map[string]interface{}) error
	DeleteByID(ctx context.Context, tx *gorm.DB, blobID uint) error
}

type UploadSessionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, session *models.UploadSession) error
	GetBySessionID(ctx context.Context, tx *gorm.DB, sessionID string) (models.UploadSession, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, sessionID string, status string) error
	DeleteByID(ctx context.Context, tx *gorm.DB, id uint) error
	ListExpired(ctx context.Context, tx *gorm.DB, now time.Time) ([]models.UploadSession, error)
}

// ChunkProgressRepository mirrors received chunk indices in a fast store.
// Probe and status answers read the mirror first and fall back to scanning
// the staging directory when it is empty or unavailable.
type ChunkProgressRepository interface {
	AddChunk(ctx context.Context, sessionID string, index int, expireSeconds int) error
	PresentCount(ctx context.Context, sessionID string) (int64, error)
	PresentIndices(ctx context.Context, sessionID string) ([]int, error)
	Clear(ctx context.Context, sessionID string) error
}

type Container struct {
	TxManager     TxManager
	Users         UserRepository
	Quotas        QuotaRepository
	Nodes         FileNodeRepository
	Blobs         BlobRepository
	Sessions      UploadSessionRepository
	ChunkProgress ChunkProgressRepository
}
