package services

import (
	"context"
	"errors"
	"math"

	"skystore/models"
	"skystore/repositories"

	"gorm.io/gorm"
)

type UsageOutput struct {
	Used       int64   `json:"used"`
	Limit      int64   `json:"limit"`
	Percentage float64 `json:"percentage"`
}

// QuotaService is the single owner of used-storage accounting. Reserve and
// Release are the only code paths that mutate User.UsedStorage.
type QuotaService interface {
	// Reserve checks and charges the user's personal quota, and for shared
	// spaces also checks the space ceiling, as one atomic unit. It must be
	// called inside the transaction that commits the write it pays for; the
	// user row is locked so concurrent reservations for the same user
	// serialize.
	Reserve(ctx context.Context, tx *gorm.DB, userID uint, size int64, space models.Space) error
	// Release refunds previously reserved bytes, floored at zero.
	Release(ctx context.Context, tx *gorm.DB, userID uint, size int64) error
	SetLimit(ctx context.Context, admin models.Principal, quotaType models.Space, limit int64) (models.StorageQuota, error)
	GetUsage(ctx context.Context, userID uint) (UsageOutput, error)
	DefaultUserQuota(ctx context.Context, fallback int64) int64
}

type quotaService struct {
	users  repositories.UserRepository
	quotas repositories.QuotaRepository
	nodes  repositories.FileNodeRepository
}

func NewQuotaService(
	users repositories.UserRepository,
	quotas repositories.QuotaRepository,
	nodes repositories.FileNodeRepository,
) QuotaService {
	return &quotaService{users: users, quotas: quotas, nodes: nodes}
}

func (s *quotaService) Reserve(ctx context.Context, tx *gorm.DB, userID uint, size int64, space models.Space) error {
	if size < 0 {
		return newBadRequest("reservation size cannot be negative")
	}

	user, err := s.users.GetByIDForUpdate(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newNotFound("user not found")
		}
		return newInternal("failed to query user", err)
	}

	if user.UsedStorage+size > user.StorageQuota {
		return newQuotaExceeded("personal storage quota exceeded", user.UsedStorage, user.StorageQuota, size)
	}

	if space == models.SpacePublic || space == models.SpaceGroup {
		if err := s.checkSharedQuota(ctx, tx, space, size); err != nil {
			return err
		}
	}

	if err := s.users.AddUsedStorage(ctx, tx, userID, size); err != nil {
		return newInternal("failed to update storage usage", err)
	}
	return nil
}

// checkSharedQuota compares the current total across a shared space, pending
// files included, against the configured ceiling. The sum covers the whole
// space regardless of which user uploaded each node; public nodes in
// particular keep their uploader's id as owner_id. A missing quota row means
// the space is uncapped.
func (s *quotaService) checkSharedQuota(ctx context.Context, tx *gorm.DB, space models.Space, size int64) error {
	quota, err := s.quotas.GetByType(ctx, tx, space)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return newInternal("failed to query shared quota", err)
	}

	usage, err := s.nodes.SumSizeBySpace(ctx, tx, space)
	if err != nil {
		return newInternal("failed to sum shared usage", err)
	}

	if usage+size > quota.QuotaLimit {
		return newQuotaExceeded(string(space)+" storage quota exceeded", usage, quota.QuotaLimit, size)
	}
	return nil
}

func (s *quotaService) Release(ctx context.Context, tx *gorm.DB, userID uint, size int64) error {
	if size <= 0 {
		return nil
	}
	if err := s.users.SubUsedStorage(ctx, tx, userID, size); err != nil {
		return newInternal("failed to release storage usage", err)
	}
	return nil
}

func (s *quotaService) SetLimit(ctx context.Context, admin models.Principal, quotaType models.Space, limit int64) (models.StorageQuota, error) {
	if !admin.IsAdmin() {
		return models.StorageQuota{}, newPermissionDenied("admin privileges required")
	}
	if !quotaType.Valid() {
		return models.StorageQuota{}, newBadRequest("invalid quota type")
	}
	if limit <= 0 {
		return models.StorageQuota{}, newBadRequest("quota limit must be positive")
	}

	quota, err := s.quotas.Upsert(ctx, nil, quotaType, limit, admin.ID)
	if err != nil {
		return models.StorageQuota{}, newInternal("failed to save quota", err)
	}
	return quota, nil
}

func (s *quotaService) GetUsage(ctx context.Context, userID uint) (UsageOutput, error) {
	user, err := s.users.GetByID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return UsageOutput{}, newNotFound("user not found")
		}
		return UsageOutput{}, newInternal("failed to query user", err)
	}

	out := UsageOutput{Used: user.UsedStorage, Limit: user.StorageQuota}
	if user.StorageQuota > 0 {
		out.Percentage = math.Round(float64(user.UsedStorage)/float64(user.StorageQuota)*10000) / 100
	}
	return out, nil
}

// DefaultUserQuota resolves the quota for new accounts: the admin-managed
// "user" quota row when present, the configured fallback otherwise.
func (s *quotaService) DefaultUserQuota(ctx context.Context, fallback int64) int64 {
	quota, err := s.quotas.GetByType(ctx, nil, models.SpaceUser)
	if err != nil || quota.QuotaLimit <= 0 {
		return fallback
	}
	return quota.QuotaLimit
}
