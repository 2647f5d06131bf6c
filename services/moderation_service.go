package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"skystore/logger"
	"skystore/models"
	"skystore/repositories"

	"gorm.io/gorm"
)

// ModerationService gates public-space uploads. Files enter the queue as
// pending, and only ever leave it to approved or rejected; neither transition
// can be reversed.
type ModerationService interface {
	ListPending(ctx context.Context, admin models.Principal) ([]models.FileNode, error)
	Approve(ctx context.Context, admin models.Principal, fileID string) (models.FileNode, error)
	Reject(ctx context.Context, admin models.Principal, fileID string) (models.FileNode, error)
}

type moderationService struct {
	txManager TxManager
	nodes     repositories.FileNodeRepository
	blobs     repositories.BlobRepository
	quota     QuotaService
}

func NewModerationService(
	txManager TxManager,
	nodes repositories.FileNodeRepository,
	blobs repositories.BlobRepository,
	quota QuotaService,
) ModerationService {
	return &moderationService{txManager: txManager, nodes: nodes, blobs: blobs, quota: quota}
}

func (s *moderationService) ListPending(ctx context.Context, admin models.Principal) ([]models.FileNode, error) {
	if !admin.IsAdmin() {
		return nil, newPermissionDenied("admin privileges required")
	}

	nodes, err := s.nodes.ListByStatus(ctx, nil, models.StatusPending)
	if err != nil {
		return nil, newInternal("failed to list pending files", err)
	}
	return nodes, nil
}

func (s *moderationService) Approve(ctx context.Context, admin models.Principal, fileID string) (models.FileNode, error) {
	if !admin.IsAdmin() {
		return models.FileNode{}, newPermissionDenied("admin privileges required")
	}

	node, err := s.loadPending(ctx, fileID)
	if err != nil {
		return models.FileNode{}, err
	}

	// Move the bytes out of the provisional area first; the record update
	// follows only once the blob is in place. A failed relocation leaves the
	// file pending.
	newPath := approvedPath(node.StoragePath)
	if newPath != node.StoragePath {
		if err := os.MkdirAll(filepath.Dir(newPath), 0o755); err != nil {
			return models.FileNode{}, newStorageIO("failed to create approved directory", err)
		}
		if err := os.Rename(node.StoragePath, newPath); err != nil {
			return models.FileNode{}, newStorageIO("failed to relocate file", err)
		}
	}

	err = s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.nodes.UpdateByID(ctx, tx, node.ID, map[string]interface{}{
			"status":       models.StatusApproved,
			"storage_path": newPath,
		}); err != nil {
			return err
		}
		if node.BlobID != nil {
			return s.blobs.UpdateByID(ctx, tx, *node.BlobID, map[string]interface{}{
				"storage_path": newPath,
			})
		}
		return nil
	})
	if err != nil {
		// Put the bytes back so the pending record stays truthful.
		if newPath != node.StoragePath {
			if renameErr := os.Rename(newPath, node.StoragePath); renameErr != nil {
				logger.Errorf("revert relocation of %s: %v", node.ID, renameErr)
			}
		}
		return models.FileNode{}, newInternal("failed to approve file", err)
	}

	node.Status = models.StatusApproved
	node.StoragePath = newPath
	return node, nil
}

// Reject refunds the uploader's quota and drops the blob reference; the node
// row is kept as a rejected record with its storage path cleared.
func (s *moderationService) Reject(ctx context.Context, admin models.Principal, fileID string) (models.FileNode, error) {
	if !admin.IsAdmin() {
		return models.FileNode{}, newPermissionDenied("admin privileges required")
	}

	node, err := s.loadPending(ctx, fileID)
	if err != nil {
		return models.FileNode{}, err
	}

	var orphanedPaths []string
	err = s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.nodes.UpdateByID(ctx, tx, node.ID, map[string]interface{}{
			"status":       models.StatusRejected,
			"storage_path": "",
			"blob_id":      nil,
		}); err != nil {
			return err
		}
		if err := s.quota.Release(ctx, tx, node.CreatedBy, node.Size); err != nil {
			return err
		}
		if node.BlobID == nil {
			return nil
		}
		if err := s.blobs.DecrementRefCount(ctx, tx, *node.BlobID); err != nil {
			return err
		}
		blob, err := s.blobs.GetByID(ctx, tx, *node.BlobID)
		if err != nil {
			return err
		}
		if blob.RefCount <= 0 {
			if err := s.blobs.DeleteByID(ctx, tx, blob.ID); err != nil {
				return err
			}
			orphanedPaths = append(orphanedPaths, blob.StoragePath)
			if blob.ThumbnailPath != "" {
				orphanedPaths = append(orphanedPaths, blob.ThumbnailPath)
			}
		}
		return nil
	})
	if err != nil {
		if appErr, ok := err.(*AppError); ok {
			return models.FileNode{}, appErr
		}
		return models.FileNode{}, newInternal("failed to reject file", err)
	}

	for _, path := range orphanedPaths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Errorf("remove rejected blob %s: %v", path, err)
		}
	}

	node.Status = models.StatusRejected
	node.StoragePath = ""
	node.BlobID = nil
	return node, nil
}

func (s *moderationService) loadPending(ctx context.Context, fileID string) (models.FileNode, error) {
	node, err := s.nodes.GetByID(ctx, nil, fileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.FileNode{}, newNotFound("file not found")
		}
		return models.FileNode{}, newInternal("failed to query file", err)
	}
	if node.IsFolder || node.Status != models.StatusPending {
		return models.FileNode{}, newInvalidState("file is not pending moderation")
	}
	return node, nil
}

func approvedPath(path string) string {
	sep := string(filepath.Separator)
	return strings.Replace(path, sep+"temp"+sep, sep+"approved"+sep, 1)
}
