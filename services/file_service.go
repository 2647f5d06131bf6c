package services

import (
	"context"
	"errors"
	"os"
	"strings"

	"skystore/logger"
	"skystore/models"
	"skystore/repositories"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreateFolderInput struct {
	Name     string
	Space    models.Space
	ParentID *string
}

type SpaceRootOutput struct {
	Space models.Space `json:"space"`
	Name  string       `json:"name"`
}

type FileAccessOutput struct {
	Node         models.FileNode
	AbsPath      string
	ContentType  string
	DownloadName string
}

// FileService owns the FileNode lifecycle: the hierarchical namespace,
// ownership, moderation status and move semantics.
type FileService interface {
	CreateFolder(ctx context.Context, principal models.Principal, in CreateFolderInput) (models.FileNode, error)
	ListRoots(ctx context.Context, principal models.Principal) []SpaceRootOutput
	ListChildren(ctx context.Context, principal models.Principal, space models.Space, parentID *string) ([]models.FileNode, error)
	Move(ctx context.Context, principal models.Principal, nodeID string, targetParentID string) (models.FileNode, error)
	Delete(ctx context.Context, principal models.Principal, nodeID string) error
	GetDownloadInfo(ctx context.Context, principal models.Principal, nodeID string) (FileAccessOutput, error)
	GetThumbnailInfo(ctx context.Context, principal models.Principal, nodeID string) (FileAccessOutput, error)
}

type fileService struct {
	txManager TxManager
	nodes     repositories.FileNodeRepository
	blobs     repositories.BlobRepository
	quota     QuotaService
}

func NewFileService(
	txManager TxManager,
	nodes repositories.FileNodeRepository,
	blobs repositories.BlobRepository,
	quota QuotaService,
) FileService {
	return &fileService{txManager: txManager, nodes: nodes, blobs: blobs, quota: quota}
}

func (s *fileService) CreateFolder(ctx context.Context, principal models.Principal, in CreateFolderInput) (models.FileNode, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.FileNode{}, newBadRequest("folder name cannot be empty")
	}
	if !in.Space.Valid() {
		return models.FileNode{}, newBadRequest("invalid space type")
	}

	owner := models.OwnerFor(in.Space, principal.ID)
	if !CanAccess(principal, owner) {
		return models.FileNode{}, newPermissionDenied("no write access to this space")
	}

	if in.ParentID != nil {
		parent, err := s.nodes.GetByID(ctx, nil, *in.ParentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.FileNode{}, newNotFound("parent folder not found")
			}
			return models.FileNode{}, newInternal("failed to query parent folder", err)
		}
		if !parent.IsFolder {
			return models.FileNode{}, newNotFound("parent folder not found")
		}
		if !CanAccess(principal, parent.Owner()) {
			return models.FileNode{}, newPermissionDenied("no access to parent folder")
		}
		owner = parent.Owner()
	}

	// Folders carry no bytes and skip moderation.
	folder := models.FileNode{
		ID:        uuid.New().String(),
		Name:      sanitizeFilename(name),
		ParentID:  in.ParentID,
		IsFolder:  true,
		OwnerType: owner.Space,
		OwnerID:   owner.UserID,
		Status:    models.StatusApproved,
		CreatedBy: principal.ID,
	}
	if err := s.nodes.Create(ctx, nil, &folder); err != nil {
		return models.FileNode{}, newInternal("failed to create folder", err)
	}

	return folder, nil
}

// ListRoots returns the union of space roots visible to the principal. The
// roots are virtual; no folder row backs them.
func (s *fileService) ListRoots(_ context.Context, principal models.Principal) []SpaceRootOutput {
	roots := []SpaceRootOutput{
		{Space: models.SpacePublic, Name: "Public"},
	}
	if principal.Role == models.RoleMember || principal.Role == models.RoleAdmin {
		roots = append(roots, SpaceRootOutput{Space: models.SpaceGroup, Name: "Group"})
	}
	roots = append(roots, SpaceRootOutput{Space: models.SpaceUser, Name: "My Files"})
	return roots
}

func (s *fileService) ListChildren(ctx context.Context, principal models.Principal, space models.Space, parentID *string) ([]models.FileNode, error) {
	if !space.Valid() {
		return nil, newBadRequest("invalid space type")
	}

	owner := models.OwnerFor(space, principal.ID)
	if parentID != nil {
		parent, err := s.nodes.GetByID(ctx, nil, *parentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, newNotFound("parent folder not found")
			}
			return nil, newInternal("failed to query parent folder", err)
		}
		if !parent.IsFolder {
			return nil, newNotFound("parent folder not found")
		}
		if !CanAccess(principal, parent.Owner()) {
			return nil, newPermissionDenied("no access to this folder")
		}
		owner = parent.Owner()
	} else if !CanAccess(principal, owner) {
		return nil, newPermissionDenied("no access to this space")
	}

	// Pending and rejected entries stay invisible to everyone but admins.
	statuses := []string{models.StatusApproved}
	if principal.IsAdmin() {
		statuses = nil
	}

	nodes, err := s.nodes.ListChildren(ctx, nil, repositories.ListChildrenInput{
		OwnerType: owner.Space,
		OwnerID:   owner.UserID,
		ParentID:  parentID,
		Statuses:  statuses,
	})
	if err != nil {
		return nil, newInternal("failed to list folder contents", err)
	}
	return nodes, nil
}

func (s *fileService) Move(ctx context.Context, principal models.Principal, nodeID string, targetParentID string) (models.FileNode, error) {
	node, err := s.nodes.GetByID(ctx, nil, nodeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.FileNode{}, newNotFound("file or folder not found")
		}
		return models.FileNode{}, newInternal("failed to query file", err)
	}

	target, err := s.nodes.GetByID(ctx, nil, targetParentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.FileNode{}, newNotFound("target folder not found")
		}
		return models.FileNode{}, newInternal("failed to query target folder", err)
	}
	if !target.IsFolder {
		return models.FileNode{}, newNotFound("target folder not found")
	}

	if !CanAccess(principal, node.Owner()) {
		return models.FileNode{}, newPermissionDenied("no access to this file")
	}
	if !CanAccess(principal, target.Owner()) {
		return models.FileNode{}, newPermissionDenied("no access to target folder")
	}

	if node.IsFolder {
		if err := s.checkNoCycle(ctx, node.ID, target); err != nil {
			return models.FileNode{}, err
		}
	}

	if err := s.nodes.UpdateByID(ctx, nil, node.ID, map[string]interface{}{"parent_id": targetParentID}); err != nil {
		return models.FileNode{}, newInternal("failed to move file", err)
	}

	node.ParentID = &targetParentID
	return node, nil
}

// checkNoCycle rejects moving a folder into itself or any of its
// descendants by walking the target's ancestry to the space root.
func (s *fileService) checkNoCycle(ctx context.Context, movedID string, target models.FileNode) error {
	const maxDepth = 1024

	current := target
	for depth := 0; depth < maxDepth; depth++ {
		if current.ID == movedID {
			return newInvalidState("cannot move a folder into its own subtree")
		}
		if current.ParentID == nil {
			return nil
		}
		parent, err := s.nodes.GetByID(ctx, nil, *current.ParentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return newInternal("failed to walk folder ancestry", err)
		}
		current = parent
	}
	return newInvalidState("folder hierarchy is too deep")
}

func (s *fileService) Delete(ctx context.Context, principal models.Principal, nodeID string) error {
	node, err := s.nodes.GetByID(ctx, nil, nodeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newNotFound("file or folder not found")
		}
		return newInternal("failed to query file", err)
	}
	if !CanAccess(principal, node.Owner()) {
		return newPermissionDenied("no access to this file")
	}

	if node.IsFolder {
		count, err := s.nodes.CountChildren(ctx, nil, node.ID)
		if err != nil {
			return newInternal("failed to count folder contents", err)
		}
		if count > 0 {
			return newInvalidState("folder is not empty")
		}
		if err := s.nodes.DeleteByID(ctx, nil, node.ID); err != nil {
			return newInternal("failed to delete folder", err)
		}
		return nil
	}

	var orphanedPaths []string
	err = s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.nodes.DeleteByID(ctx, tx, node.ID); err != nil {
			return err
		}
		// Rejected files were refunded at rejection time.
		if node.Status != models.StatusRejected {
			if err := s.quota.Release(ctx, tx, node.CreatedBy, node.Size); err != nil {
				return err
			}
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
			return appErr
		}
		return newInternal("failed to delete file", err)
	}

	for _, path := range orphanedPaths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Errorf("remove orphaned blob %s: %v", path, err)
		}
	}
	return nil
}

func (s *fileService) GetDownloadInfo(ctx context.Context, principal models.Principal, nodeID string) (FileAccessOutput, error) {
	node, err := s.nodes.GetByID(ctx, nil, nodeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return FileAccessOutput{}, newNotFound("file not found")
		}
		return FileAccessOutput{}, newInternal("failed to query file", err)
	}
	if node.IsFolder {
		return FileAccessOutput{}, newBadRequest("cannot download a folder")
	}
	if !CanAccess(principal, node.Owner()) {
		return FileAccessOutput{}, newPermissionDenied("no access to this file")
	}
	if node.Status != models.StatusApproved && !principal.IsAdmin() {
		return FileAccessOutput{}, newPermissionDenied("file is not approved")
	}
	if _, err := os.Stat(node.StoragePath); os.IsNotExist(err) {
		return FileAccessOutput{}, newNotFound("file not found in storage")
	}

	return FileAccessOutput{
		Node:         node,
		AbsPath:      node.StoragePath,
		ContentType:  node.ContentType,
		DownloadName: node.Name,
	}, nil
}

func (s *fileService) GetThumbnailInfo(ctx context.Context, principal models.Principal, nodeID string) (FileAccessOutput, error) {
	node, err := s.nodes.GetByID(ctx, nil, nodeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return FileAccessOutput{}, newNotFound("file not found")
		}
		return FileAccessOutput{}, newInternal("failed to query file", err)
	}
	if !CanAccess(principal, node.Owner()) {
		return FileAccessOutput{}, newPermissionDenied("no access to this file")
	}
	if node.Status != models.StatusApproved && !principal.IsAdmin() {
		return FileAccessOutput{}, newPermissionDenied("file is not approved")
	}
	if node.BlobID == nil {
		return FileAccessOutput{}, newNotFound("thumbnail not found")
	}

	blob, err := s.blobs.GetByID(ctx, nil, *node.BlobID)
	if err != nil {
		return FileAccessOutput{}, newInternal("failed to query blob", err)
	}
	if blob.ThumbnailPath == "" {
		return FileAccessOutput{}, newNotFound("thumbnail not found")
	}
	if _, err := os.Stat(blob.ThumbnailPath); os.IsNotExist(err) {
		return FileAccessOutput{}, newNotFound("thumbnail not found in storage")
	}

	return FileAccessOutput{Node: node, AbsPath: blob.ThumbnailPath, ContentType: "image/jpeg"}, nil
}
