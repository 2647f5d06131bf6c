package services

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"

	"skystore/config"
	"skystore/logger"
	"skystore/models"
	"skystore/repositories"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BeginUploadInput struct {
	FileName    string
	FileSize    int64
	FileMD5     string
	TotalChunks int
	Space       models.Space
	ParentID    *string
}

type BeginUploadOutput struct {
	SessionID      string `json:"session_id"`
	Dedup          bool   `json:"dedup"`
	PresentIndices []int  `json:"present_indices"`
	ChunkSize      int64  `json:"chunk_size"`
	TotalChunks    int    `json:"total_chunks"`
}

type PutChunkOutput struct {
	ChunkIndex    int   `json:"chunk_index"`
	ReceivedCount int64 `json:"received_count"`
	TotalChunks   int   `json:"total_chunks"`
}

type UploadStatusOutput struct {
	SessionID      string `json:"session_id"`
	FileName       string `json:"file_name"`
	FileSize       int64  `json:"file_size"`
	TotalChunks    int    `json:"total_chunks"`
	PresentIndices []int  `json:"present_indices"`
	Status         string `json:"status"`
}

// UploadService implements the chunked-upload protocol: session creation and
// resume probing, per-chunk staging, and the merge that turns staged chunks
// into a durable blob plus a committed FileNode. The session id is the md5 of
// the file content, supplied by the client; it doubles as the dedup key.
type UploadService interface {
	BeginOrProbe(ctx context.Context, principal models.Principal, in BeginUploadInput) (BeginUploadOutput, error)
	PutChunk(ctx context.Context, principal models.Principal, sessionID string, index int, chunk io.Reader) (PutChunkOutput, error)
	Status(ctx context.Context, principal models.Principal, sessionID string) (UploadStatusOutput, error)
	Complete(ctx context.Context, principal models.Principal, sessionID string) (models.FileNode, error)
}

type uploadService struct {
	cfg       *config.Config
	txManager TxManager
	users     repositories.UserRepository
	nodes     repositories.FileNodeRepository
	blobs     repositories.BlobRepository
	sessions  repositories.UploadSessionRepository
	progress  repositories.ChunkProgressRepository
	quota     QuotaService

	// one mutex per live session id; merges for the same session must not
	// overlap, merges for different sessions may.
	merges sync.Map
}

func NewUploadService(
	cfg *config.Config,
	txManager TxManager,
	users repositories.UserRepository,
	nodes repositories.FileNodeRepository,
	blobs repositories.BlobRepository,
	sessions repositories.UploadSessionRepository,
	progress repositories.ChunkProgressRepository,
	quota QuotaService,
) UploadService {
	return &uploadService{
		cfg:       cfg,
		txManager: txManager,
		users:     users,
		nodes:     nodes,
		blobs:     blobs,
		sessions:  sessions,
		progress:  progress,
		quota:     quota,
	}
}

var md5HexPattern = regexp.MustCompile(`^[0-9a-fA-F]{32}$`)

func (s *uploadService) BeginOrProbe(ctx context.Context, principal models.Principal, in BeginUploadInput) (BeginUploadOutput, error) {
	if !in.Space.Valid() {
		return BeginUploadOutput{}, newBadRequest("invalid space type")
	}
	if !md5HexPattern.MatchString(in.FileMD5) {
		return BeginUploadOutput{}, newBadRequest("file_md5 must be a 32-character hex digest")
	}
	if in.TotalChunks < 1 {
		return BeginUploadOutput{}, newBadRequest("total_chunks must be at least 1")
	}
	if in.FileSize < 0 {
		return BeginUploadOutput{}, newBadRequest("file_size cannot be negative")
	}
	if in.FileSize > s.cfg.Storage.MaxFileSize {
		return BeginUploadOutput{}, newBadRequest("file size exceeds the allowed maximum")
	}
	if !isFileExtensionAllowed(in.FileName, s.cfg.Storage.AllowedExtensions) {
		return BeginUploadOutput{}, newBadRequest("file type is not allowed")
	}
	if !CanAccess(principal, models.OwnerFor(in.Space, principal.ID)) {
		return BeginUploadOutput{}, newPermissionDenied("no write access to this space")
	}

	if err := s.validateParent(ctx, principal, in.Space, in.ParentID); err != nil {
		return BeginUploadOutput{}, err
	}

	// Fast-fail quota check. The authoritative reservation happens at merge
	// time under the row lock.
	user, err := s.users.GetByID(ctx, nil, principal.ID)
	if err != nil {
		return BeginUploadOutput{}, newInternal("failed to query user", err)
	}
	if user.UsedStorage+in.FileSize > user.StorageQuota {
		return BeginUploadOutput{}, newQuotaExceeded("personal storage quota exceeded", user.UsedStorage, user.StorageQuota, in.FileSize)
	}

	out := BeginUploadOutput{
		SessionID:      in.FileMD5,
		ChunkSize:      s.cfg.Storage.ChunkSize,
		TotalChunks:    in.TotalChunks,
		PresentIndices: []int{},
	}

	// Full dedup: an approved file with identical content already exists, so
	// the client can skip the transfer and finalize immediately.
	if _, err := s.nodes.FindApprovedByHashAndSize(ctx, nil, in.FileMD5, in.FileSize); err == nil {
		out.Dedup = true
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return BeginUploadOutput{}, newInternal("failed to check for duplicate content", err)
	}

	session, err := s.sessions.GetBySessionID(ctx, nil, in.FileMD5)
	if err == nil {
		if session.CreatedBy != principal.ID {
			return BeginUploadOutput{}, newPermissionDenied("upload session belongs to another user")
		}
		if session.Status != models.SessionUploading {
			return BeginUploadOutput{}, newInvalidState("upload session is already finalized")
		}
		out.TotalChunks = session.TotalChunks
		out.PresentIndices = s.presentIndices(ctx, session)
		return out, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return BeginUploadOutput{}, newInternal("failed to query upload session", err)
	}

	if out.Dedup {
		// No staging area needed; Complete will register against the
		// existing blob.
		session = models.UploadSession{
			SessionID:   in.FileMD5,
			CreatedBy:   principal.ID,
			Space:       in.Space,
			ParentID:    in.ParentID,
			FileName:    sanitizeFilename(in.FileName),
			FileSize:    in.FileSize,
			FileMD5:     in.FileMD5,
			TotalChunks: in.TotalChunks,
			Status:      models.SessionUploading,
			ExpiresAt:   s.sessionDeadline(),
		}
		if err := s.sessions.Create(ctx, nil, &session); err != nil {
			return BeginUploadOutput{}, newInternal("failed to create upload session", err)
		}
		return out, nil
	}

	tempDir := filepath.Join(s.cfg.Storage.ChunkTempRoot, in.FileMD5)
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return BeginUploadOutput{}, newStorageIO("failed to create staging directory", err)
	}

	session = models.UploadSession{
		SessionID:   in.FileMD5,
		CreatedBy:   principal.ID,
		Space:       in.Space,
		ParentID:    in.ParentID,
		FileName:    sanitizeFilename(in.FileName),
		FileSize:    in.FileSize,
		FileMD5:     in.FileMD5,
		TotalChunks: in.TotalChunks,
		Status:      models.SessionUploading,
		TempDir:     tempDir,
		ExpiresAt:   s.sessionDeadline(),
	}
	if err := s.sessions.Create(ctx, nil, &session); err != nil {
		return BeginUploadOutput{}, newInternal("failed to create upload session", err)
	}

	return out, nil
}

func (s *uploadService) PutChunk(ctx context.Context, principal models.Principal, sessionID string, index int, chunk io.Reader) (PutChunkOutput, error) {
	session, err := s.loadOwnedSession(ctx, principal, sessionID)
	if err != nil {
		return PutChunkOutput{}, err
	}
	if session.Status != models.SessionUploading {
		return PutChunkOutput{}, newInvalidState("upload session is already finalized")
	}
	if index < 1 || index > session.TotalChunks {
		return PutChunkOutput{}, newBadRequest(fmt.Sprintf("chunk index must be between 1 and %d", session.TotalChunks))
	}
	if session.TempDir == "" {
		return PutChunkOutput{}, newInvalidState("session has no staging area; content is already known")
	}

	if err := os.MkdirAll(session.TempDir, 0o755); err != nil {
		return PutChunkOutput{}, newStorageIO("failed to create staging directory", err)
	}

	// A duplicate index simply overwrites the previous payload.
	chunkPath := chunkFilePath(session.TempDir, index)
	dst, err := os.Create(chunkPath)
	if err != nil {
		return PutChunkOutput{}, newStorageIO("failed to create chunk file", err)
	}
	if _, err := io.Copy(dst, chunk); err != nil {
		dst.Close()
		_ = os.Remove(chunkPath)
		return PutChunkOutput{}, newStorageIO("failed to write chunk", err)
	}
	_ = dst.Close()

	if err := s.progress.AddChunk(ctx, sessionID, index, s.cfg.Redis.SessionExpire); err != nil {
		logger.Errorf("record chunk progress for %s: %v", sessionID, err)
	}

	count, err := s.progress.PresentCount(ctx, sessionID)
	if err != nil {
		count = int64(len(s.presentOnDisk(session.TempDir)))
	}

	return PutChunkOutput{ChunkIndex: index, ReceivedCount: count, TotalChunks: session.TotalChunks}, nil
}

func (s *uploadService) Status(ctx context.Context, principal models.Principal, sessionID string) (UploadStatusOutput, error) {
	session, err := s.loadOwnedSession(ctx, principal, sessionID)
	if err != nil {
		return UploadStatusOutput{}, err
	}

	return UploadStatusOutput{
		SessionID:      session.SessionID,
		FileName:       session.FileName,
		FileSize:       session.FileSize,
		TotalChunks:    session.TotalChunks,
		PresentIndices: s.presentIndices(ctx, session),
		Status:         session.Status,
	}, nil
}

func (s *uploadService) Complete(ctx context.Context, principal models.Principal, sessionID string) (models.FileNode, error) {
	mu := s.mergeLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	session, err := s.loadOwnedSession(ctx, principal, sessionID)
	if err != nil {
		return models.FileNode{}, err
	}
	if session.Status != models.SessionUploading {
		return models.FileNode{}, newInvalidState("upload session is already finalized")
	}

	if err := s.validateParent(ctx, principal, session.Space, session.ParentID); err != nil {
		return models.FileNode{}, err
	}

	// Dedup short-circuit: register a new node against the existing blob
	// without touching any chunk payloads.
	if existing, err := s.nodes.FindApprovedByHashAndSize(ctx, nil, session.FileMD5, session.FileSize); err == nil && existing.BlobID != nil {
		return s.registerDuplicate(ctx, principal, session, existing)
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.FileNode{}, newInternal("failed to check for duplicate content", err)
	}

	present := s.presentOnDisk(session.TempDir)
	missing := missingIndices(present, session.TotalChunks)
	if len(missing) > 0 {
		// Partial state is kept so the client can retry just the gaps.
		return models.FileNode{}, newIncompleteUpload(missing)
	}

	node, err := s.mergeAndCommit(ctx, principal, session)
	if err != nil {
		return models.FileNode{}, err
	}

	// Exactly-once purge of the staging area and session metadata.
	if session.TempDir != "" {
		_ = os.RemoveAll(session.TempDir)
	}
	_ = s.progress.Clear(ctx, sessionID)
	if err := s.sessions.DeleteByID(ctx, nil, session.ID); err != nil {
		logger.Errorf("delete finalized session %s: %v", sessionID, err)
	}

	return node, nil
}

// mergeAndCommit concatenates the staged chunks into a durable blob, then
// reserves quota and persists the blob and node records in one transaction.
// Any failure after the blob is written triggers a compensating delete.
func (s *uploadService) mergeAndCommit(ctx context.Context, principal models.Principal, session models.UploadSession) (models.FileNode, error) {
	finalDir := s.cfg.Storage.SpaceRoot(string(session.Space), principal.ID)
	if session.Space == models.SpacePublic {
		// Public uploads await moderation in a provisional area.
		finalDir = filepath.Join(finalDir, "temp")
	}
	if err := os.MkdirAll(finalDir, 0o755); err != nil {
		return models.FileNode{}, newStorageIO("failed to create storage directory", err)
	}

	fileID := uuid.New().String()
	storageName := fileID + "_" + session.FileName
	finalPath := filepath.Join(finalDir, storageName)

	written, actualMD5, err := s.concatChunks(session, finalPath)
	if err != nil {
		_ = os.Remove(finalPath)
		return models.FileNode{}, err
	}

	if actualMD5 != session.FileMD5 || written != session.FileSize {
		_ = os.Remove(finalPath)
		s.purgeSession(ctx, session)
		return models.FileNode{}, newIntegrityFailure("merged content does not match the declared hash and size")
	}

	var thumbnailPath string
	if isImageFile(session.FileName) {
		thumbnailPath = filepath.Join(s.cfg.Storage.ThumbnailRoot, fmt.Sprintf("%d", principal.ID), fileID+"_thumb.jpg")
		if err := generateThumbnail(finalPath, thumbnailPath, &s.cfg.Thumbnail); err != nil {
			logger.Debugf("thumbnail for %s: %v", fileID, err)
			thumbnailPath = ""
		}
	}

	owner := models.OwnerFor(session.Space, principal.ID)
	blob := models.Blob{
		StoragePath:   finalPath,
		ThumbnailPath: thumbnailPath,
		Size:          written,
		ContentHash:   actualMD5,
		RefCount:      1,
	}
	node := models.FileNode{
		ID:          fileID,
		Name:        session.FileName,
		ParentID:    session.ParentID,
		IsFolder:    false,
		OwnerType:   owner.Space,
		OwnerID:     owner.UserID,
		StoragePath: finalPath,
		Size:        written,
		ContentType: getMimeType(filepath.Ext(session.FileName)),
		ContentHash: actualMD5,
		Status:      statusForSpace(session.Space),
		CreatedBy:   principal.ID,
	}

	err = s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.quota.Reserve(ctx, tx, principal.ID, written, session.Space); err != nil {
			return err
		}
		if err := s.blobs.Create(ctx, tx, &blob); err != nil {
			return err
		}
		node.BlobID = &blob.ID
		if err := s.nodes.Create(ctx, tx, &node); err != nil {
			return err
		}
		return s.sessions.UpdateStatus(ctx, tx, session.SessionID, models.SessionCompleted)
	})
	if err != nil {
		_ = os.Remove(finalPath)
		if thumbnailPath != "" {
			_ = os.Remove(thumbnailPath)
		}
		if IsKind(err, KindQuotaExceeded) {
			// The session cannot succeed with this content; abort it.
			s.purgeSession(ctx, session)
			return models.FileNode{}, err
		}
		if appErr, ok := err.(*AppError); ok {
			return models.FileNode{}, appErr
		}
		return models.FileNode{}, newInternal("failed to commit upload", err)
	}

	return node, nil
}

func (s *uploadService) registerDuplicate(ctx context.Context, principal models.Principal, session models.UploadSession, existing models.FileNode) (models.FileNode, error) {
	owner := models.OwnerFor(session.Space, principal.ID)
	node := models.FileNode{
		ID:          uuid.New().String(),
		Name:        session.FileName,
		ParentID:    session.ParentID,
		IsFolder:    false,
		OwnerType:   owner.Space,
		OwnerID:     owner.UserID,
		BlobID:      existing.BlobID,
		StoragePath: existing.StoragePath,
		Size:        existing.Size,
		ContentType: getMimeType(filepath.Ext(session.FileName)),
		ContentHash: existing.ContentHash,
		Status:      statusForSpace(session.Space),
		CreatedBy:   principal.ID,
	}

	err := s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.quota.Reserve(ctx, tx, principal.ID, existing.Size, session.Space); err != nil {
			return err
		}
		if err := s.blobs.IncrementRefCount(ctx, tx, *existing.BlobID); err != nil {
			return err
		}
		if err := s.nodes.Create(ctx, tx, &node); err != nil {
			return err
		}
		return s.sessions.UpdateStatus(ctx, tx, session.SessionID, models.SessionCompleted)
	})
	if err != nil {
		if IsKind(err, KindQuotaExceeded) {
			s.purgeSession(ctx, session)
			return models.FileNode{}, err
		}
		if appErr, ok := err.(*AppError); ok {
			return models.FileNode{}, appErr
		}
		return models.FileNode{}, newInternal("failed to register duplicate upload", err)
	}

	s.purgeSession(ctx, session)
	return node, nil
}

// concatChunks streams chunks 1..N in ascending order into dstPath, counting
// bytes and hashing in a single pass.
func (s *uploadService) concatChunks(session models.UploadSession, dstPath string) (int64, string, error) {
	dst, err := os.Create(dstPath)
	if err != nil {
		return 0, "", newStorageIO("failed to create target file", err)
	}
	defer dst.Close()

	hasher := md5.New()
	sink := io.MultiWriter(dst, hasher)

	var written int64
	for i := 1; i <= session.TotalChunks; i++ {
		src, err := os.Open(chunkFilePath(session.TempDir, i))
		if err != nil {
			return 0, "", newStorageIO(fmt.Sprintf("failed to read chunk %d", i), err)
		}
		n, err := io.Copy(sink, src)
		src.Close()
		if err != nil {
			return 0, "", newStorageIO(fmt.Sprintf("failed to merge chunk %d", i), err)
		}
		written += n
	}

	return written, hex.EncodeToString(hasher.Sum(nil)), nil
}

func (s *uploadService) validateParent(ctx context.Context, principal models.Principal, space models.Space, parentID *string) error {
	if parentID == nil {
		return nil
	}
	parent, err := s.nodes.GetByID(ctx, nil, *parentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newNotFound("parent folder not found")
		}
		return newInternal("failed to query parent folder", err)
	}
	if !parent.IsFolder {
		return newNotFound("parent folder not found")
	}
	if parent.OwnerType != space {
		return newBadRequest("parent folder belongs to a different space")
	}
	if !CanAccess(principal, parent.Owner()) {
		return newPermissionDenied("no access to parent folder")
	}
	return nil
}

func (s *uploadService) loadOwnedSession(ctx context.Context, principal models.Principal, sessionID string) (models.UploadSession, error) {
	session, err := s.sessions.GetBySessionID(ctx, nil, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.UploadSession{}, newNotFound("upload session not found")
		}
		return models.UploadSession{}, newInternal("failed to query upload session", err)
	}
	if session.CreatedBy != principal.ID && !principal.IsAdmin() {
		return models.UploadSession{}, newPermissionDenied("upload session belongs to another user")
	}
	return session, nil
}

// purgeSession removes every trace of a session: staging directory, progress
// set and the session row.
func (s *uploadService) purgeSession(ctx context.Context, session models.UploadSession) {
	if session.TempDir != "" {
		_ = os.RemoveAll(session.TempDir)
	}
	_ = s.progress.Clear(ctx, session.SessionID)
	if err := s.sessions.DeleteByID(ctx, nil, session.ID); err != nil {
		logger.Errorf("purge session %s: %v", session.SessionID, err)
	}
}

func (s *uploadService) mergeLock(sessionID string) *sync.Mutex {
	v, _ := s.merges.LoadOrStore(sessionID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// presentIndices answers probe and status requests from the Redis mirror when
// it has entries, and scans the staging directory otherwise. The merge itself
// always trusts the disk.
func (s *uploadService) presentIndices(ctx context.Context, session models.UploadSession) []int {
	indices, err := s.progress.PresentIndices(ctx, session.SessionID)
	if err == nil && len(indices) > 0 {
		sort.Ints(indices)
		return indices
	}
	if err != nil {
		logger.Debugf("chunk progress lookup for %s: %v", session.SessionID, err)
	}
	return s.presentOnDisk(session.TempDir)
}

func (s *uploadService) presentOnDisk(tempDir string) []int {
	if tempDir == "" {
		return []int{}
	}
	entries, err := os.ReadDir(tempDir)
	if err != nil {
		return []int{}
	}

	indices := make([]int, 0, len(entries))
	for _, entry := range entries {
		var idx int
		if _, err := fmt.Sscanf(entry.Name(), "chunk_%d", &idx); err == nil && idx > 0 {
			indices = append(indices, idx)
		}
	}
	sort.Ints(indices)
	return indices
}

func (s *uploadService) sessionDeadline() time.Time {
	return time.Now().Add(time.Duration(s.cfg.Storage.SessionTTLHours) * time.Hour)
}

func chunkFilePath(tempDir string, index int) string {
	return filepath.Join(tempDir, fmt.Sprintf("chunk_%d", index))
}

func missingIndices(present []int, total int) []int {
	have := make(map[int]bool, len(present))
	for _, idx := range present {
		have[idx] = true
	}
	missing := make([]int, 0)
	for i := 1; i <= total; i++ {
		if !have[i] {
			missing = append(missing, i)
		}
	}
	return missing
}

func statusForSpace(space models.Space) string {
	if space == models.SpacePublic {
		return models.StatusPending
	}
	return models.StatusApproved
}
