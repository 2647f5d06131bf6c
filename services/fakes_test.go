package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"skystore/models"
	"skystore/repositories"

	"gorm.io/gorm"
)

type fakeTxManager struct{}

func (fakeTxManager) WithTransaction(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

// lockingFakeUserRepo emulates SELECT ... FOR UPDATE: GetByIDForUpdate takes a
// per-user mutex that stays held until the enclosing rowLockTxManager
// transaction ends, so concurrent reservations for the same user serialize the
// way they do against the real database.
type lockingFakeUserRepo struct {
	*fakeUserRepo
	lockMu sync.Mutex
	rows   map[uint]*sync.Mutex
	held   map[*gorm.DB][]*sync.Mutex
}

func newLockingFakeUserRepo() *lockingFakeUserRepo {
	return &lockingFakeUserRepo{
		fakeUserRepo: newFakeUserRepo(),
		rows:         map[uint]*sync.Mutex{},
		held:         map[*gorm.DB][]*sync.Mutex{},
	}
}

func (r *lockingFakeUserRepo) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, userID uint) (models.User, error) {
	r.lockMu.Lock()
	rowMu, ok := r.rows[userID]
	if !ok {
		rowMu = &sync.Mutex{}
		r.rows[userID] = rowMu
	}
	r.lockMu.Unlock()

	rowMu.Lock()
	r.lockMu.Lock()
	r.held[tx] = append(r.held[tx], rowMu)
	r.lockMu.Unlock()

	return r.GetByID(ctx, tx, userID)
}

func (r *lockingFakeUserRepo) releaseTx(tx *gorm.DB) {
	r.lockMu.Lock()
	locks := r.held[tx]
	delete(r.held, tx)
	r.lockMu.Unlock()
	for _, l := range locks {
		l.Unlock()
	}
}

// rowLockTxManager hands each transaction a distinct tx value and releases the
// row locks acquired through it when the transaction ends.
type rowLockTxManager struct {
	users *lockingFakeUserRepo
}

func (m *rowLockTxManager) WithTransaction(_ context.Context, fn func(tx *gorm.DB) error) error {
	tx := new(gorm.DB)
	err := fn(tx)
	m.users.releaseTx(tx)
	return err
}

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[uint]models.User
	nextID uint
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uint]models.User{}, nextID: 1}
}

func (r *fakeUserRepo) put(user models.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
}

func (r *fakeUserRepo) CountByUsername(_ context.Context, username string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, u := range r.users {
		if u.Username == username {
			count++
		}
	}
	return count, nil
}

func (r *fakeUserRepo) CountByEmail(_ context.Context, email string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, u := range r.users {
		if u.Email == email {
			count++
		}
	}
	return count, nil
}

func (r *fakeUserRepo) Create(_ context.Context, _ *gorm.DB, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == 0 {
		user.ID = r.nextID
		r.nextID++
	}
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, _ *gorm.DB, username string) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return models.User{}, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByID(_ context.Context, _ *gorm.DB, userID uint) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return models.User{}, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, userID uint) (models.User, error) {
	return r.GetByID(ctx, tx, userID)
}

func (r *fakeUserRepo) ListByRole(_ context.Context, _ *gorm.DB, role string, offset, limit int) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := make([]models.User, 0)
	for _, u := range r.users {
		if u.Role == role {
			matched = append(matched, u)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	if offset >= len(matched) {
		return []models.User{}, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *fakeUserRepo) UpdateByID(_ context.Context, _ *gorm.DB, userID uint, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if v, ok := updates["role"]; ok {
		user.Role = v.(string)
	}
	if v, ok := updates["is_active"]; ok {
		user.IsActive = v.(bool)
	}
	if v, ok := updates["approved_by"]; ok {
		id := v.(uint)
		user.ApprovedBy = &id
	}
	r.users[userID] = user
	return nil
}

func (r *fakeUserRepo) AddUsedStorage(_ context.Context, _ *gorm.DB, userID uint, delta int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	user.UsedStorage += delta
	r.users[userID] = user
	return nil
}

func (r *fakeUserRepo) SubUsedStorage(_ context.Context, _ *gorm.DB, userID uint, delta int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	user.UsedStorage -= delta
	if user.UsedStorage < 0 {
		user.UsedStorage = 0
	}
	r.users[userID] = user
	return nil
}

type fakeQuotaRepo struct {
	rows map[models.Space]models.StorageQuota
}

func newFakeQuotaRepo() *fakeQuotaRepo {
	return &fakeQuotaRepo{rows: map[models.Space]models.StorageQuota{}}
}

func (r *fakeQuotaRepo) GetByType(_ context.Context, _ *gorm.DB, quotaType models.Space) (models.StorageQuota, error) {
	row, ok := r.rows[quotaType]
	if !ok {
		return models.StorageQuota{}, gorm.ErrRecordNotFound
	}
	return row, nil
}

func (r *fakeQuotaRepo) Upsert(_ context.Context, _ *gorm.DB, quotaType models.Space, limit int64, updatedBy uint) (models.StorageQuota, error) {
	row := models.StorageQuota{QuotaType: quotaType, QuotaLimit: limit, UpdatedBy: updatedBy, UpdatedAt: time.Now()}
	r.rows[quotaType] = row
	return row, nil
}

type fakeNodeRepo struct {
	mu    sync.Mutex
	nodes map[string]models.FileNode
}

func newFakeNodeRepo() *fakeNodeRepo {
	return &fakeNodeRepo{nodes: map[string]models.FileNode{}}
}

func (r *fakeNodeRepo) put(node models.FileNode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes[node.ID] = node
}

func (r *fakeNodeRepo) get(id string) (models.FileNode, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	node, ok := r.nodes[id]
	return node, ok
}

func (r *fakeNodeRepo) Create(_ context.Context, _ *gorm.DB, node *models.FileNode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes[node.ID] = *node
	return nil
}

func (r *fakeNodeRepo) GetByID(_ context.Context, _ *gorm.DB, id string) (models.FileNode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	node, ok := r.nodes[id]
	if !ok {
		return models.FileNode{}, gorm.ErrRecordNotFound
	}
	return node, nil
}

func (r *fakeNodeRepo) ListChildren(_ context.Context, _ *gorm.DB, in repositories.ListChildrenInput) ([]models.FileNode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := make([]models.FileNode, 0)
	for _, node := range r.nodes {
		if node.OwnerType != in.OwnerType || node.OwnerID != in.OwnerID {
			continue
		}
		if in.ParentID == nil {
			if node.ParentID != nil {
				continue
			}
		} else if node.ParentID == nil || *node.ParentID != *in.ParentID {
			continue
		}
		if len(in.Statuses) > 0 {
			ok := false
			for _, status := range in.Statuses {
				if node.Status == status {
					ok = true
					break
				}
			}
			if !ok {
				continue
			}
		}
		matched = append(matched, node)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return matched, nil
}

func (r *fakeNodeRepo) ListByStatus(_ context.Context, _ *gorm.DB, status string) ([]models.FileNode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := make([]models.FileNode, 0)
	for _, node := range r.nodes {
		if node.Status == status {
			matched = append(matched, node)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return matched, nil
}

func (r *fakeNodeRepo) CountChildren(_ context.Context, _ *gorm.DB, parentID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, node := range r.nodes {
		if node.ParentID != nil && *node.ParentID == parentID {
			count++
		}
	}
	return count, nil
}

func (r *fakeNodeRepo) UpdateByID(_ context.Context, _ *gorm.DB, id string, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	node, ok := r.nodes[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if v, ok := updates["parent_id"]; ok {
		parentID := v.(string)
		node.ParentID = &parentID
	}
	if v, ok := updates["status"]; ok {
		node.Status = v.(string)
	}
	if v, ok := updates["storage_path"]; ok {
		node.StoragePath = v.(string)
	}
	if v, ok := updates["blob_id"]; ok {
		if v == nil {
			node.BlobID = nil
		} else {
			blobID := v.(uint)
			node.BlobID = &blobID
		}
	}
	r.nodes[id] = node
	return nil
}

func (r *fakeNodeRepo) DeleteByID(_ context.Context, _ *gorm.DB, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.nodes[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.nodes, id)
	return nil
}

func (r *fakeNodeRepo) FindApprovedByHashAndSize(_ context.Context, _ *gorm.DB, hash string, size int64) (models.FileNode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, node := range r.nodes {
		if !node.IsFolder && node.Status == models.StatusApproved && node.ContentHash == hash && node.Size == size {
			return node, nil
		}
	}
	return models.FileNode{}, gorm.ErrRecordNotFound
}

func (r *fakeNodeRepo) SumSizeBySpace(_ context.Context, _ *gorm.DB, ownerType models.Space) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for _, node := range r.nodes {
		if node.IsFolder || node.OwnerType != ownerType {
			continue
		}
		if node.Status == models.StatusApproved || node.Status == models.StatusPending {
			total += node.Size
		}
	}
	return total, nil
}

type fakeBlobRepo struct {
	mu     sync.Mutex
	blobs  map[uint]models.Blob
	nextID uint
}

func newFakeBlobRepo() *fakeBlobRepo {
	return &fakeBlobRepo{blobs: map[uint]models.Blob{}, nextID: 1}
}

func (r *fakeBlobRepo) put(blob models.Blob) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if blob.ID >= r.nextID {
		r.nextID = blob.ID + 1
	}
	r.blobs[blob.ID] = blob
}

func (r *fakeBlobRepo) Create(_ context.Context, _ *gorm.DB, blob *models.Blob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if blob.ID == 0 {
		blob.ID = r.nextID
		r.nextID++
	}
	r.blobs[blob.ID] = *blob
	return nil
}

func (r *fakeBlobRepo) GetByID(_ context.Context, _ *gorm.DB, blobID uint) (models.Blob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	blob, ok := r.blobs[blobID]
	if !ok {
		return models.Blob{}, gorm.ErrRecordNotFound
	}
	return blob, nil
}

func (r *fakeBlobRepo) IncrementRefCount(_ context.Context, _ *gorm.DB, blobID uint) error {
	return r.addRef(blobID, 1)
}

func (r *fakeBlobRepo) DecrementRefCount(_ context.Context, _ *gorm.DB, blobID uint) error {
	return r.addRef(blobID, -1)
}

func (r *fakeBlobRepo) addRef(blobID uint, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	blob, ok := r.blobs[blobID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	blob.RefCount += delta
	r.blobs[blobID] = blob
	return nil
}

func (r *fakeBlobRepo) UpdateByID(_ context.Context, _ *gorm.DB, blobID uint, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	blob, ok := r.blobs[blobID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if v, ok := updates["storage_path"]; ok {
		blob.StoragePath = v.(string)
	}
	if v, ok := updates["thumbnail_path"]; ok {
		blob.ThumbnailPath = v.(string)
	}
	r.blobs[blobID] = blob
	return nil
}

func (r *fakeBlobRepo) DeleteByID(_ context.Context, _ *gorm.DB, blobID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.blobs[blobID]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.blobs, blobID)
	return nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]models.UploadSession
	nextID   uint
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[string]models.UploadSession{}, nextID: 1}
}

func (r *fakeSessionRepo) Create(_ context.Context, _ *gorm.DB, session *models.UploadSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session.ID == 0 {
		session.ID = r.nextID
		r.nextID++
	}
	r.sessions[session.SessionID] = *session
	return nil
}

func (r *fakeSessionRepo) GetBySessionID(_ context.Context, _ *gorm.DB, sessionID string) (models.UploadSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[sessionID]
	if !ok {
		return models.UploadSession{}, gorm.ErrRecordNotFound
	}
	return session, nil
}

func (r *fakeSessionRepo) UpdateStatus(_ context.Context, _ *gorm.DB, sessionID string, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[sessionID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	session.Status = status
	r.sessions[sessionID] = session
	return nil
}

func (r *fakeSessionRepo) DeleteByID(_ context.Context, _ *gorm.DB, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, session := range r.sessions {
		if session.ID == id {
			delete(r.sessions, key)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeSessionRepo) ListExpired(_ context.Context, _ *gorm.DB, now time.Time) ([]models.UploadSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	expired := make([]models.UploadSession, 0)
	for _, session := range r.sessions {
		if session.ExpiresAt.Before(now) && session.Status != models.SessionCompleted {
			expired = append(expired, session)
		}
	}
	return expired, nil
}

type fakeProgressRepo struct {
	mu   sync.Mutex
	sets map[string]map[int]bool
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{sets: map[string]map[int]bool{}}
}

func (r *fakeProgressRepo) AddChunk(_ context.Context, sessionID string, index int, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sets[sessionID] == nil {
		r.sets[sessionID] = map[int]bool{}
	}
	r.sets[sessionID][index] = true
	return nil
}

func (r *fakeProgressRepo) PresentCount(_ context.Context, sessionID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.sets[sessionID])), nil
}

func (r *fakeProgressRepo) PresentIndices(_ context.Context, sessionID string) ([]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	indices := make([]int, 0, len(r.sets[sessionID]))
	for idx := range r.sets[sessionID] {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	return indices, nil
}

func (r *fakeProgressRepo) Clear(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sets, sessionID)
	return nil
}
