package models

import "time"

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// FileNode is one entry in the hierarchical namespace: a file or a folder.
// ParentID is nil for the root level of a space. Folders always have size 0,
// an empty storage path and status approved.
type FileNode struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	ParentID    *string   `gorm:"type:varchar(36);index" json:"parent_id"`
	IsFolder    bool      `gorm:"default:false" json:"is_folder"`
	OwnerType   Space     `gorm:"type:varchar(10);not null;index:idx_owner" json:"owner_type"`
	OwnerID     uint      `gorm:"not null;index:idx_owner" json:"owner_id"`
	BlobID      *uint     `gorm:"index" json:"-"`
	StoragePath string    `gorm:"type:varchar(1000)" json:"-"`
	Size        int64     `gorm:"not null;default:0" json:"size"`
	ContentType string    `gorm:"type:varchar(100)" json:"content_type"`
	ContentHash string    `gorm:"type:varchar(32);index:idx_hash_size" json:"content_hash,omitempty"`
	Status      string    `gorm:"type:varchar(10);default:approved;index" json:"status"`
	CreatedBy   uint      `gorm:"not null;index" json:"created_by"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (n *FileNode) Owner() Owner {
	return Owner{Space: n.OwnerType, UserID: n.OwnerID}
}
