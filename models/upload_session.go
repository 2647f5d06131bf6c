package models

import "time"

const (
	SessionUploading = "uploading"
	SessionCompleted = "completed"
)

// UploadSession tracks one in-progress chunked upload. The session id is the
// client-supplied content hash of the file being uploaded; the staged chunks
// live under TempDir until the merge. Rows are removed on finalize, abort or
// by the expiry sweep.
type UploadSession struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID   string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"session_id"`
	CreatedBy   uint      `gorm:"not null;index" json:"created_by"`
	Space       Space     `gorm:"type:varchar(10);not null" json:"space"`
	ParentID    *string   `gorm:"type:varchar(36)" json:"parent_id"`
	FileName    string    `gorm:"type:varchar(255);not null" json:"file_name"`
	FileSize    int64     `gorm:"not null" json:"file_size"`
	FileMD5     string    `gorm:"type:varchar(32);not null" json:"file_md5"`
	TotalChunks int       `gorm:"not null" json:"total_chunks"`
	Status      string    `gorm:"type:varchar(20);default:uploading;index" json:"status"`
	TempDir     string    `gorm:"type:varchar(500)" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	ExpiresAt   time.Time `gorm:"not null;index" json:"expires_at"`
}
