package models

import "time"

// Blob is a reference-counted physical file. Several FileNodes may point at
// the same blob after deduplicated uploads; the bytes are removed from disk
// only when the last referencing node is gone.
type Blob struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	StoragePath   string    `gorm:"type:varchar(1000);not null" json:"storage_path"`
	ThumbnailPath string    `gorm:"type:varchar(1000)" json:"thumbnail_path"`
	Size          int64     `gorm:"not null" json:"size"`
	ContentHash   string    `gorm:"type:varchar(32);index" json:"content_hash"`
	RefCount      int       `gorm:"default:1" json:"ref_count"`
	CreatedAt     time.Time `json:"created_at"`
}
