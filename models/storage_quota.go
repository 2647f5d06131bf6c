package models

import "time"

// StorageQuota is the per-space storage ceiling. One row per quota type with
// upsert semantics; only the last writer is retained. The "user" row doubles
// as the default quota assigned to newly registered users.
type StorageQuota struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	QuotaType  Space     `gorm:"type:varchar(10);uniqueIndex;not null" json:"quota_type"`
	QuotaLimit int64     `gorm:"not null" json:"quota_limit"`
	UpdatedBy  uint      `json:"updated_by"`
	UpdatedAt  time.Time `json:"updated_at"`
}
