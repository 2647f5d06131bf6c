package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RolePending = "pending"
	RolePublic  = "public"
	RoleMember  = "member"
	RoleAdmin   = "admin"
)

type User struct {
	ID           uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string         `gorm:"type:varchar(50);uniqueIndex;not null" json:"username"`
	Password     string         `gorm:"type:varchar(255);not null" json:"-"`
	Email        string         `gorm:"type:varchar(100);uniqueIndex" json:"email"`
	Role         string         `gorm:"type:varchar(10);default:pending;index" json:"role"`
	IsActive     bool           `gorm:"default:false" json:"is_active"`
	StorageQuota int64          `gorm:"default:107374182400" json:"storage_quota"`
	UsedStorage  int64          `gorm:"default:0" json:"used_storage"`
	ApprovedBy   *uint          `json:"approved_by,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// Principal is the authenticated identity the services operate on. It is
// resolved from a bearer token at the middleware boundary; services never
// see the token itself.
type Principal struct {
	ID       uint
	Role     string
	IsActive bool
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
