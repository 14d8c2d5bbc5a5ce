package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionModel mirrors the 'mobile_sessions' table.
type SessionModel struct {
	ID                    uuid.UUID  `gorm:"type:uuid;primaryKey"`
	PrincipalID           string     `gorm:"type:varchar(64);not null;index:idx_mobile_sessions_principal,priority:2"`
	PrincipalType         string     `gorm:"type:varchar(16);not null;index:idx_mobile_sessions_principal,priority:1"`
	RefreshTokenHash      string     `gorm:"type:varchar(128);not null"`
	TokenEpoch            int64      `gorm:"not null;default:0"`
	SessionExpiresAt      time.Time  `gorm:"not null"`
	RefreshTokenExpiresAt time.Time  `gorm:"not null"`
	RevokedAt             *time.Time `gorm:"index"`
	UserAgent             string     `gorm:"type:varchar(512)"`
	LastUsedAt            *time.Time
	CreatedAt             time.Time `gorm:"not null"`
}

// TableName explicitly sets the table name for GORM.
func (SessionModel) TableName() string {
	return "mobile_sessions"
}
