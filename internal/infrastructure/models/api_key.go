package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ApiKey struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index"`
	Name        string    `gorm:"type:varchar(100);not null"`
	KeyPrefix   string    `gorm:"type:varchar(20);not null"`
	KeyHash     string    `gorm:"type:varchar(64);uniqueIndex;not null"` // SHA256 of raw key
	Permissions string    `gorm:"type:text;not null"`                    // JSON string
	PerHour     int       `gorm:"column:rate_limit_per_hour;not null;default:0"`
	PerDay      int       `gorm:"column:rate_limit_per_day;not null;default:0"`
	MaxServers  int       `gorm:"column:rate_limit_max_servers;not null;default:0"`
	LastUsedAt  *time.Time
	ExpiresAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
	User        User           `gorm:"foreignKey:UserID"`
}
