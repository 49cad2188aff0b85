package migrations

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Migration is one named schema change. Up and Down run inside a transaction
// together with the matching ledger write.
type Migration struct {
	Name string
	Up   func(tx *gorm.DB) error
	Down func(tx *gorm.DB) error
}

// Each migration creates tables from a snapshot struct frozen at the time the
// migration was written, not from the live models package, so replays stay
// stable as the models evolve.

type usersV1 struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	Username     string    `gorm:"type:varchar(100);not null"`
	PasswordHash string    `gorm:"type:varchar(255);not null"`
	Tier         string    `gorm:"type:varchar(20);not null;default:'FREE'"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

func (usersV1) TableName() string { return "users" }

type apiKeysV1 struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index"`
	Name        string    `gorm:"type:varchar(100);not null"`
	KeyPrefix   string    `gorm:"type:varchar(20);not null"`
	KeyHash     string    `gorm:"type:varchar(64);uniqueIndex;not null"`
	Permissions string    `gorm:"type:text;not null"`
	LastUsedAt  *time.Time
	ExpiresAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

func (apiKeysV1) TableName() string { return "api_keys" }

type apiKeysV2 struct {
	PerHour    int `gorm:"column:rate_limit_per_hour;not null;default:0"`
	PerDay     int `gorm:"column:rate_limit_per_day;not null;default:0"`
	MaxServers int `gorm:"column:rate_limit_max_servers;not null;default:0"`
}

func (apiKeysV2) TableName() string { return "api_keys" }

// All returns the fixed, ordered migration list. Order is load-bearing:
// the runner applies entries front to back and never reorders.
func All() []Migration {
	return []Migration{
		{
			Name: "001_create_users",
			Up: func(tx *gorm.DB) error {
				return tx.Migrator().CreateTable(&usersV1{})
			},
			Down: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&usersV1{})
			},
		},
		{
			Name: "002_create_api_keys",
			Up: func(tx *gorm.DB) error {
				return tx.Migrator().CreateTable(&apiKeysV1{})
			},
			Down: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&apiKeysV1{})
			},
		},
		{
			Name: "003_api_key_rate_limits",
			Up: func(tx *gorm.DB) error {
				for _, col := range []string{"PerHour", "PerDay", "MaxServers"} {
					if err := tx.Migrator().AddColumn(&apiKeysV2{}, col); err != nil {
						return err
					}
				}
				return nil
			},
			Down: func(tx *gorm.DB) error {
				for _, col := range []string{"MaxServers", "PerDay", "PerHour"} {
					if err := tx.Migrator().DropColumn(&apiKeysV2{}, col); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}
