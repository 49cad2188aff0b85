package models

import "time"

// SchemaMigration is one ledger row; presence of a row for Name is the sole
// truth of "this migration has run".
type SchemaMigration struct {
	Name      string    `gorm:"type:varchar(255);primaryKey"`
	AppliedAt time.Time `gorm:"not null"`
}

func (SchemaMigration) TableName() string {
	return "schema_migrations"
}
