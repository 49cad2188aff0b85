package migrations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	domainerrors "github.com/onetop21/mcp-server-hub-sub003/internal/domain/errors"
	"github.com/onetop21/mcp-server-hub-sub003/internal/infrastructure/models"
	"github.com/onetop21/mcp-server-hub-sub003/pkg/logger"
	"github.com/onetop21/mcp-server-hub-sub003/pkg/metrics"
)

// MigrationStatus reports one migration's ledger state
type MigrationStatus struct {
	Name      string     `json:"name"`
	Applied   bool       `json:"applied"`
	AppliedAt *time.Time `json:"appliedAt,omitempty"`
}

// Runner applies the fixed migration list exactly once each, tracked in the
// schema_migrations ledger. Ledger membership is the only source of truth;
// the runner never infers state from the live schema shape.
type Runner struct {
	db   *gorm.DB
	list []Migration
	now  func() time.Time
}

// NewRunner creates a runner over the canonical migration list
func NewRunner(db *gorm.DB) *Runner {
	return NewRunnerFor(db, All())
}

// NewRunnerFor creates a runner over an explicit list (used by tests)
func NewRunnerFor(db *gorm.DB, list []Migration) *Runner {
	return &Runner{db: db, list: list, now: time.Now}
}

// Run applies every pending migration in list order. The first failure halts
// the run with the schema left at the last applied migration; nothing is
// retried automatically.
func (r *Runner) Run(ctx context.Context) error {
	db := r.db.WithContext(ctx)

	if err := db.AutoMigrate(&models.SchemaMigration{}); err != nil {
		return domainerrors.SchemaError("failed to ensure migrations ledger", err)
	}

	for _, m := range r.list {
		applied, err := r.applied(db, m.Name)
		if err != nil {
			return domainerrors.SchemaError("failed to read migrations ledger", err)
		}
		if applied {
			continue
		}

		// Up and the ledger insert share one transaction so a crash cannot
		// record a migration that did not complete.
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := m.Up(tx); err != nil {
				return err
			}
			return tx.Create(&models.SchemaMigration{Name: m.Name, AppliedAt: r.now()}).Error
		})
		if err != nil {
			return domainerrors.SchemaError(fmt.Sprintf("migration %s failed", m.Name), err)
		}

		metrics.MigrationsApplied.Inc()
		logger.Info(ctx, "applied migration", zap.String("name", m.Name))
	}
	return nil
}

// RollbackLast reverts the most recently applied migration and removes its
// ledger row. Returns ErrNotFound when nothing has been applied, and a
// schema error when the ledger names a migration this build does not define.
func (r *Runner) RollbackLast(ctx context.Context) error {
	db := r.db.WithContext(ctx)

	var row models.SchemaMigration
	if err := db.Order("applied_at DESC").First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainerrors.ErrNotFound
		}
		return domainerrors.SchemaError("failed to read migrations ledger", err)
	}

	var def *Migration
	for i := range r.list {
		if r.list[i].Name == row.Name {
			def = &r.list[i]
			break
		}
	}
	if def == nil {
		return domainerrors.SchemaError(fmt.Sprintf("ledger names unknown migration %s", row.Name), nil)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := def.Down(tx); err != nil {
			return err
		}
		return tx.Where("name = ?", row.Name).Delete(&models.SchemaMigration{}).Error
	})
	if err != nil {
		return domainerrors.SchemaError(fmt.Sprintf("rollback of %s failed", row.Name), err)
	}

	logger.Info(ctx, "rolled back migration", zap.String("name", row.Name))
	return nil
}

// Status reports ledger state for every migration in list order. Pure read;
// works without schema write access.
func (r *Runner) Status(ctx context.Context) ([]MigrationStatus, error) {
	db := r.db.WithContext(ctx)

	var rows []models.SchemaMigration
	if err := db.Find(&rows).Error; err != nil {
		// a fresh database without the ledger table reports all pending
		if !db.Migrator().HasTable(&models.SchemaMigration{}) {
			rows = nil
		} else {
			return nil, domainerrors.SchemaError("failed to read migrations ledger", err)
		}
	}

	appliedAt := make(map[string]time.Time, len(rows))
	for _, row := range rows {
		appliedAt[row.Name] = row.AppliedAt
	}

	statuses := make([]MigrationStatus, 0, len(r.list))
	for _, m := range r.list {
		s := MigrationStatus{Name: m.Name}
		if at, ok := appliedAt[m.Name]; ok {
			t := at
			s.Applied = true
			s.AppliedAt = &t
		}
		statuses = append(statuses, s)
	}
	return statuses, nil
}

func (r *Runner) applied(db *gorm.DB, name string) (bool, error) {
	var count int64
	err := db.Model(&models.SchemaMigration{}).Where("name = ?", name).Count(&count).Error
	return count > 0, err
}
