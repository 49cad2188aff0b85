package migrations

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	domainerrors "github.com/onetop21/mcp-server-hub-sub003/internal/domain/errors"
	"github.com/onetop21/mcp-server-hub-sub003/internal/infrastructure/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err, "open sqlite")
	return db
}

func TestRunner_RunAppliesAllInOrder(t *testing.T) {
	db := newTestDB(t)
	runner := NewRunner(db)
	ctx := context.Background()

	require.NoError(t, runner.Run(ctx))

	require.True(t, db.Migrator().HasTable("users"))
	require.True(t, db.Migrator().HasTable("api_keys"))
	require.True(t, db.Migrator().HasColumn(&apiKeysV2{}, "rate_limit_per_hour"))

	statuses, err := runner.Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, len(All()))
	for _, s := range statuses {
		require.True(t, s.Applied, "migration %s should be applied", s.Name)
		require.NotNil(t, s.AppliedAt)
	}
}

func TestRunner_RunIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	runner := NewRunner(db)
	ctx := context.Background()

	require.NoError(t, runner.Run(ctx))
	// second run must be a no-op per migration; a replayed CREATE TABLE
	// would error here
	require.NoError(t, runner.Run(ctx))

	var count int64
	require.NoError(t, db.Model(&models.SchemaMigration{}).Count(&count).Error)
	require.EqualValues(t, len(All()), count)
}

func TestRunner_HaltsOnFailureAndKeepsEarlierApplied(t *testing.T) {
	db := newTestDB(t)
	boom := errors.New("boom")
	list := []Migration{
		All()[0],
		{
			Name: "002_fails",
			Up:   func(tx *gorm.DB) error { return boom },
			Down: func(tx *gorm.DB) error { return nil },
		},
		All()[1],
	}
	runner := NewRunnerFor(db, list)
	ctx := context.Background()

	err := runner.Run(ctx)
	require.Error(t, err)
	require.ErrorIs(t, err, domainerrors.ErrSchema)
	require.ErrorIs(t, err, boom)

	statuses, err := runner.Status(ctx)
	require.NoError(t, err)
	require.True(t, statuses[0].Applied)
	require.False(t, statuses[1].Applied)
	// later migrations are not attempted after a failure
	require.False(t, statuses[2].Applied)
	require.False(t, db.Migrator().HasTable("api_keys"))
}

func TestRunner_RollbackLast(t *testing.T) {
	db := newTestDB(t)
	runner := NewRunner(db)
	ctx := context.Background()

	require.NoError(t, runner.Run(ctx))
	require.NoError(t, runner.RollbackLast(ctx))

	statuses, err := runner.Status(ctx)
	require.NoError(t, err)
	last := statuses[len(statuses)-1]
	require.False(t, last.Applied)
	for _, s := range statuses[:len(statuses)-1] {
		require.True(t, s.Applied, "earlier migration %s must stay applied", s.Name)
	}
	require.False(t, db.Migrator().HasColumn(&apiKeysV2{}, "rate_limit_per_hour"))

	// rolling back everything then once more reports not found
	require.NoError(t, runner.RollbackLast(ctx))
	require.NoError(t, runner.RollbackLast(ctx))
	require.ErrorIs(t, runner.RollbackLast(ctx), domainerrors.ErrNotFound)
}

func TestRunner_RollbackUnknownLedgerEntry(t *testing.T) {
	db := newTestDB(t)
	runner := NewRunner(db)
	ctx := context.Background()
	require.NoError(t, runner.Run(ctx))

	// simulate code/ledger drift: ledger row with no matching definition
	require.NoError(t, db.Create(&models.SchemaMigration{
		Name:      "999_unknown",
		AppliedAt: time.Now().Add(time.Hour),
	}).Error)

	err := runner.RollbackLast(ctx)
	require.ErrorIs(t, err, domainerrors.ErrSchema)
}

func TestRunner_StatusOnFreshDatabase(t *testing.T) {
	db := newTestDB(t)
	runner := NewRunner(db)

	statuses, err := runner.Status(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, len(All()))
	for _, s := range statuses {
		require.False(t, s.Applied)
		require.Nil(t, s.AppliedAt)
	}
}

func TestRunner_LedgerOrderingUsesAppliedAt(t *testing.T) {
	db := newTestDB(t)
	base := time.Now()
	clock := base
	runner := NewRunnerFor(db, All())
	runner.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	ctx := context.Background()

	require.NoError(t, runner.Run(ctx))
	require.NoError(t, runner.RollbackLast(ctx))

	var names []string
	require.NoError(t, db.Model(&models.SchemaMigration{}).Order("applied_at ASC").Pluck("name", &names).Error)
	require.Equal(t, []string{"001_create_users", "002_create_api_keys"}, names)
}
