package repositories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/onetop21/mcp-server-hub-sub003/internal/domain/entities"
	domainerrors "github.com/onetop21/mcp-server-hub-sub003/internal/domain/errors"
)

func TestUserRepository_CRUDAndFinders(t *testing.T) {
	db := newTestDB(t)
	createUserTable(t, db)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := &entities.User{
		Email:        "owner@hub.dev",
		Username:     "owner",
		PasswordHash: "x",
		Tier:         entities.TierPremium,
	}
	require.NoError(t, repo.Create(ctx, u))
	require.NotEqual(t, uuid.Nil, u.ID)

	byID, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "owner@hub.dev", byID.Email)
	require.Equal(t, entities.TierPremium, byID.Tier)

	byEmail, err := repo.GetByEmail(ctx, "owner@hub.dev")
	require.NoError(t, err)
	require.Equal(t, u.ID, byEmail.ID)

	byID.Username = "renamed"
	byID.Tier = entities.TierEnterprise
	require.NoError(t, repo.Update(ctx, byID))

	again, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "renamed", again.Username)
	require.Equal(t, entities.TierEnterprise, again.Tier)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	createUserTable(t, db)
	repo := NewUserRepository(db)
	ctx := context.Background()

	first := &entities.User{Email: "dup@hub.dev", Username: "a", PasswordHash: "x", Tier: entities.TierFree}
	require.NoError(t, repo.Create(ctx, first))

	second := &entities.User{Email: "dup@hub.dev", Username: "b", PasswordHash: "x", Tier: entities.TierFree}
	err := repo.Create(ctx, second)
	require.ErrorIs(t, err, domainerrors.ErrAlreadyExists)
}

func TestUserRepository_NotFoundBranches(t *testing.T) {
	db := newTestDB(t)
	createUserTable(t, db)
	repo := NewUserRepository(db)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, uuid.New())
	require.ErrorIs(t, err, domainerrors.ErrNotFound)

	_, err = repo.GetByEmail(ctx, "missing@hub.dev")
	require.ErrorIs(t, err, domainerrors.ErrNotFound)

	err = repo.Update(ctx, &entities.User{ID: uuid.New(), Username: "x", Tier: entities.TierFree})
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}
