package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/onetop21/mcp-server-hub-sub003/internal/domain/entities"
)

type ApiKeyRepository interface {
	Create(ctx context.Context, apiKey *entities.ApiKey) error
	FindByKeyHash(ctx context.Context, keyHash string) (*entities.ApiKey, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]*entities.ApiKey, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entities.ApiKey, error)
	// UpdateLastUsed is advisory metadata; last write wins.
	UpdateLastUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}
