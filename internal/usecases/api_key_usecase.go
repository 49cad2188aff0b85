package usecases

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"

	"github.com/onetop21/mcp-server-hub-sub003/internal/domain/entities"
	domainerrors "github.com/onetop21/mcp-server-hub-sub003/internal/domain/errors"
	"github.com/onetop21/mcp-server-hub-sub003/internal/domain/repositories"
	"github.com/onetop21/mcp-server-hub-sub003/pkg/crypto"
	"github.com/onetop21/mcp-server-hub-sub003/pkg/logger"
)

const (
	// keyByteLen is the entropy of a raw key: 32 bytes, 64 hex chars
	keyByteLen = 32
	// maxGenerateRetries bounds regeneration after a hash collision
	maxGenerateRetries = 3
	// lastUsedTimeout bounds the fire-and-forget last-use write
	lastUsedTimeout = 3 * time.Second
)

var generateKeyMaterial = crypto.GenerateRandomHex

type ApiKeyUsecase struct {
	apiKeyRepo       repositories.ApiKeyRepository
	userRepo         repositories.UserRepository
	defaultRateLimit entities.RateLimit
	now              func() time.Time

	// trackLastUsed lets tests run the advisory write synchronously
	trackLastUsed func(id uuid.UUID, usedAt time.Time)
	// onRevoke runs after a successful revocation, e.g. to drop quota counters
	onRevoke func(id uuid.UUID)
}

func NewApiKeyUsecase(
	apiKeyRepo repositories.ApiKeyRepository,
	userRepo repositories.UserRepository,
	defaultRateLimit entities.RateLimit,
) *ApiKeyUsecase {
	u := &ApiKeyUsecase{
		apiKeyRepo:       apiKeyRepo,
		userRepo:         userRepo,
		defaultRateLimit: defaultRateLimit,
		now:              time.Now,
	}
	u.trackLastUsed = u.recordLastUsed
	return u
}

// OnRevoke registers a callback invoked with the key id after each
// successful revocation
func (u *ApiKeyUsecase) OnRevoke(fn func(id uuid.UUID)) {
	u.onRevoke = fn
}

// CreateApiKey issues a new key for the user. The raw key string appears in
// the response and nowhere else; only its SHA-256 hash is stored. Uniqueness
// rides on the store's unique hash constraint: on a collision the key is
// regenerated a bounded number of times.
func (u *ApiKeyUsecase) CreateApiKey(ctx context.Context, userID uuid.UUID, input *entities.CreateApiKeyInput) (*entities.CreateApiKeyResponse, error) {
	rateLimit := u.defaultRateLimit
	if input.RateLimit != nil {
		rateLimit = *input.RateLimit
	}

	var lastErr error
	for attempt := 0; attempt < maxGenerateRetries; attempt++ {
		raw, err := generateKeyMaterial(keyByteLen)
		if err != nil {
			return nil, domainerrors.InternalError(err)
		}
		rawKey := entities.KeyPrefix + raw

		entity := &entities.ApiKey{
			UserID:      userID,
			Name:        input.Name,
			KeyPrefix:   rawKey[:len(entities.KeyPrefix)+4],
			KeyHash:     crypto.SHA256Hex([]byte(rawKey)),
			Permissions: input.Permissions,
			RateLimit:   rateLimit,
			ExpiresAt:   null.TimeFromPtr(input.ExpiresAt),
			CreatedAt:   u.now(),
			UpdatedAt:   u.now(),
		}

		err = u.apiKeyRepo.Create(ctx, entity)
		if err == nil {
			return &entities.CreateApiKeyResponse{
				ID:        entity.ID,
				Name:      entity.Name,
				ApiKey:    rawKey, // Shown once
				RateLimit: rateLimit,
				CreatedAt: entity.CreatedAt,
			}, nil
		}
		if !errors.Is(err, domainerrors.ErrAlreadyExists) {
			return nil, err
		}
		lastErr = err
	}

	return nil, domainerrors.NewAppError(500, "could not generate a unique api key", errors.Join(domainerrors.ErrKeyGenerationExhausted, lastErr))
}

// ValidateApiKey turns a raw key string into an authorization decision.
// Invalid when the key is unknown, expired, or its owner no longer exists.
// Never caches: revocation is visible to the very next call.
func (u *ApiKeyUsecase) ValidateApiKey(ctx context.Context, rawKey string) (*entities.ApiKeyValidation, error) {
	keyHash := crypto.SHA256Hex([]byte(rawKey))

	key, err := u.apiKeyRepo.FindByKeyHash(ctx, keyHash)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return &entities.ApiKeyValidation{Valid: false}, domainerrors.InvalidCredential("invalid api key")
		}
		return nil, err
	}

	if key.Expired(u.now()) {
		return &entities.ApiKeyValidation{Valid: false}, domainerrors.Expired("api key expired")
	}

	// a deleted owner invalidates every key it issued
	if _, err := u.userRepo.GetByID(ctx, key.UserID); err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return &entities.ApiKeyValidation{Valid: false}, domainerrors.InvalidCredential("api key owner no longer exists")
		}
		return nil, err
	}

	// advisory; a lost write never fails the request
	go u.trackLastUsed(key.ID, u.now())

	return &entities.ApiKeyValidation{
		Valid:       true,
		KeyID:       key.ID,
		UserID:      key.UserID,
		Permissions: key.Permissions,
		RateLimit:   key.RateLimit,
	}, nil
}

// ListApiKeys returns key metadata in creation order. The raw key string is
// never reproduced after creation.
func (u *ApiKeyUsecase) ListApiKeys(ctx context.Context, userID uuid.UUID) ([]*entities.ApiKey, error) {
	return u.apiKeyRepo.FindByUserID(ctx, userID)
}

// RevokeApiKey tombstones a key the requesting user owns
func (u *ApiKeyUsecase) RevokeApiKey(ctx context.Context, requestingUserID uuid.UUID, id uuid.UUID) error {
	key, err := u.apiKeyRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if key.UserID != requestingUserID {
		return domainerrors.Forbidden("not owner of api key")
	}

	if err := u.apiKeyRepo.Delete(ctx, id); err != nil {
		return err
	}
	if u.onRevoke != nil {
		u.onRevoke(id)
	}
	return nil
}

func (u *ApiKeyUsecase) recordLastUsed(id uuid.UUID, usedAt time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), lastUsedTimeout)
	defer cancel()
	if err := u.apiKeyRepo.UpdateLastUsed(ctx, id, usedAt); err != nil {
		logger.Warn(ctx, "failed to record api key last use", zap.String("keyId", id.String()), zap.Error(err))
	}
}
