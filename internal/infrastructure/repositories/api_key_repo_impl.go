package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"

	"github.com/onetop21/mcp-server-hub-sub003/internal/domain/entities"
	domainerrors "github.com/onetop21/mcp-server-hub-sub003/internal/domain/errors"
	"github.com/onetop21/mcp-server-hub-sub003/internal/infrastructure/models"
)

// ApiKeyRepository implements api key data operations
type ApiKeyRepository struct {
	db *gorm.DB
}

// NewApiKeyRepository creates a new api key repository
func NewApiKeyRepository(db *gorm.DB) *ApiKeyRepository {
	return &ApiKeyRepository{db: db}
}

// Create creates a new api key. The key_hash unique index is the uniqueness
// guarantee; a collision surfaces as ErrAlreadyExists for the caller to retry.
func (r *ApiKeyRepository) Create(ctx context.Context, apiKey *entities.ApiKey) error {
	if apiKey.ID == uuid.Nil {
		apiKey.ID = uuid.New()
	}

	perms, err := json.Marshal(apiKey.Permissions)
	if err != nil {
		return err
	}

	m := &models.ApiKey{
		ID:          apiKey.ID,
		UserID:      apiKey.UserID,
		Name:        apiKey.Name,
		KeyPrefix:   apiKey.KeyPrefix,
		KeyHash:     apiKey.KeyHash,
		Permissions: string(perms),
		PerHour:     apiKey.RateLimit.RequestsPerHour,
		PerDay:      apiKey.RateLimit.RequestsPerDay,
		MaxServers:  apiKey.RateLimit.MaxServers,
		ExpiresAt:   apiKey.ExpiresAt.Ptr(),
		CreatedAt:   apiKey.CreatedAt,
		UpdatedAt:   apiKey.UpdatedAt,
	}

	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return mapStoreError(err)
	}
	apiKey.CreatedAt = m.CreatedAt
	apiKey.UpdatedAt = m.UpdatedAt
	return nil
}

// FindByKeyHash finds a live key by the hash of its raw value
func (r *ApiKeyRepository) FindByKeyHash(ctx context.Context, keyHash string) (*entities.ApiKey, error) {
	var m models.ApiKey
	if err := r.db.WithContext(ctx).Where("key_hash = ?", keyHash).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, mapStoreError(err)
	}
	return apiKeyToEntity(&m)
}

// FindByUserID lists a user's keys in creation order
func (r *ApiKeyRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*entities.ApiKey, error) {
	var keyModels []models.ApiKey
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&keyModels).Error
	if err != nil {
		return nil, mapStoreError(err)
	}

	keys := make([]*entities.ApiKey, 0, len(keyModels))
	for i := range keyModels {
		k, err := apiKeyToEntity(&keyModels[i])
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// FindByID finds a key by its id
func (r *ApiKeyRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.ApiKey, error) {
	var m models.ApiKey
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, mapStoreError(err)
	}
	return apiKeyToEntity(&m)
}

// UpdateLastUsed records last use. Advisory only: last write wins and a
// missing row is not an error.
func (r *ApiKeyRepository) UpdateLastUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	return mapStoreError(r.db.WithContext(ctx).
		Model(&models.ApiKey{}).
		Where("id = ?", id).
		Update("last_used_at", usedAt).Error)
}

// Delete tombstones a key (gorm soft delete); every later lookup misses it
func (r *ApiKeyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.ApiKey{}, "id = ?", id)
	if result.Error != nil {
		return mapStoreError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func apiKeyToEntity(m *models.ApiKey) (*entities.ApiKey, error) {
	var perms []entities.Permission
	if m.Permissions != "" {
		if err := json.Unmarshal([]byte(m.Permissions), &perms); err != nil {
			return nil, err
		}
	}

	return &entities.ApiKey{
		ID:          m.ID,
		UserID:      m.UserID,
		Name:        m.Name,
		KeyPrefix:   m.KeyPrefix,
		KeyHash:     m.KeyHash,
		Permissions: perms,
		RateLimit: entities.RateLimit{
			RequestsPerHour: m.PerHour,
			RequestsPerDay:  m.PerDay,
			MaxServers:      m.MaxServers,
		},
		LastUsedAt: null.TimeFromPtr(m.LastUsedAt),
		ExpiresAt:  null.TimeFromPtr(m.ExpiresAt),
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}, nil
}
