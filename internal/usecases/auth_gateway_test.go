package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/onetop21/mcp-server-hub-sub003/internal/domain/entities"
	domainerrors "github.com/onetop21/mcp-server-hub-sub003/internal/domain/errors"
	"github.com/onetop21/mcp-server-hub-sub003/internal/rate"
	"github.com/onetop21/mcp-server-hub-sub003/pkg/crypto"
)

type gatewayFixture struct {
	gateway     *AuthGateway
	userRepo    *MockUserRepository
	apiKeyRepo  *MockApiKeyRepository
	limiterTime *time.Time
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()
	userRepo := new(MockUserRepository)
	apiKeyRepo := new(MockApiKeyRepository)

	apiKeys := NewApiKeyUsecase(apiKeyRepo, userRepo, testPolicy)
	apiKeys.trackLastUsed = func(uuid.UUID, time.Time) {}

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := &gatewayFixture{userRepo: userRepo, apiKeyRepo: apiKeyRepo, limiterTime: &now}
	limiter := rate.NewLimiterAt(func() time.Time { return *f.limiterTime })

	f.gateway = NewAuthGateway(newJWTService(), apiKeys, limiter, userRepo, 5*time.Second)
	return f
}

func (f *gatewayFixture) seedKey(rawKey string, policy entities.RateLimit) *entities.ApiKey {
	key := &entities.ApiKey{
		ID:      uuid.New(),
		UserID:  uuid.New(),
		KeyHash: crypto.SHA256Hex([]byte(rawKey)),
		Permissions: []entities.Permission{
			{Resource: "servers", Actions: []string{"read"}},
		},
		RateLimit: policy,
	}
	f.apiKeyRepo.On("FindByKeyHash", mock.Anything, key.KeyHash).Return(key, nil)
	f.userRepo.On("GetByID", mock.Anything, key.UserID).Return(&entities.User{ID: key.UserID, Tier: entities.TierBasic}, nil)
	return key
}

func TestAuthGateway_MissingCredential(t *testing.T) {
	f := newGatewayFixture(t)
	ctx := context.Background()

	for _, header := range []string{"", "Basic abc", "Bearer ", "Token xyz"} {
		_, err := f.gateway.Authenticate(ctx, header)
		require.ErrorIs(t, err, domainerrors.ErrMissingCredential, "header %q", header)
	}
}

func TestAuthGateway_SessionTokenPath(t *testing.T) {
	f := newGatewayFixture(t)
	ctx := context.Background()

	userID := uuid.New()
	token, err := newJWTService().GenerateToken(userID, string(entities.TierBasic), time.Hour)
	require.NoError(t, err)
	f.userRepo.On("GetByID", mock.Anything, userID).Return(&entities.User{ID: userID, Tier: entities.TierBasic}, nil)

	principal, err := f.gateway.Authenticate(ctx, "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, userID, principal.UserID)
	assert.Equal(t, entities.CredentialSessionToken, principal.Credential)
	assert.Nil(t, principal.Quota, "token path consumes no quota")
}

func TestAuthGateway_SessionToken_DeletedUser(t *testing.T) {
	f := newGatewayFixture(t)
	ctx := context.Background()

	userID := uuid.New()
	token, _ := newJWTService().GenerateToken(userID, "FREE", time.Hour)
	f.userRepo.On("GetByID", mock.Anything, userID).Return(nil, domainerrors.ErrNotFound)

	// a valid, unexpired token must not pass once the user is gone
	_, err := f.gateway.Authenticate(ctx, "Bearer "+token)
	require.ErrorIs(t, err, domainerrors.ErrInvalidCredential)
}

func TestAuthGateway_SessionToken_Expired(t *testing.T) {
	f := newGatewayFixture(t)

	expired, _ := newJWTService().GenerateToken(uuid.New(), "FREE", -time.Minute)
	_, err := f.gateway.Authenticate(context.Background(), "Bearer "+expired)
	require.ErrorIs(t, err, domainerrors.ErrExpired)
	assert.NotErrorIs(t, err, domainerrors.ErrInvalidCredential, "expiry is reported as expiry, not tampering")
}

func TestAuthGateway_SessionToken_Garbage(t *testing.T) {
	f := newGatewayFixture(t)

	_, err := f.gateway.Authenticate(context.Background(), "Bearer not.a.jwt")
	require.ErrorIs(t, err, domainerrors.ErrInvalidCredential)
}

func TestAuthGateway_ApiKeyPath(t *testing.T) {
	f := newGatewayFixture(t)
	ctx := context.Background()

	rawKey := entities.KeyPrefix + "abc123"
	key := f.seedKey(rawKey, entities.RateLimit{RequestsPerHour: 10, RequestsPerDay: 100, MaxServers: 3})

	principal, err := f.gateway.Authenticate(ctx, "Bearer "+rawKey)
	require.NoError(t, err)
	assert.Equal(t, key.UserID, principal.UserID)
	assert.Equal(t, entities.CredentialApiKey, principal.Credential)
	assert.Len(t, principal.Permissions, 1)
	require.NotNil(t, principal.RateLimit)
	assert.Equal(t, 3, principal.RateLimit.MaxServers)
	require.NotNil(t, principal.Quota)
	assert.Equal(t, 9, principal.Quota.Remaining)
	assert.False(t, principal.Quota.Exceeded)
}

func TestAuthGateway_ApiKey_Unknown(t *testing.T) {
	f := newGatewayFixture(t)

	raw := entities.KeyPrefix + "unknown"
	f.apiKeyRepo.On("FindByKeyHash", mock.Anything, crypto.SHA256Hex([]byte(raw))).Return(nil, domainerrors.ErrNotFound)

	_, err := f.gateway.Authenticate(context.Background(), "Bearer "+raw)
	require.ErrorIs(t, err, domainerrors.ErrInvalidCredential)
}

func TestAuthGateway_ApiKey_QuotaScenario(t *testing.T) {
	f := newGatewayFixture(t)
	ctx := context.Background()

	rawKey := entities.KeyPrefix + "quota"
	f.seedKey(rawKey, entities.RateLimit{RequestsPerHour: 2, RequestsPerDay: 100})

	// two calls within the window pass
	for i := 0; i < 2; i++ {
		_, err := f.gateway.Authenticate(ctx, "Bearer "+rawKey)
		require.NoError(t, err, "call %d", i+1)
	}

	// the third call within one minute is rejected
	*f.limiterTime = f.limiterTime.Add(time.Minute)
	_, err := f.gateway.Authenticate(ctx, "Bearer "+rawKey)
	require.ErrorIs(t, err, domainerrors.ErrRateLimitExceeded)

	// past the hourly reset the key works again
	*f.limiterTime = f.limiterTime.Add(time.Hour)
	_, err = f.gateway.Authenticate(ctx, "Bearer "+rawKey)
	require.NoError(t, err)
}

func TestAuthGateway_ApiKey_StoreUnavailable(t *testing.T) {
	f := newGatewayFixture(t)

	raw := entities.KeyPrefix + "flaky"
	f.apiKeyRepo.On("FindByKeyHash", mock.Anything, crypto.SHA256Hex([]byte(raw))).
		Return(nil, domainerrors.Unavailable(context.DeadlineExceeded))

	_, err := f.gateway.Authenticate(context.Background(), "Bearer "+raw)
	require.ErrorIs(t, err, domainerrors.ErrUnavailable)
}
