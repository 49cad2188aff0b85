package usecases

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/onetop21/mcp-server-hub-sub003/internal/domain/entities"
	domainerrors "github.com/onetop21/mcp-server-hub-sub003/internal/domain/errors"
	"github.com/onetop21/mcp-server-hub-sub003/internal/domain/repositories"
	"github.com/onetop21/mcp-server-hub-sub003/internal/rate"
	"github.com/onetop21/mcp-server-hub-sub003/pkg/jwt"
	"github.com/onetop21/mcp-server-hub-sub003/pkg/metrics"
)

const bearerPrefix = "Bearer "

// AuthGateway is the single entry point the routing layer calls once per
// inbound request. It dispatches on the credential shape: a bearer value
// carrying the key prefix goes down the API-key path with quota accounting,
// anything else is treated as a session token.
type AuthGateway struct {
	jwtService *jwt.JWTService
	apiKeys    *ApiKeyUsecase
	limiter    *rate.Limiter
	userRepo   repositories.UserRepository
	// storeTimeout bounds credential-store lookups on the request path
	storeTimeout time.Duration
}

func NewAuthGateway(
	jwtService *jwt.JWTService,
	apiKeys *ApiKeyUsecase,
	limiter *rate.Limiter,
	userRepo repositories.UserRepository,
	storeTimeout time.Duration,
) *AuthGateway {
	return &AuthGateway{
		jwtService:   jwtService,
		apiKeys:      apiKeys,
		limiter:      limiter,
		userRepo:     userRepo,
		storeTimeout: storeTimeout,
	}
}

// Authenticate resolves the Authorization header value into a principal or
// one terminal failure from the taxonomy. It never retries.
func (g *AuthGateway) Authenticate(ctx context.Context, authorizationHeader string) (*entities.Principal, error) {
	credential, err := extractBearer(authorizationHeader)
	if err != nil {
		metrics.AuthRequests.WithLabelValues(metrics.OutcomeMissingCredential, "none").Inc()
		return nil, err
	}

	if g.storeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.storeTimeout)
		defer cancel()
	}

	var principal *entities.Principal
	kind := string(entities.CredentialSessionToken)
	if strings.HasPrefix(credential, entities.KeyPrefix) {
		kind = string(entities.CredentialApiKey)
		principal, err = g.authenticateApiKey(ctx, credential)
	} else {
		principal, err = g.authenticateToken(ctx, credential)
	}

	metrics.AuthRequests.WithLabelValues(outcomeLabel(err), kind).Inc()
	// on a rate-limit rejection the principal still carries the quota state
	// so the transport layer can answer with reset headers
	return principal, err
}

// authenticateApiKey is Path B: validate then consume one unit of quota.
// The increment happens even when the verdict is exceeded.
func (g *AuthGateway) authenticateApiKey(ctx context.Context, rawKey string) (*entities.Principal, error) {
	validation, err := g.apiKeys.ValidateApiKey(ctx, rawKey)
	if err != nil {
		return nil, g.normalize(err)
	}

	status := g.limiter.Check(validation.KeyID, validation.RateLimit)
	principal := &entities.Principal{
		UserID:      validation.UserID,
		Credential:  entities.CredentialApiKey,
		Permissions: validation.Permissions,
		RateLimit:   &validation.RateLimit,
		Quota:       &status,
	}
	if status.Exceeded {
		metrics.RateLimitExceeded.Inc()
		return principal, domainerrors.RateLimitExceeded("api key quota exhausted")
	}
	return principal, nil
}

// authenticateToken is Path A: verify the signature and expiry, then confirm
// the referenced user still exists. A deleted user must not pass even with a
// valid, unexpired token.
func (g *AuthGateway) authenticateToken(ctx context.Context, tokenString string) (*entities.Principal, error) {
	claims, err := g.jwtService.ValidateToken(tokenString)
	if err != nil {
		if errors.Is(err, jwt.ErrExpiredToken) {
			return nil, domainerrors.Expired("token has expired")
		}
		return nil, domainerrors.InvalidCredential("invalid token")
	}

	user, err := g.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.InvalidCredential("token references unknown user")
		}
		return nil, g.normalize(err)
	}

	return &entities.Principal{
		UserID:     user.ID,
		Tier:       user.Tier,
		Credential: entities.CredentialSessionToken,
	}, nil
}

// normalize maps infrastructure failures to the gateway taxonomy so callers
// never see raw store errors
func (g *AuthGateway) normalize(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domainerrors.ErrInvalidCredential),
		errors.Is(err, domainerrors.ErrExpired),
		errors.Is(err, domainerrors.ErrRateLimitExceeded),
		errors.Is(err, domainerrors.ErrForbidden):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, domainerrors.ErrUnavailable):
		return domainerrors.Unavailable(err)
	default:
		return domainerrors.InternalError(err)
	}
}

func extractBearer(header string) (string, error) {
	if header == "" {
		return "", domainerrors.MissingCredential("authorization header is required")
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", domainerrors.MissingCredential("authorization format must be: Bearer <credential>")
	}
	credential := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if credential == "" {
		return "", domainerrors.MissingCredential("empty bearer credential")
	}
	return credential, nil
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeAuthenticated
	case errors.Is(err, domainerrors.ErrMissingCredential):
		return metrics.OutcomeMissingCredential
	case errors.Is(err, domainerrors.ErrExpired):
		return metrics.OutcomeExpired
	case errors.Is(err, domainerrors.ErrRateLimitExceeded):
		return metrics.OutcomeRateLimited
	case errors.Is(err, domainerrors.ErrInvalidCredential):
		return metrics.OutcomeInvalidCredential
	default:
		return metrics.OutcomeInternalError
	}
}
