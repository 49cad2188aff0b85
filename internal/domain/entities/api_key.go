package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// KeyPrefix is the fixed prefix every raw hub API key starts with. The
// gateway uses it to tell an API key apart from a session token.
const KeyPrefix = "mcp_"

// Permission grants a set of actions on a single resource. A key holds
// several permissions evaluated as a union.
type Permission struct {
	Resource string   `json:"resource"`
	Actions  []string `json:"actions"`
}

// RateLimit is the quota policy attached to a key at creation. Immutable for
// the key's lifetime; changing it means issuing a new key. MaxServers is an
// advisory concurrency ceiling enforced by callers, not by the limiter.
type RateLimit struct {
	RequestsPerHour int `json:"requestsPerHour"`
	RequestsPerDay  int `json:"requestsPerDay"`
	MaxServers      int `json:"maxServers"`
}

// RateLimitStatus is derived per check, never stored
type RateLimitStatus struct {
	Remaining int       `json:"remaining"`
	ResetTime time.Time `json:"resetTime"`
	Exceeded  bool      `json:"exceeded"`
}

// ApiKey represents an API key for a user. The raw key string is shown once
// at creation; only its SHA-256 hash is persisted.
type ApiKey struct {
	ID          uuid.UUID    `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	UserID      uuid.UUID    `json:"userId" gorm:"type:uuid;not null"`
	Name        string       `json:"name" gorm:"type:varchar(100);not null"`
	KeyPrefix   string       `json:"keyPrefix" gorm:"type:varchar(20);not null"`
	KeyHash     string       `json:"-" gorm:"type:varchar(64);uniqueIndex;not null"`
	Permissions []Permission `json:"permissions" gorm:"-"`
	RateLimit   RateLimit    `json:"rateLimit" gorm:"-"`
	LastUsedAt  null.Time    `json:"lastUsedAt,omitempty"`
	ExpiresAt   null.Time    `json:"expiresAt,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	DeletedAt   *time.Time   `json:"-" gorm:"index"`

	// Relationships
	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// Can reports whether the key's permissions allow action on resource.
// Union semantics: any matching permission grants it. A "*" resource or
// action acts as a wildcard.
func (k *ApiKey) Can(resource, action string) bool {
	for _, p := range k.Permissions {
		if p.Resource != resource && p.Resource != "*" {
			continue
		}
		for _, a := range p.Actions {
			if a == action || a == "*" {
				return true
			}
		}
	}
	return false
}

// Expired reports whether the key is past its optional expiry at the given
// instant
func (k *ApiKey) Expired(now time.Time) bool {
	return k.ExpiresAt.Valid && now.After(k.ExpiresAt.Time)
}

type CreateApiKeyInput struct {
	Name        string       `json:"name" binding:"required"`
	Permissions []Permission `json:"permissions"`
	RateLimit   *RateLimit   `json:"rateLimit,omitempty"`
	ExpiresAt   *time.Time   `json:"expiresAt,omitempty"`
}

type CreateApiKeyResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	ApiKey    string    `json:"apiKey"`
	RateLimit RateLimit `json:"rateLimit"`
	CreatedAt time.Time `json:"createdAt"`
}

// ApiKeyValidation is the outcome of validating a raw key string
type ApiKeyValidation struct {
	Valid       bool
	KeyID       uuid.UUID
	UserID      uuid.UUID
	Permissions []Permission
	RateLimit   RateLimit
}
