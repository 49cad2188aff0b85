package entities

import "github.com/google/uuid"

// CredentialKind records which path authenticated the request
type CredentialKind string

const (
	CredentialSessionToken CredentialKind = "session_token"
	CredentialApiKey       CredentialKind = "api_key"
)

// Principal is the authenticated identity attached to a request after the
// gateway has accepted it. Permissions and Quota are only populated on the
// API-key path.
type Principal struct {
	UserID      uuid.UUID        `json:"userId"`
	Tier        SubscriptionTier `json:"tier,omitempty"`
	Credential  CredentialKind   `json:"credential"`
	Permissions []Permission     `json:"permissions,omitempty"`
	RateLimit   *RateLimit       `json:"rateLimit,omitempty"`
	Quota       *RateLimitStatus `json:"quota,omitempty"`
}
