// Package auth validates storefront credentials for the CVPS gateway.
// Credential pairs come from configuration; resolved identities are cached
// in a W-TinyLFU cache so the hot path skips the constant-time scan.
package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/maypok86/otter/v2"

	gateway "github.com/latitude36/cvps-gateway/internal"
	"github.com/latitude36/cvps-gateway/internal/config"
)

const (
	cacheTTL    = 30 * time.Second // short enough to pick up credential rotation promptly
	cacheMaxLen = 1_000
)

// CredentialAuth authenticates X-API-Key / X-Site-ID pairs against the
// configured credential list.
type CredentialAuth struct {
	credentials []config.Credential
	cache       *otter.Cache[string, *gateway.Identity]
}

// NewCredentialAuth returns a CredentialAuth for the configured pairs.
func NewCredentialAuth(credentials []config.Credential) (*CredentialAuth, error) {
	c, err := otter.New(&otter.Options[string, *gateway.Identity]{
		MaximumSize:      cacheMaxLen,
		ExpiryCalculator: otter.ExpiryWriting[string, *gateway.Identity](cacheTTL),
	})
	if err != nil {
		return nil, fmt.Errorf("create auth cache: %w", err)
	}
	return &CredentialAuth{credentials: credentials, cache: c}, nil
}

// Authenticate validates the header pair and returns the caller's Identity.
// Missing or unknown credentials return ErrUnauthorized.
func (a *CredentialAuth) Authenticate(_ context.Context, apiKey, siteID string) (*gateway.Identity, error) {
	if apiKey == "" || siteID == "" {
		return nil, gateway.ErrUnauthorized
	}

	cacheKey := apiKey + ":" + siteID
	if id, ok := a.cache.GetIfPresent(cacheKey); ok {
		return id, nil
	}

	// Constant-time scan over all configured pairs so response timing does
	// not reveal which half of the pair was wrong.
	matched := false
	for _, cred := range a.credentials {
		keyOK := subtle.ConstantTimeCompare([]byte(cred.APIKey), []byte(apiKey)) == 1
		siteOK := subtle.ConstantTimeCompare([]byte(cred.SiteID), []byte(siteID)) == 1
		if keyOK && siteOK {
			matched = true
		}
	}
	if !matched {
		return nil, gateway.ErrUnauthorized
	}

	id := &gateway.Identity{APIKey: apiKey, SiteID: siteID}
	a.cache.Set(cacheKey, id)
	return id, nil
}
