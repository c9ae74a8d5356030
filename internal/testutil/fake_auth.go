package testutil

import (
	"context"

	gateway "github.com/latitude36/cvps-gateway/internal"
)

// FakeAuth accepts any non-empty credential pair.
type FakeAuth struct{}

// Authenticate returns an identity for the supplied pair.
func (FakeAuth) Authenticate(_ context.Context, apiKey, siteID string) (*gateway.Identity, error) {
	if apiKey == "" || siteID == "" {
		return nil, gateway.ErrUnauthorized
	}
	return &gateway.Identity{APIKey: apiKey, SiteID: siteID}, nil
}

// RejectAuth always rejects authentication.
type RejectAuth struct{}

// Authenticate always returns ErrUnauthorized.
func (RejectAuth) Authenticate(context.Context, string, string) (*gateway.Identity, error) {
	return nil, gateway.ErrUnauthorized
}
