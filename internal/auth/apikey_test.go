package auth

import (
	"context"
	"errors"
	"testing"

	gateway "github.com/latitude36/cvps-gateway/internal"
	"github.com/latitude36/cvps-gateway/internal/config"
)

func newTestAuth(t *testing.T) *CredentialAuth {
	t.Helper()
	a, err := NewCredentialAuth([]config.Credential{
		{APIKey: "storefront-key-1", SiteID: "latitude36.com.au"},
		{APIKey: "storefront-key-2", SiteID: "staging.latitude36.com.au"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestAuthenticate_ValidPair(t *testing.T) {
	t.Parallel()
	a := newTestAuth(t)

	id, err := a.Authenticate(context.Background(), "storefront-key-1", "latitude36.com.au")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if id.APIKey != "storefront-key-1" || id.SiteID != "latitude36.com.au" {
		t.Fatalf("identity = %+v", id)
	}
}

func TestAuthenticate_MissingHeaders(t *testing.T) {
	t.Parallel()
	a := newTestAuth(t)

	cases := []struct {
		name   string
		apiKey string
		siteID string
	}{
		{"no key", "", "latitude36.com.au"},
		{"no site", "storefront-key-1", ""},
		{"neither", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := a.Authenticate(context.Background(), tc.apiKey, tc.siteID); !errors.Is(err, gateway.ErrUnauthorized) {
				t.Fatalf("err = %v, want ErrUnauthorized", err)
			}
		})
	}
}

func TestAuthenticate_MismatchedPair(t *testing.T) {
	t.Parallel()
	a := newTestAuth(t)

	// Both halves exist, but in different configured pairs.
	_, err := a.Authenticate(context.Background(), "storefront-key-1", "staging.latitude36.com.au")
	if !errors.Is(err, gateway.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestAuthenticate_UnknownKey(t *testing.T) {
	t.Parallel()
	a := newTestAuth(t)

	_, err := a.Authenticate(context.Background(), "wrong-key", "latitude36.com.au")
	if !errors.Is(err, gateway.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestAuthenticate_CachesIdentity(t *testing.T) {
	t.Parallel()
	a := newTestAuth(t)

	first, err := a.Authenticate(context.Background(), "storefront-key-2", "staging.latitude36.com.au")
	if err != nil {
		t.Fatal(err)
	}
	second, err := a.Authenticate(context.Background(), "storefront-key-2", "staging.latitude36.com.au")
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("second lookup should return the cached identity")
	}
}

func TestAuthenticate_NoCredentialsConfigured(t *testing.T) {
	t.Parallel()
	a, err := NewCredentialAuth(nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.Authenticate(context.Background(), "any", "any"); !errors.Is(err, gateway.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}
