package auth

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestResolveIdentityPrefersClaims(t *testing.T) {
	token := signed(t, jwt.MapClaims{"sub": "u-1", "userId": float64(77), "tenantCode": "ACME"})
	profile := Profile{UserID: "cached", TenantCode: "OLD", CompanyCode: "C9"}

	id := ResolveIdentity(token, profile)

	assert.Equal(t, "77", id.UserID)
	assert.Equal(t, "ACME", id.TenantCode)
	assert.Equal(t, "C9", id.CompanyCode, "company falls back to profile")
}

func TestResolveIdentityMalformedTokenUsesProfile(t *testing.T) {
	profile := Profile{UserID: "5", TenantCode: "T", CompanyCode: "C"}
	id := ResolveIdentity("not-a-jwt", profile)
	assert.Equal(t, Identity{UserID: "5", TenantCode: "T", CompanyCode: "C"}, id)
}

func TestStaticProvider(t *testing.T) {
	_, err := StaticProvider{}.Token(context.Background())
	require.ErrorIs(t, err, ErrNoToken)

	p := StaticProvider{BearerToken: "abc", Cached: Profile{UserName: "ana"}}
	tok, err := p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)
	assert.Equal(t, "ana", p.Profile().UserName)
}
