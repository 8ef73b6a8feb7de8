// Package auth consumes the bearer token and cached profile supplied by the
// hosting application. It never issues or refreshes tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoToken is returned by providers that have no token to hand out.
var ErrNoToken = errors.New("auth: no bearer token available")

// Profile is the locally cached user profile.
type Profile struct {
	UserID      string `json:"userId"`
	UserName    string `json:"userName"`
	TenantCode  string `json:"tenantCode"`
	CompanyCode string `json:"companyCode"`
}

// Provider supplies the current token and cached profile. Token is invoked
// once per connection attempt so rotated tokens are picked up on reconnect.
type Provider interface {
	Token(ctx context.Context) (string, error)
	Profile() Profile
}

// StaticProvider serves a fixed token and profile.
type StaticProvider struct {
	BearerToken string
	Cached      Profile
}

// Token implements Provider.
func (p StaticProvider) Token(context.Context) (string, error) {
	if p.BearerToken == "" {
		return "", ErrNoToken
	}
	return p.BearerToken, nil
}

// Profile implements Provider.
func (p StaticProvider) Profile() Profile {
	return p.Cached
}

// Identity is the set of identifiers sent with the hub handshake.
type Identity struct {
	UserID      string
	TenantCode  string
	CompanyCode string
}

var (
	userClaims    = []string{"userId", "user_id", "nameid", "sub"}
	tenantClaims  = []string{"tenantCode", "tenant_code", "tenant"}
	companyClaims = []string{"companyCode", "company_code", "company"}
)

// ResolveIdentity reads identifiers from token claims first and falls back,
// field by field, to the cached profile. The token signature is not checked;
// the backend verifies it during the handshake.
func ResolveIdentity(token string, profile Profile) Identity {
	claims := parseClaims(token)
	return Identity{
		UserID:      firstClaim(claims, userClaims, profile.UserID),
		TenantCode:  firstClaim(claims, tenantClaims, profile.TenantCode),
		CompanyCode: firstClaim(claims, companyClaims, profile.CompanyCode),
	}
}

func parseClaims(token string) jwt.MapClaims {
	if token == "" {
		return nil
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	return claims
}

func firstClaim(claims jwt.MapClaims, names []string, fallback string) string {
	for _, name := range names {
		if v, ok := claims[name]; ok {
			if s := claimString(v); s != "" {
				return s
			}
		}
	}
	return fallback
}

func claimString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}
