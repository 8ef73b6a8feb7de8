package ws

import (
	"crypto/rand"
	"encoding/hex"
	"net/url"
	"strings"
)

func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}

// hubURL converts an http(s) endpoint to ws(s) and appends the handshake
// query parameters.
func hubURL(endpoint string, params HandshakeParams) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	q := u.Query()
	setIfPresent(q, "tenantCode", params.TenantCode)
	setIfPresent(q, "userCode", params.UserCode)
	setIfPresent(q, "companyCode", params.CompanyCode)
	setIfPresent(q, "access_token", params.Token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func setIfPresent(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}
