package ws

import "time"

// ConnInfo describes an established hub connection.
type ConnInfo struct {
	ConnID      string
	URL         string
	UserCode    string
	TenantCode  string
	CompanyCode string
	ConnectedAt time.Time
}
