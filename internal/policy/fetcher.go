package policy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"chat-session/internal/api"
)

// Fetcher loads one configuration source. A nil config with a nil error
// means the source defines nothing.
type Fetcher interface {
	ApplicationConfig(ctx context.Context, applicationID int) (*SourceConfig, error)
	CompanyConfig(ctx context.Context, companyID int) (*SourceConfig, error)
}

// HTTPFetcher reads configuration from the backend REST API.
type HTTPFetcher struct {
	client *api.Client
}

func NewHTTPFetcher(client *api.Client) *HTTPFetcher {
	return &HTTPFetcher{client: client}
}

func (f *HTTPFetcher) ApplicationConfig(ctx context.Context, applicationID int) (*SourceConfig, error) {
	return f.get(ctx, fmt.Sprintf("/applications/%d/configuration", applicationID))
}

func (f *HTTPFetcher) CompanyConfig(ctx context.Context, companyID int) (*SourceConfig, error) {
	return f.get(ctx, fmt.Sprintf("/companies/%d/configuration", companyID))
}

func (f *HTTPFetcher) get(ctx context.Context, path string) (*SourceConfig, error) {
	body, err := f.client.GetJSON(ctx, path)
	if err != nil {
		var statusErr *api.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	var cfg SourceConfig
	if err := json.Unmarshal(body, &cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &cfg, nil
}
