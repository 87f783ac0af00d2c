package gateway

import (
	"context"
	"net/http"
)

// forwardedHeaders are copied from the inbound request. X-Buyer-ID and
// X-Shop-ID carry the request-scoped identity the services key on.
var forwardedHeaders = []string{"Content-Type", "X-Buyer-ID", "X-Shop-ID"}

type ServiceProxy struct {
	baseURL string
	client  *http.Client
}

func NewServiceProxy(baseURL string, client *http.Client) *ServiceProxy {
	return &ServiceProxy{
		baseURL: baseURL,
		client:  client,
	}
}

func (p *ServiceProxy) ForwardRequest(ctx context.Context, r *http.Request, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, r.Method, p.baseURL+path, r.Body)
	if err != nil {
		return nil, err
	}

	for _, header := range forwardedHeaders {
		if value := r.Header.Get(header); value != "" {
			req.Header.Set(header, value)
		}
	}

	return p.client.Do(req)
}
