package gateway

import (
	"context"
	"net/http"

	"github.com/joao-fontenele/restaurant-pos/internal/orders"
)

// forwardedHeaders are copied from the inbound request to the upstream one.
var forwardedHeaders = []string{
	"Content-Type",
	"Accept",
	orders.HeaderActorID,
	orders.HeaderActorRole,
}

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

// ForwardRequest replays r against path on the upstream, keeping its query.
func (p *ServiceProxy) ForwardRequest(ctx context.Context, r *http.Request, path string) (*http.Response, error) {
	target := p.baseURL + path
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, target, r.Body)
	if err != nil {
		return nil, err
	}

	for _, h := range forwardedHeaders {
		if v := r.Header.Get(h); v != "" {
			req.Header.Set(h, v)
		}
	}

	return p.client.Do(req)
}
