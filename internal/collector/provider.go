package collector

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"PriceLakehouse/internal/frame"
	"PriceLakehouse/internal/model"
)

// Provider fetches daily history for one symbol. A symbol with no data in
// the window yields an empty frame and a nil error.
type Provider interface {
	Name() string
	History(ctx context.Context, symbol string, w model.Window) (*frame.Raw, error)
}

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=collector_test -destination=mocks_test.go -source=provider.go
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

const requestTimeout = 30 * time.Second

// newHTTPClient builds the default client, routed through proxyURL when set.
func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{Timeout: requestTimeout, Transport: transport}
}
