package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	schemeHttps = "https"

	// some providers refuse the default go user agent
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
)

type Connection interface {
	Request(ctx context.Context, endpoint *url.URL) (*http.Response, error)
}

type ClientHost struct {
	client *http.Client
	scheme string
	host   string
}

type Client struct {
	Connection Connection
	ApiKey     string
}

// ErrHTTP is returned when the provider answers with a non 2xx status
type ErrHTTP struct {
	StatusCode int
	Body       string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Body)
}

func (conn *ClientHost) Request(ctx context.Context, endpoint *url.URL) (*http.Response, error) {
	endpoint.Scheme = conn.scheme
	endpoint.Host = conn.host

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("Accept", "application/json")

	response, err := conn.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error requesting %s: %w", endpoint.Path, err)
	}

	if response.StatusCode >= 400 {
		defer response.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(response.Body, 1024))
		return nil, &ErrHTTP{StatusCode: response.StatusCode, Body: string(body)}
	}

	return response, nil
}

func ClientFactory(host string, apiKey string, timeout time.Duration) *Client {
	return &Client{
		Connection: NewClientHost(schemeHttps, host, timeout),
		ApiKey:     apiKey,
	}
}

// NewClientHost builds a connection to scheme://host, tests point it at an httptest server
func NewClientHost(scheme, host string, timeout time.Duration) *ClientHost {
	return &ClientHost{
		client: &http.Client{Timeout: timeout},
		scheme: scheme,
		host:   host,
	}
}
