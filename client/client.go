// Package client is a small HTTP client for a running oneblog server.
// It asks the server how an email may sign in and, given an auth token,
// makes authenticated requests on the user's behalf.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	ob "github.com/panyam/oneblog"
)

// Client talks to a single blog server
type Client struct {
	serverURL     string
	httpClient    *http.Client
	baseTransport http.RoundTripper
	token         string
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient sets a custom base HTTP client (for timeouts, TLS config, etc.)
// The transport from this client will be wrapped with auth handling.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client == nil {
			return
		}
		if client.Transport != nil {
			c.baseTransport = client.Transport
		}
		c.httpClient.Timeout = client.Timeout
		c.httpClient.Jar = client.Jar
	}
}

// WithTransport sets a custom base transport
func WithTransport(transport http.RoundTripper) ClientOption {
	return func(c *Client) {
		c.baseTransport = transport
	}
}

// WithToken sends token as a Bearer credential on every request
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// NewClient creates a client for the server at serverURL
func NewClient(serverURL string, opts ...ClientOption) *Client {
	// Normalize server URL
	u, err := url.Parse(serverURL)
	if err == nil && u.Scheme != "" && u.Host != "" {
		serverURL = fmt.Sprintf("%s://%s", u.Scheme, u.Host)
	}

	c := &Client{
		serverURL:     serverURL,
		httpClient:    &http.Client{},
		baseTransport: http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.httpClient.Transport = c.baseTransport
	if c.token != "" {
		c.httpClient.Transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: c.token, TokenType: "Bearer"}),
			Base:   c.baseTransport,
		}
	}
	// Protected pages answer with a redirect to the sign in page. Surface it instead of following it.
	c.httpClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return c
}

// HTTPClient returns the underlying HTTP client with auth handling
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// ServerURL returns the server URL this client is configured for
func (c *Client) ServerURL() string {
	return c.serverURL
}

// VerifyEmail asks the server which operations the sign in form offers for email
func (c *Client) VerifyEmail(ctx context.Context, email string) (ob.AvailableOperations, error) {
	var out struct {
		AvailableOperations ob.AvailableOperations `json:"available_operations"`
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serverURL+"/api/verify_email/"+url.PathEscape(email), nil)
	if err != nil {
		return out.AvailableOperations, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return out.AvailableOperations, fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return out.AvailableOperations, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return out.AvailableOperations, fmt.Errorf("verify email failed: HTTP %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out.AvailableOperations, fmt.Errorf("invalid response from server: %w", err)
	}
	return out.AvailableOperations, nil
}

// IsLoggedIn reports whether the server accepts this client's token for the post list
func (c *Client) IsLoggedIn(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serverURL+"/", nil)
	if err != nil {
		return false, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK:
		return true, nil
	case resp.StatusCode == http.StatusFound && strings.HasPrefix(resp.Header.Get("Location"), "/verify"):
		return false, nil
	default:
		return false, fmt.Errorf("unexpected response: HTTP %d", resp.StatusCode)
	}
}
