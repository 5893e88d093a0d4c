package reefpi

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/reeflink/reeflink/internal/infrastructure/config"
)

// Client is a typed wrapper over the reef-pi controller's HTTP API.
//
// Authentication is session-cookie based and lazy: the client is not
// authenticated by construction. Every call first checks the local
// session flag and returns ErrInvalidAuth immediately if no session is
// established, avoiding a wasted round-trip. Re-authentication is the
// caller's responsibility, triggered on first observed auth failure per
// refresh cycle.
//
// A non-2xx response with a body is treated as "no data for this
// resource" (zero-value result), not as an error - the controller
// returns such responses for legitimately empty resources.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	baseURL    string
	httpClient *http.Client

	// cookie holds the auth session cookie value. Replaced wholesale on
	// re-authentication, never patched.
	cookie string
	mu     sync.RWMutex
}

// New creates a controller client from configuration.
//
// TLS verification is disabled when cfg.VerifyTLS is false; reef-pi
// installs commonly run with self-signed certificates on a trusted LAN.
func New(cfg config.ControllerConfig) *Client {
	transport := http.DefaultTransport
	if !cfg.VerifyTLS {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, // #nosec G402 -- operator opt-in for self-signed controllers
		}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.Host, "/"),
		httpClient: &http.Client{
			Timeout:   time.Duration(cfg.Timeout) * time.Second,
			Transport: transport,
		},
	}
}

// IsAuthenticated reports whether a session cookie is held.
func (c *Client) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cookie != ""
}

// InvalidateSession discards the held session cookie, forcing the next
// Authenticate before further calls succeed.
func (c *Client) InvalidateSession() {
	c.mu.Lock()
	c.cookie = ""
	c.mu.Unlock()
}

// Authenticate signs in to the controller and stores the session cookie.
//
// Returns ErrCannotConnect on network failure and ErrInvalidAuth if the
// controller rejects the credentials.
func (c *Client) Authenticate(ctx context.Context, username, password string) error {
	body, err := json.Marshal(map[string]string{
		"user":     username,
		"password": password,
	})
	if err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/signin", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building signin request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCannotConnect, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: signin returned status %d", ErrInvalidAuth, resp.StatusCode)
	}

	for _, cookie := range resp.Cookies() {
		if cookie.Name == "auth" {
			c.mu.Lock()
			c.cookie = cookie.Value
			c.mu.Unlock()
			return nil
		}
	}

	return fmt.Errorf("%w: signin response carried no auth cookie", ErrInvalidAuth)
}

// get performs an authenticated GET against /api/{path} and decodes the
// response into out. A non-2xx status leaves out untouched and returns
// nil. Pass nil to discard the body.
func (c *Client) get(ctx context.Context, path string, out any) error {
	c.mu.RLock()
	cookie := c.cookie
	c.mu.RUnlock()
	if cookie == "" {
		return ErrInvalidAuth
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/"+path, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", path, err)
	}
	req.AddCookie(&http.Cookie{Name: "auth", Value: cookie})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %w", ErrCannotConnect, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Empty resource, not a hard error.
		return nil
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// post performs an authenticated POST against /api/{path}.
//
// Returns ok=false with the response body when the controller rejects
// the request with a non-2xx status; the body is surfaced so callers
// can report the controller's rejection message.
func (c *Client) post(ctx context.Context, path string, payload any) (ok bool, body string, err error) {
	c.mu.RLock()
	cookie := c.cookie
	c.mu.RUnlock()
	if cookie == "" {
		return false, "", ErrInvalidAuth
	}

	var reqBody []byte
	if payload != nil {
		reqBody, err = json.Marshal(payload)
		if err != nil {
			return false, "", fmt.Errorf("encoding %s payload: %w", path, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/"+path, bytes.NewReader(reqBody))
	if err != nil {
		return false, "", fmt.Errorf("building request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: "auth", Value: cookie})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, "", fmt.Errorf("%w: POST %s: %w", ErrCannotConnect, path, err)
	}
	defer resp.Body.Close()

	respBody := readBodyLimited(resp)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, respBody, nil
	}
	return true, respBody, nil
}

// maxResponseBody caps how much of a response body is read when
// surfacing controller rejection messages.
const maxResponseBody = 4 << 10 // 4KB

func readBodyLimited(resp *http.Response) string {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
