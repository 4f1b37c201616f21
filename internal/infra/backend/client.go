// Package backend is the REST client for the Maple social backend:
// login with a persisted session cookie, account management and friend
// operations.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultTimeout for backend HTTP requests. No retry policy; errors
	// surface to the caller.
	DefaultTimeout = 30 * time.Second

	cookieFile = "cookies.json"
)

// ErrUnauthorized is returned when the session is missing or expired.
var ErrUnauthorized = fmt.Errorf("backend: unauthorized")

// Account is the backend's account record.
type Account struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Image       string `json:"image,omitempty"`
}

// Client talks to the backend over HTTPS with a cookie-backed session
// persisted across restarts.
type Client struct {
	baseURL    string
	dataDir    string
	httpClient *http.Client
	jar        *cookiejar.Jar
}

// Option is a functional option for configuring the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client. The client's Jar is replaced
// by the session jar.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Client) { b.httpClient = c }
}

// NewClient creates a backend client rooted at baseURL, restoring any
// session cookies persisted under dataDir.
func NewClient(baseURL, dataDir string, opts ...Option) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	c := &Client{
		baseURL:    baseURL,
		dataDir:    dataDir,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		jar:        jar,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.httpClient.Jar = jar

	if err := c.restoreCookies(); err != nil {
		log.Warn().Err(err).Msg("Could not restore session cookies")
	}
	return c, nil
}

// Login authenticates and persists the session cookie. The returned
// account carries the id used to key now-playing side effects.
func (c *Client) Login(ctx context.Context, username, password string) (Account, error) {
	var account Account
	body := map[string]string{"username": username, "password": password}
	if err := c.postJSON(ctx, "/api/auth/login", body, &account); err != nil {
		return Account{}, err
	}
	if err := c.saveCookies(); err != nil {
		log.Warn().Err(err).Msg("Could not persist session cookies")
	}
	log.Info().Str("id", account.ID).Str("username", account.Username).Msg("Logged in")
	return account, nil
}

// GetAccount fetches an account by id.
func (c *Client) GetAccount(ctx context.Context, id string) (Account, error) {
	var account Account
	err := c.getJSON(ctx, "/api/accounts/"+url.PathEscape(id), &account)
	return account, err
}

// PublicProfile fetches another user's public profile by username.
func (c *Client) PublicProfile(ctx context.Context, username string) (Account, error) {
	var account Account
	err := c.getJSON(ctx, "/api/profiles/"+url.PathEscape(username), &account)
	return account, err
}

// SetDisplayName updates the session account's display name.
func (c *Client) SetDisplayName(ctx context.Context, name string) error {
	return c.postJSON(ctx, "/api/accounts/displayName", map[string]string{"displayName": name}, nil)
}

// SetProfileImage uploads artwork as the account's profile image via
// multipart POST.
func (c *Client) SetProfileImage(ctx context.Context, accountID string, image []byte, filename string) error {
	if accountID == "" {
		return ErrUnauthorized
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return fmt.Errorf("create image part: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return fmt.Errorf("write image part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("finalize form: %w", err)
	}

	endpoint := c.baseURL + "/api/accounts/" + url.PathEscape(accountID) + "/image"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return nil
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	default:
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
}

// persistedCookie is the on-disk cookie representation.
type persistedCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Path    string    `json:"path,omitempty"`
	Domain  string    `json:"domain,omitempty"`
	Expires time.Time `json:"expires,omitempty"`
	Secure  bool      `json:"secure,omitempty"`
}

func (c *Client) cookiePath() string {
	return filepath.Join(c.dataDir, cookieFile)
}

func (c *Client) saveCookies() error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return err
	}
	var cookies []persistedCookie
	for _, ck := range c.jar.Cookies(u) {
		cookies = append(cookies, persistedCookie{
			Name:    ck.Name,
			Value:   ck.Value,
			Path:    ck.Path,
			Domain:  ck.Domain,
			Expires: ck.Expires,
			Secure:  ck.Secure,
		})
	}
	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.cookiePath(), data, 0o600)
}

func (c *Client) restoreCookies() error {
	data, err := os.ReadFile(c.cookiePath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	var cookies []persistedCookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return err
	}
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return err
	}
	restored := make([]*http.Cookie, 0, len(cookies))
	for _, ck := range cookies {
		restored = append(restored, &http.Cookie{
			Name:    ck.Name,
			Value:   ck.Value,
			Path:    ck.Path,
			Domain:  ck.Domain,
			Expires: ck.Expires,
			Secure:  ck.Secure,
		})
	}
	c.jar.SetCookies(u, restored)
	return nil
}

// SessionCookies returns the current cookies for the backend origin, for
// use by the socket channel.
func (c *Client) SessionCookies() []*http.Cookie {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil
	}
	return c.jar.Cookies(u)
}
