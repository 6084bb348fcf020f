// Package rest is the HTTP adapter for the codeprac backend's /user API.
// It owns the cookie jar that carries the session credential and
// normalizes every failure to an *authkit.Error: transport problems and
// unusable responses become network errors with a per-action fallback
// message, backend rejections become auth errors carrying the server's
// message field verbatim.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/codeprac/authkit"
)

// DefaultTimeout bounds every request unless overridden
const DefaultTimeout = 15 * time.Second

// Client talks to the /user API. It implements authkit.Backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cookieName string
}

var _ authkit.Backend = (*Client)(nil)
var _ authkit.SessionHinter = (*Client)(nil)

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets a custom base HTTP client (for TLS config, proxies,
// etc.). A cookie jar is attached if the client has none, since the
// session credential is cookie-based.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithSessionCookieName sets the cookie the backend stores the session
// token in. Defaults to "token".
func WithSessionCookieName(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.cookieName = name
		}
	}
}

// New creates a client for the backend at baseURL
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		cookieName: "token",
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		c.httpClient.Jar = jar
	}

	return c, nil
}

// FromConfig creates a client from loaded configuration
func FromConfig(cfg *authkit.Config) (*Client, error) {
	return New(cfg.BaseURL,
		WithTimeout(cfg.RequestTimeout),
		WithSessionCookieName(cfg.SessionCookieName))
}

// BaseURL returns the backend URL this client is configured for
func (c *Client) BaseURL() string {
	return c.baseURL
}

// userEnvelope is the response shape of every identity-bearing endpoint
type userEnvelope struct {
	User    *authkit.User `json:"user"`
	Message string        `json:"message,omitempty"`
}

type ackEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type redirectEnvelope struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
	Message string `json:"message,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
}

type otpRequest struct {
	EmailID string `json:"emailId"`
	OTP     string `json:"otp"`
}

type deleteRequest struct {
	Password string `json:"password"`
}

// Register creates an account directly and signs it in
func (c *Client) Register(ctx context.Context, reg authkit.Registration) (*authkit.User, error) {
	return c.userCall(ctx, http.MethodPost, "/user/register", reg, "Registration failed")
}

// SendOTP asks the backend to email a one-time code
func (c *Client) SendOTP(ctx context.Context, reg authkit.Registration) error {
	var ack ackEnvelope
	return c.do(ctx, http.MethodPost, "/user/send-otp", reg, &ack, "Could not send verification code")
}

// VerifyOTP completes registration with the emailed code
func (c *Client) VerifyOTP(ctx context.Context, emailID, otp string) (*authkit.User, error) {
	body := otpRequest{EmailID: emailID, OTP: otp}
	return c.userCall(ctx, http.MethodPost, "/user/verify-otp", body, "Verification failed")
}

// Login exchanges credentials for a session cookie
func (c *Client) Login(ctx context.Context, creds authkit.Credentials) (*authkit.User, error) {
	return c.userCall(ctx, http.MethodPost, "/user/login", creds, "Login failed")
}

// Check probes the current session cookie
func (c *Client) Check(ctx context.Context) (*authkit.User, error) {
	return c.userCall(ctx, http.MethodGet, "/user/check", nil, "Session expired")
}

// Logout notifies the server. The jar's cookie is dropped by whatever
// Set-Cookie the server answers with.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/user/logout", nil, nil, "Logout failed")
}

// GoogleExchange trades a Google authorization code for a session
func (c *Client) GoogleExchange(ctx context.Context, code string) (*authkit.User, error) {
	path := "/user/google?code=" + url.QueryEscape(code)
	return c.userCall(ctx, http.MethodGet, path, nil, "Google sign-in failed")
}

// GithubExchange trades a GitHub authorization code for a session
func (c *Client) GithubExchange(ctx context.Context, code string) (*authkit.User, error) {
	path := "/user/github/callback?code=" + url.QueryEscape(code)
	return c.userCall(ctx, http.MethodGet, path, nil, "GitHub sign-in failed")
}

// GithubAuthorizeURL asks the backend for the GitHub consent URL
func (c *Client) GithubAuthorizeURL(ctx context.Context) (string, error) {
	var env redirectEnvelope
	if err := c.do(ctx, http.MethodGet, "/user/github", nil, &env, "GitHub sign-in unavailable"); err != nil {
		return "", err
	}
	if !env.Success || env.URL == "" {
		return "", authkit.NewNetworkError("GitHub sign-in unavailable")
	}
	return env.URL, nil
}

// ChangePassword updates the signed-in user's password
func (c *Client) ChangePassword(ctx context.Context, change authkit.PasswordChange) error {
	var ack ackEnvelope
	return c.do(ctx, http.MethodPut, "/user/password", change, &ack, "Password change failed")
}

// DeleteAccount removes the signed-in user's account
func (c *Client) DeleteAccount(ctx context.Context, password string) error {
	var ack ackEnvelope
	return c.do(ctx, http.MethodDelete, "/user/account", deleteRequest{Password: password}, &ack, "Account deletion failed")
}

// UpdateProfile saves profile fields and returns the updated user
func (c *Client) UpdateProfile(ctx context.Context, update authkit.ProfileUpdate) (*authkit.User, error) {
	return c.userCall(ctx, http.MethodPut, "/user/profile", update, "Profile update failed")
}

// userCall runs a request whose success response carries a user record
func (c *Client) userCall(ctx context.Context, method, path string, body any, fallback string) (*authkit.User, error) {
	var env userEnvelope
	if err := c.do(ctx, method, path, body, &env, fallback); err != nil {
		return nil, err
	}
	if env.User == nil {
		slog.Warn("response missing user record", "path", path)
		return nil, authkit.NewNetworkError(fallback)
	}
	return env.User, nil
}

// do runs one round-trip: JSON in, JSON out, everything non-2xx or
// non-transportable normalized to an *authkit.Error
func (c *Client) do(ctx context.Context, method, path string, body, out any, fallback string) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return authkit.NewNetworkError(fallback)
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return authkit.NewNetworkError(fallback)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Warn("request failed", "method", method, "path", path, "error", err)
		return authkit.NewNetworkError(fallback)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return authkit.NewNetworkError(fallback)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return normalizeError(resp.StatusCode, data, fallback)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			slog.Warn("unparseable response", "path", path, "error", err)
			return authkit.NewNetworkError(fallback)
		}
	}
	return nil
}

// normalizeError prefers the server's message field verbatim, falling
// back to the per-action generic. Server-side failures are network
// errors; anything else the backend answered deliberately is an auth
// rejection.
func normalizeError(status int, body []byte, fallback string) *authkit.Error {
	msg := fallback
	var apiErr apiError
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
		msg = apiErr.Message
	}
	if status >= http.StatusInternalServerError {
		return authkit.NewNetworkError(msg)
	}
	return authkit.NewAuthError(msg)
}
