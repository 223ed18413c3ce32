package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// SessionCookie is the name of the cookie that carries the login session.
const SessionCookie = "sessionid"

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf(
		"unexpected status %d on %s %s", e.StatusCode, e.Method, e.Path,
	)
}

// IsAuthError reports whether err (or any error in its chain) is a 401 or
// 403 response, which means the session expired or the forgery token was
// rejected.
func IsAuthError(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.StatusCode == http.StatusUnauthorized ||
		se.StatusCode == http.StatusForbidden
}

// Client is a thin HTTP client for the laundry web application. Session
// state travels in a cookie jar; requests are never retried.
type Client struct {
	baseURL     *url.URL
	httpClient  *http.Client
	tokenHeader string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient bases the client on a copy of hc. The copy gets a cookie
// jar if hc has none and never follows redirects; hc itself is not
// modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc == nil {
			return
		}
		cp := *hc
		c.httpClient = &cp
	}
}

// WithTokenHeader overrides the forgery-protection header name.
func WithTokenHeader(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.tokenHeader = name
		}
	}
}

// NewClient creates a client rooted at baseURL
// (e.g. http://localhost:8000).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL: u,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		tokenHeader: DefaultTokenHeader,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("creating cookie jar: %w", err)
		}
		c.httpClient.Jar = jar
	}

	// Keep redirects (e.g. to a login page) visible as statuses.
	c.httpClient.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return c, nil
}

// BaseURL returns the root URL of the server.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// SetSession installs a session cookie value into the jar.
func (c *Client) SetSession(value string) {
	c.httpClient.Jar.SetCookies(c.baseURL, []*http.Cookie{{
		Name:  SessionCookie,
		Value: value,
		Path:  "/",
	}})
}

// Session returns the current session cookie value, or "" if none.
func (c *Client) Session() string {
	for _, ck := range c.httpClient.Jar.Cookies(c.baseURL) {
		if ck.Name == SessionCookie {
			return ck.Value
		}
	}
	return ""
}

// Get performs an HTTP GET request and unmarshals the JSON response.
func (c *Client) Get(ctx context.Context, path string, result interface{}) error {
	_, err := c.do(ctx, http.MethodGet, path, nil, nil, result)
	return err
}

// Post performs an HTTP POST with the given headers and form body (may be
// nil) and unmarshals the JSON response into result if non-nil.
func (c *Client) Post(
	ctx context.Context,
	path string,
	header http.Header,
	form url.Values,
	result interface{},
) error {
	_, err := c.do(ctx, http.MethodPost, path, header, form, result)
	return err
}

// GetRaw performs an HTTP GET request and returns the raw body.
func (c *Client) GetRaw(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil, nil, nil)
}

// do builds the request, sends it once and checks the status.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	header http.Header,
	form url.Values,
	result interface{},
) ([]byte, error) {
	target := c.baseURL.String() + path

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	// Django-style forgery checks compare the Referer on HTTPS.
	req.Header.Set("Referer", c.baseURL.String()+"/")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return respBody, &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       truncate(string(respBody), 256),
		}
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return respBody, nil
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return respBody, fmt.Errorf(
			"unmarshaling response from %s %s: %w", method, path, err,
		)
	}

	return respBody, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
