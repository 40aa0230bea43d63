package goolstar

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/juanqui-art/goolstar-go/session"
)

// TokenProvider is the capability the authenticated client needs from the
// session layer: a current (possibly refreshed) access token and a way to
// tear the session down. *session.Store satisfies it; the client deliberately
// does not know the store type, which keeps the dependency pointing one way.
type TokenProvider interface {
	ValidateAndRefreshIfNeeded(ctx context.Context) bool
	CurrentAccessToken() string
	Logout()
}

// Notifier surfaces request failures to the user. Implementations typically
// bridge to a toast/banner system; [NopNotifier] discards everything.
type Notifier interface {
	Notify(message string)
}

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) Notify(string) {}

// RequestOptions customizes one client call.
type RequestOptions struct {
	Method  string // empty selects GET
	Body    any    // JSON-encoded when non-nil
	Headers map[string]string
	Query   url.Values

	// Token overrides the provider-resolved bearer token for this call.
	Token string
}

const maxResponseBytes = 8 << 20

// Client is the general-purpose authenticated API client. Every call resolves
// a bearer token through the provider, recovers from a single 401 with one
// silent refresh-and-retry, and reports unrecovered failures through the
// notifier before returning them.
//
// Client never routes through the read optimizer: authenticated calls are
// always fresh. Caching belongs to [PublicAPI].
type Client struct {
	baseURL  string
	http     *http.Client
	provider TokenProvider
	fallback session.Storage
	notifier Notifier
	metrics  *Metrics

	// onAuthExpired runs after an unrecoverable 401 has torn the session
	// down; hosts hook their login redirect here.
	onAuthExpired func()
}

// Request performs one authenticated call and returns the raw response body.
//
// Token resolution prefers an explicit opts.Token, then the provider's
// validate-or-refresh path. When that path fails, the persisted session
// record is read directly and its token sent best-effort — expiry unchecked —
// so the server's 401 can still drive recovery.
func (c *Client) Request(ctx context.Context, endpoint string, opts RequestOptions) ([]byte, error) {
	bearer := opts.Token
	if bearer == "" {
		bearer = c.resolveToken(ctx)
	}

	payload, status, err := c.do(ctx, endpoint, opts, bearer)

	if status == http.StatusUnauthorized {
		payload, status, err = c.recoverUnauthorized(ctx, endpoint, opts, bearer)
		if status == http.StatusUnauthorized {
			c.expireSession()
			return nil, ErrUnauthorized
		}
	}

	if err != nil {
		c.metrics.Inc(MetricRequestFailure)
		c.notify(err)
		return nil, err
	}

	c.metrics.Inc(MetricRequestSuccess)
	return payload, nil
}

// Get performs an authenticated GET.
func (c *Client) Get(ctx context.Context, endpoint string) ([]byte, error) {
	return c.Request(ctx, endpoint, RequestOptions{Method: http.MethodGet})
}

// Post performs an authenticated POST with a JSON body.
func (c *Client) Post(ctx context.Context, endpoint string, body any) ([]byte, error) {
	return c.Request(ctx, endpoint, RequestOptions{Method: http.MethodPost, Body: body})
}

// Put performs an authenticated PUT with a JSON body.
func (c *Client) Put(ctx context.Context, endpoint string, body any) ([]byte, error) {
	return c.Request(ctx, endpoint, RequestOptions{Method: http.MethodPut, Body: body})
}

// Patch performs an authenticated PATCH with a JSON body.
func (c *Client) Patch(ctx context.Context, endpoint string, body any) ([]byte, error) {
	return c.Request(ctx, endpoint, RequestOptions{Method: http.MethodPatch, Body: body})
}

// Delete performs an authenticated DELETE.
func (c *Client) Delete(ctx context.Context, endpoint string) ([]byte, error) {
	return c.Request(ctx, endpoint, RequestOptions{Method: http.MethodDelete})
}

// GetJSON performs an authenticated GET and decodes the response into out.
func (c *Client) GetJSON(ctx context.Context, endpoint string, out any) error {
	payload, err := c.Get(ctx, endpoint)
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, out)
}

func (c *Client) resolveToken(ctx context.Context) string {
	if c.provider != nil && c.provider.ValidateAndRefreshIfNeeded(ctx) {
		if tok := c.provider.CurrentAccessToken(); tok != "" {
			return tok
		}
	}

	// Degraded path: the smart validate/refresh failed, but a persisted token
	// may still work. Best-effort only — no validity guarantee.
	if c.fallback != nil {
		if rec, err := c.fallback.Load(ctx); err == nil && rec != nil {
			return rec.AccessToken
		}
	}
	return ""
}

// recoverUnauthorized attempts the single allowed 401 recovery: one provider
// refresh, one retry with the new token. The returned status stays 401 when
// recovery is not possible.
func (c *Client) recoverUnauthorized(ctx context.Context, endpoint string, opts RequestOptions, staleBearer string) ([]byte, int, error) {
	c.metrics.Inc(MetricUnauthorizedRetry)

	if c.provider == nil || !c.provider.ValidateAndRefreshIfNeeded(ctx) {
		return nil, http.StatusUnauthorized, ErrUnauthorized
	}
	fresh := c.provider.CurrentAccessToken()
	if fresh == "" || fresh == staleBearer {
		return nil, http.StatusUnauthorized, ErrUnauthorized
	}

	return c.do(ctx, endpoint, opts, fresh)
}

// expireSession tears the session down after an unrecoverable 401 and runs
// the host redirect. No notification: navigation pre-empts an error dialog.
func (c *Client) expireSession() {
	c.metrics.Inc(MetricUnauthorizedLogout)
	if c.provider != nil {
		c.provider.Logout()
	}
	if c.onAuthExpired != nil {
		c.onAuthExpired()
	}
}

func (c *Client) do(ctx context.Context, endpoint string, opts RequestOptions, bearer string) ([]byte, int, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	target := joinURL(c.baseURL, endpoint)
	if len(opts.Query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + opts.Query.Encode()
	}

	var body io.Reader
	if opts.Body != nil {
		raw, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, 0, err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if opts.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, apiErrorFrom(resp.StatusCode, payload)
	}
	return payload, resp.StatusCode, nil
}

func (c *Client) notify(err error) {
	if c.notifier == nil {
		return
	}
	c.metrics.Inc(MetricNotificationShown)
	c.notifier.Notify(err.Error())
}

// apiErrorFrom builds an *APIError from an error body, tolerating non-JSON
// and non-conforming shapes by falling back to the HTTP status text.
func apiErrorFrom(status int, body []byte) *APIError {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Detail != "" {
		return &APIError{StatusCode: status, Detail: parsed.Detail}
	}
	return &APIError{StatusCode: status, Detail: http.StatusText(status)}
}

func joinURL(base, endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(endpoint, "/")
}
