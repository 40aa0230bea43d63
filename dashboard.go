package goolstar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Authorizer gates every dashboard call. It is an opaque collaborator: the
// dashboard client only learns "yes" or an error, never how the decision was
// made. [SessionAuthorizer] is the default implementation.
type Authorizer interface {
	RequireStaff(ctx context.Context) error
}

// SessionAuthorizer authorizes dashboard calls against a session store
// capability: the session must validate (refreshing if needed) and the user
// record must carry the staff flag.
type SessionAuthorizer struct {
	Provider TokenProvider
	UserFn   func() *User
}

// User mirrors session.User for authorization decisions without the
// dashboard layer importing the session package directly.
type User struct {
	ID       int64
	Username string
	IsStaff  bool
}

// RequireStaff implements [Authorizer].
func (a *SessionAuthorizer) RequireStaff(ctx context.Context) error {
	if a == nil || a.Provider == nil {
		return ErrStaffRequired
	}
	if !a.Provider.ValidateAndRefreshIfNeeded(ctx) {
		return ErrNotAuthenticated
	}
	if a.UserFn == nil {
		return ErrStaffRequired
	}
	user := a.UserFn()
	if user == nil || !user.IsStaff {
		return ErrStaffRequired
	}
	return nil
}

// DashboardClient is the privileged client for staff-only data, meant for
// trusted server contexts. It never forwards a bearer token — authorization
// happens upstream through the [Authorizer] — and it absorbs backend rate
// limiting with a bounded exponential backoff.
type DashboardClient struct {
	baseURL    string
	http       *http.Client
	authorizer Authorizer
	metrics    *Metrics

	maxRetries int
	pageSize   int
	maxPages   int
	batchSize  int
	batchDelay time.Duration

	// sleep is swapped in tests to keep backoff assertions fast.
	sleep func(ctx context.Context, d time.Duration) error
}

// Request performs one dashboard call. On HTTP 429 it retries up to the
// configured budget (default 3), waiting the server's Retry-After when
// present, else 1s, 2s, 4s. A 429 that survives the budget fails with
// ErrRateLimited.
func (d *DashboardClient) Request(ctx context.Context, endpoint string, opts RequestOptions) ([]byte, error) {
	if d.authorizer == nil {
		d.metrics.Inc(MetricStaffDenied)
		return nil, ErrStaffRequired
	}
	if err := d.authorizer.RequireStaff(ctx); err != nil {
		d.metrics.Inc(MetricStaffDenied)
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		payload, status, retryAfter, err := d.do(ctx, endpoint, opts)
		if status != http.StatusTooManyRequests {
			return payload, err
		}

		if attempt >= d.maxRetries {
			d.metrics.Inc(MetricRateLimitExhausted)
			return nil, fmt.Errorf("%w: HTTP 429 after %d attempts", ErrRateLimited, attempt+1)
		}

		delay := retryAfter
		if delay <= 0 {
			delay = time.Second << attempt
		}
		d.metrics.Inc(MetricRateLimitRetry)
		if err := d.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// Get performs a dashboard GET.
func (d *DashboardClient) Get(ctx context.Context, endpoint string) ([]byte, error) {
	return d.Request(ctx, endpoint, RequestOptions{Method: http.MethodGet})
}

// LoadAllPaginated walks a paginated list endpoint sequentially, accumulating
// every page's results. It stops when the backend reports no next page, when
// a page comes back empty, or after the hard 100-page cap. A failing page
// stops the walk and returns what was accumulated so far.
func (d *DashboardClient) LoadAllPaginated(ctx context.Context, endpoint string) ([]json.RawMessage, error) {
	var all []json.RawMessage

	for page := 1; page <= d.maxPages; page++ {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		pageURL := fmt.Sprintf("%s%spage=%d&page_size=%d", endpoint, sep, page, d.pageSize)

		payload, err := d.Request(ctx, pageURL, RequestOptions{Method: http.MethodGet})
		if err != nil {
			log.Printf("goolstar: paginated load of %s stopped at page %d", endpoint, page)
			return all, nil
		}

		var parsed Page[json.RawMessage]
		if err := json.Unmarshal(payload, &parsed); err != nil {
			log.Printf("goolstar: paginated load of %s got malformed page %d", endpoint, page)
			return all, nil
		}

		all = append(all, parsed.Results...)
		if parsed.Next == nil || len(parsed.Results) == 0 {
			break
		}
	}

	return all, nil
}

func (d *DashboardClient) do(ctx context.Context, endpoint string, opts RequestOptions) ([]byte, int, time.Duration, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	target := joinURL(d.baseURL, endpoint)
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
			return nil, 0, 0, err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, 0, 0, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if opts.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, 0, 0, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, 0, err
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, resp.StatusCode, retryAfterDelay(resp), nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := strings.TrimSpace(string(payload))
		return nil, resp.StatusCode, 0, &APIError{StatusCode: resp.StatusCode, Detail: detail}
	}
	return payload, resp.StatusCode, 0, nil
}

// retryAfterDelay reads the Retry-After header in its delay-seconds form.
// Absent or unparsable headers return zero, selecting exponential backoff.
func retryAfterDelay(resp *http.Response) time.Duration {
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ProcessBatches runs the tasks in fixed-size concurrent groups, strictly
// serializing groups with a pause between them. Individual task failures
// degrade to the zero value for that slot and never abort the batch; results
// keep the input order.
func ProcessBatches[T any](ctx context.Context, tasks []func(context.Context) (T, error), batchSize int, delay time.Duration) []T {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if delay < 0 {
		delay = 0
	}

	results := make([]T, len(tasks))
	for start := 0; start < len(tasks); start += batchSize {
		end := start + batchSize
		if end > len(tasks) {
			end = len(tasks)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				value, err := tasks[i](ctx)
				if err != nil {
					return
				}
				results[i] = value
			}(i)
		}
		wg.Wait()

		if end < len(tasks) && delay > 0 {
			if err := sleepContext(ctx, delay); err != nil {
				return results
			}
		}
	}
	return results
}
