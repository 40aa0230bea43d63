package goolstar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type allowAll struct{}

func (allowAll) RequireStaff(context.Context) error { return nil }

type denyAll struct{ err error }

func (d denyAll) RequireStaff(context.Context) error { return d.err }

// sleepRecorder replaces the real backoff sleep so retry tests finish
// instantly while still asserting the exact delays.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func newDashboardTest(t *testing.T, backend http.Handler) (*DashboardClient, *sleepRecorder) {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	rec := &sleepRecorder{}
	return &DashboardClient{
		baseURL:    srv.URL,
		http:       srv.Client(),
		authorizer: allowAll{},
		metrics:    NewMetrics(MetricsConfig{Enabled: true}),
		maxRetries: defaultMaxRetries,
		pageSize:   defaultPageSize,
		maxPages:   defaultMaxPages,
		batchSize:  defaultBatchSize,
		batchDelay: defaultBatchDelay,
		sleep:      rec.sleep,
	}, rec
}

func TestDashboardRetriesOn429WithRetryAfter(t *testing.T) {
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch calls {
		case 1:
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.Write([]byte(`{"ok":true}`))
		}
	})
	client, rec := newDashboardTest(t, handler)

	payload, err := client.Get(context.Background(), "/equipos/")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(payload) != `{"ok":true}` {
		t.Fatalf("payload = %s", payload)
	}
	if calls != 3 {
		t.Fatalf("backend calls = %d, want 3", calls)
	}
	// First wait honors Retry-After; second falls back to 2^attempt seconds.
	want := []time.Duration{7 * time.Second, 2 * time.Second}
	if len(rec.delays) != len(want) || rec.delays[0] != want[0] || rec.delays[1] != want[1] {
		t.Fatalf("delays = %v, want %v", rec.delays, want)
	}
}

func TestDashboardExhaustsRetryBudget(t *testing.T) {
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	})
	client, rec := newDashboardTest(t, handler)

	_, err := client.Get(context.Background(), "/equipos/")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
	if calls != 4 {
		t.Fatalf("backend calls = %d, want 4 (1 initial + 3 retries)", calls)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	if len(rec.delays) != 3 {
		t.Fatalf("delays = %v, want %v", rec.delays, want)
	}
	for i := range want {
		if rec.delays[i] != want[i] {
			t.Fatalf("delays = %v, want %v", rec.delays, want)
		}
	}
	if got := client.metrics.Value(MetricRateLimitExhausted); got != 1 {
		t.Fatalf("rate limit exhausted counter = %d, want 1", got)
	}
}

func TestDashboardDeniesWithoutStaff(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{}`))
	})
	client, _ := newDashboardTest(t, handler)
	client.authorizer = denyAll{err: ErrStaffRequired}

	_, err := client.Get(context.Background(), "/equipos/")
	if !errors.Is(err, ErrStaffRequired) {
		t.Fatalf("err = %v, want ErrStaffRequired", err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatal("denied request must not reach the backend")
	}
	if got := client.metrics.Value(MetricStaffDenied); got != 1 {
		t.Fatalf("staff denied counter = %d, want 1", got)
	}
}

func TestDashboardNonRetryableErrorSurfaces(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("prohibido"))
	})
	client, rec := newDashboardTest(t, handler)

	_, err := client.Get(context.Background(), "/equipos/")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusForbidden || apiErr.Detail != "prohibido" {
		t.Fatalf("apiErr = %+v", apiErr)
	}
	if len(rec.delays) != 0 {
		t.Fatal("non-429 errors must not trigger backoff")
	}
}

func TestLoadAllPaginatedWalksEveryPage(t *testing.T) {
	var pages []string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		pages = append(pages, page+"/"+r.URL.Query().Get("page_size"))
		switch page {
		case "1":
			w.Write([]byte(`{"count":5,"next":"?page=2","previous":null,"results":[{"id":1},{"id":2}]}`))
		case "2":
			w.Write([]byte(`{"count":5,"next":"?page=3","previous":null,"results":[{"id":3},{"id":4}]}`))
		default:
			w.Write([]byte(`{"count":5,"next":null,"previous":null,"results":[{"id":5}]}`))
		}
	})
	client, _ := newDashboardTest(t, handler)

	all, err := client.LoadAllPaginated(context.Background(), "/equipos/")
	if err != nil {
		t.Fatalf("LoadAllPaginated: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("records = %d, want 5", len(all))
	}
	want := []string{"1/100", "2/100", "3/100"}
	if len(pages) != len(want) {
		t.Fatalf("pages requested = %v, want %v", pages, want)
	}
	for i := range want {
		if pages[i] != want[i] {
			t.Fatalf("pages requested = %v, want %v", pages, want)
		}
	}
}

func TestLoadAllPaginatedStopsAtPageCap(t *testing.T) {
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		// Always advertises another page.
		w.Write([]byte(`{"count":1000,"next":"?page=next","previous":null,"results":[{"id":1}]}`))
	})
	client, _ := newDashboardTest(t, handler)
	client.maxPages = 4

	all, err := client.LoadAllPaginated(context.Background(), "/equipos/")
	if err != nil {
		t.Fatalf("LoadAllPaginated: %v", err)
	}
	if calls != 4 {
		t.Fatalf("backend calls = %d, want the 4-page cap to hold", calls)
	}
	if len(all) != 4 {
		t.Fatalf("records = %d, want 4", len(all))
	}
}

func TestLoadAllPaginatedReturnsPartialOnError(t *testing.T) {
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 2 {
			fmt.Fprintf(w, `{"count":10,"next":"?page=%d","previous":null,"results":[{"id":%d}]}`, calls+1, calls)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	})
	client, _ := newDashboardTest(t, handler)

	all, err := client.LoadAllPaginated(context.Background(), "/equipos/")
	if err != nil {
		t.Fatalf("partial load must not error, got %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("records = %d, want the 2 pages loaded before the failure", len(all))
	}
}

func TestLoadAllPaginatedPreservesExistingQuery(t *testing.T) {
	var gotQuery string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"count":0,"next":null,"previous":null,"results":[]}`))
	})
	client, _ := newDashboardTest(t, handler)

	if _, err := client.LoadAllPaginated(context.Background(), "/jugadores/?equipo=9"); err != nil {
		t.Fatalf("LoadAllPaginated: %v", err)
	}
	if gotQuery != "equipo=9&page=1&page_size=100" {
		t.Fatalf("query = %q", gotQuery)
	}
}

func TestProcessBatchesBoundsConcurrency(t *testing.T) {
	const total = 8
	const batch = 3

	var active, peak int32
	tasks := make([]func(context.Context) (int, error), total)
	for i := range tasks {
		i := i
		tasks[i] = func(context.Context) (int, error) {
			now := atomic.AddInt32(&active, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if now <= old || atomic.CompareAndSwapInt32(&peak, old, now) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&active, -1)
			return i * 10, nil
		}
	}

	results := ProcessBatches(context.Background(), tasks, batch, time.Millisecond)
	if got := atomic.LoadInt32(&peak); got > batch {
		t.Fatalf("peak concurrency = %d, want <= %d", got, batch)
	}
	for i, r := range results {
		if r != i*10 {
			t.Fatalf("results[%d] = %d, want %d (order must match input)", i, r, i*10)
		}
	}
}

func TestProcessBatchesZeroValueOnFailure(t *testing.T) {
	tasks := []func(context.Context) (string, error){
		func(context.Context) (string, error) { return "uno", nil },
		func(context.Context) (string, error) { return "", errors.New("boom") },
		func(context.Context) (string, error) { return "tres", nil },
	}

	results := ProcessBatches(context.Background(), tasks, 2, 0)
	want := []string{"uno", "", "tres"}
	for i := range want {
		if results[i] != want[i] {
			t.Fatalf("results = %v, want %v", results, want)
		}
	}
}

func TestSessionAuthorizerRequiresStaff(t *testing.T) {
	provider := &fakeProvider{validateOK: true, tokens: []string{"tok"}}

	auth := &SessionAuthorizer{
		Provider: provider,
		UserFn:   func() *User { return &User{ID: 1, Username: "ana", IsStaff: false} },
	}
	if err := auth.RequireStaff(context.Background()); !errors.Is(err, ErrStaffRequired) {
		t.Fatalf("non-staff err = %v, want ErrStaffRequired", err)
	}

	auth.UserFn = func() *User { return &User{ID: 1, Username: "ana", IsStaff: true} }
	if err := auth.RequireStaff(context.Background()); err != nil {
		t.Fatalf("staff err = %v, want nil", err)
	}

	provider.validateOK = false
	if err := auth.RequireStaff(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("unauthenticated err = %v, want ErrNotAuthenticated", err)
	}
}
