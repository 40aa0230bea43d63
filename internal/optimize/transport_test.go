package optimize

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type trackingBackend struct {
	mu      sync.Mutex
	hits    atomic.Int64
	order   []string
	arrived []time.Time
	release chan struct{} // non-nil blocks handlers until closed
}

func newTransportTest(t *testing.T, cfg Config) (*Transport, *trackingBackend, *httptest.Server) {
	t.Helper()
	b := &trackingBackend{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.hits.Add(1)
		b.mu.Lock()
		b.order = append(b.order, r.URL.Path)
		b.arrived = append(b.arrived, time.Now())
		release := b.release
		b.mu.Unlock()
		if release != nil {
			<-release
		}
		if strings.HasPrefix(r.URL.Path, "/fail") {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"path":"` + r.URL.Path + `"}`))
	}))
	t.Cleanup(srv.Close)

	if cfg.Doer == nil {
		cfg.Doer = srv.Client()
	}
	if cfg.MinInterval == 0 {
		cfg.MinInterval = 5 * time.Millisecond
	}
	tr, err := New(cfg)
	if err != nil {
		t.Fatalf("new transport: %v", err)
	}
	t.Cleanup(tr.Close)
	return tr, b, srv
}

func TestCacheHitAvoidsNetwork(t *testing.T) {
	tr, backend, srv := newTransportTest(t, Config{})
	ctx := context.Background()
	req := Request{URL: srv.URL + "/equipos/"}

	first, err := tr.Do(ctx, req)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := tr.Do(ctx, req)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	if backend.hits.Load() != 1 {
		t.Fatalf("expected exactly one underlying fetch, got %d", backend.hits.Load())
	}
	if string(first) != string(second) {
		t.Fatal("cache hit must return the cached payload")
	}
}

func TestSkipCacheForcesNetwork(t *testing.T) {
	tr, backend, srv := newTransportTest(t, Config{})
	ctx := context.Background()

	if _, err := tr.Do(ctx, Request{URL: srv.URL + "/equipos/"}); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := tr.Do(ctx, Request{URL: srv.URL + "/equipos/", SkipCache: true}); err != nil {
		t.Fatalf("skip-cache call: %v", err)
	}

	if backend.hits.Load() != 2 {
		t.Fatalf("SkipCache must bypass the cache, got %d hits", backend.hits.Load())
	}
}

func TestNonGetNeverCached(t *testing.T) {
	tr, backend, srv := newTransportTest(t, Config{})
	ctx := context.Background()
	req := Request{Method: http.MethodPost, URL: srv.URL + "/equipos/", Body: []byte(`{"nombre":"x"}`)}

	if _, err := tr.Do(ctx, req); err != nil {
		t.Fatalf("first post: %v", err)
	}
	if _, err := tr.Do(ctx, req); err != nil {
		t.Fatalf("second post: %v", err)
	}

	if backend.hits.Load() != 2 {
		t.Fatalf("POSTs must never be served from cache, got %d hits", backend.hits.Load())
	}
	if tr.CacheSize() != 0 {
		t.Fatal("POST responses must not populate the cache")
	}
}

func TestInFlightDeduplication(t *testing.T) {
	tr, backend, srv := newTransportTest(t, Config{})
	backend.release = make(chan struct{})
	ctx := context.Background()
	req := Request{URL: srv.URL + "/partidos/", SkipCache: true}

	type outcome struct {
		payload []byte
		err     error
	}
	results := make(chan outcome, 2)
	for i := 0; i < 2; i++ {
		go func() {
			payload, err := tr.Do(ctx, req)
			results <- outcome{payload, err}
		}()
	}

	// Wait for the single dispatch to arrive, then release it.
	deadline := time.After(2 * time.Second)
	for backend.hits.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("request never dispatched")
		case <-time.After(time.Millisecond):
		}
	}
	time.Sleep(20 * time.Millisecond) // let the second caller join the flight
	close(backend.release)

	first := <-results
	second := <-results
	if first.err != nil || second.err != nil {
		t.Fatalf("unexpected errors: %v / %v", first.err, second.err)
	}
	if string(first.payload) != string(second.payload) {
		t.Fatal("both callers must receive the same resolved value")
	}
	if backend.hits.Load() != 1 {
		t.Fatalf("concurrent identical requests must share one fetch, got %d", backend.hits.Load())
	}
}

func TestQueueSpacing(t *testing.T) {
	interval := 120 * time.Millisecond
	tr, backend, srv := newTransportTest(t, Config{MinInterval: interval})
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, path := range []string{"/a", "/b"} {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			if _, err := tr.Do(ctx, Request{URL: srv.URL + p, SkipCache: true}); err != nil {
				t.Errorf("Do(%s): %v", p, err)
			}
		}(path)
	}
	wg.Wait()

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if len(backend.arrived) != 2 {
		t.Fatalf("expected 2 dispatches, got %d", len(backend.arrived))
	}
	gap := backend.arrived[1].Sub(backend.arrived[0])
	if gap < interval-10*time.Millisecond {
		t.Fatalf("dispatches %v apart, want at least %v", gap, interval)
	}
}

func TestHighPriorityDispatchesFirst(t *testing.T) {
	interval := 150 * time.Millisecond
	tr, backend, srv := newTransportTest(t, Config{MinInterval: interval})
	ctx := context.Background()

	var wg sync.WaitGroup
	do := func(path string, prio Priority) {
		defer wg.Done()
		if _, err := tr.Do(ctx, Request{URL: srv.URL + path, SkipCache: true, Priority: prio}); err != nil {
			t.Errorf("Do(%s): %v", path, err)
		}
	}

	// First low request dispatches immediately; while the drain loop waits
	// out the spacing, queue another low then a high. The high one must jump
	// the line.
	wg.Add(1)
	go do("/first", PriorityLow)
	time.Sleep(30 * time.Millisecond)
	wg.Add(1)
	go do("/low", PriorityLow)
	time.Sleep(30 * time.Millisecond)
	wg.Add(1)
	go do("/high", PriorityHigh)
	wg.Wait()

	backend.mu.Lock()
	defer backend.mu.Unlock()
	want := []string{"/first", "/high", "/low"}
	if len(backend.order) != len(want) {
		t.Fatalf("expected %d dispatches, got %v", len(want), backend.order)
	}
	for i, p := range want {
		if backend.order[i] != p {
			t.Fatalf("dispatch order %v, want %v", backend.order, want)
		}
	}
}

func TestNonSuccessStatusIsError(t *testing.T) {
	tr, _, srv := newTransportTest(t, Config{})

	_, err := tr.Do(context.Background(), Request{URL: srv.URL + "/fail"})
	if err == nil {
		t.Fatal("expected error for HTTP 502")
	}
	if got := err.Error(); got != "HTTP 502: Bad Gateway" {
		t.Fatalf("error = %q, want HTTP status form", got)
	}
	if tr.CacheSize() != 0 {
		t.Fatal("failed responses must not be cached")
	}
}

func TestFailedRequestNotDedupedAfterSettle(t *testing.T) {
	tr, backend, srv := newTransportTest(t, Config{})
	ctx := context.Background()
	req := Request{URL: srv.URL + "/fail"}

	if _, err := tr.Do(ctx, req); err == nil {
		t.Fatal("expected failure")
	}
	if _, err := tr.Do(ctx, req); err == nil {
		t.Fatal("expected failure")
	}

	// The in-flight entry is removed once the request settles, so the second
	// call issues a fresh fetch.
	if backend.hits.Load() != 2 {
		t.Fatalf("expected 2 fetches after settle, got %d", backend.hits.Load())
	}
}

func TestObservationHooks(t *testing.T) {
	var hits, misses atomic.Int64
	tr, _, srv := newTransportTest(t, Config{
		OnCacheHit:  func() { hits.Add(1) },
		OnCacheMiss: func() { misses.Add(1) },
	})
	ctx := context.Background()
	req := Request{URL: srv.URL + "/equipos/"}

	if _, err := tr.Do(ctx, req); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := tr.Do(ctx, req); err != nil {
		t.Fatalf("second: %v", err)
	}

	if misses.Load() != 1 || hits.Load() != 1 {
		t.Fatalf("hooks: hits=%d misses=%d, want 1/1", hits.Load(), misses.Load())
	}
}

func TestCloseFailsQueuedRequests(t *testing.T) {
	tr, _, srv := newTransportTest(t, Config{MinInterval: time.Hour})
	ctx := context.Background()

	done := make(chan error, 2)
	for _, p := range []string{"/x", "/y"} {
		go func(path string) {
			_, err := tr.Do(ctx, Request{URL: srv.URL + path, SkipCache: true})
			done <- err
		}(p)
	}

	time.Sleep(50 * time.Millisecond)
	tr.Close()

	// The first request dispatches immediately; the second is stuck behind
	// the hour-long spacing and must fail with ErrClosed.
	sawClosed := false
	for i := 0; i < 2; i++ {
		if err := <-done; err == ErrClosed {
			sawClosed = true
		}
	}
	if !sawClosed {
		t.Fatal("expected at least one queued request to fail with ErrClosed")
	}
}
