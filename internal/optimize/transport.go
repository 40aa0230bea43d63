package optimize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// DefaultMinInterval is the minimum spacing between dispatched requests,
	// measured from the previous dispatch's start.
	DefaultMinInterval = 250 * time.Millisecond

	// DefaultTTL is the cache lifetime for GET responses when the request does
	// not specify one.
	DefaultTTL = 5 * time.Minute

	// DefaultSweepInterval is how often expired cache entries are evicted.
	DefaultSweepInterval = 5 * time.Minute

	maxResponseBytes = 8 << 20
)

// ErrClosed is returned by Do after the transport has been closed.
var ErrClosed = errors.New("optimize: transport closed")

// Priority orders queued requests. High entries always dispatch before low
// ones; order is FIFO within a priority class.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityHigh
)

// Doer is the outbound HTTP capability the transport decorates, satisfied by
// *http.Client.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Config holds transport tuning parameters.
type Config struct {
	Doer          Doer
	MinInterval   time.Duration
	DefaultTTL    time.Duration
	SweepInterval time.Duration

	// Observation hooks, all optional.
	OnCacheHit  func()
	OnCacheMiss func()
	OnDedupHit  func()
}

// Request is one logical outbound call with its caching/queueing options.
type Request struct {
	Method  string // empty selects GET
	URL     string
	Headers map[string]string
	Body    []byte

	TTL       time.Duration // cache lifetime for GETs; zero selects DefaultTTL
	SkipCache bool
	Priority  Priority
}

type dispatchResult struct {
	payload []byte
	err     error
}

type pendingRequest struct {
	ctx  context.Context
	req  Request
	key  string
	done chan dispatchResult
}

// Transport is the cache + dedup + queue decorator. Construct with [New] and
// release the drain/sweep goroutines with [Transport.Close].
type Transport struct {
	cfg    Config
	cache  *responseCache
	flight singleflight.Group

	mu   sync.Mutex
	high []*pendingRequest
	low  []*pendingRequest

	wake     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a transport and starts its drain and sweep goroutines.
func New(cfg Config) (*Transport, error) {
	if cfg.Doer == nil {
		return nil, errors.New("optimize: Doer is required")
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = DefaultMinInterval
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}

	t := &Transport{
		cfg:   cfg,
		cache: newResponseCache(),
		wake:  make(chan struct{}, 1),
		stop:  make(chan struct{}),
	}
	go t.drain()
	go t.sweep()
	return t, nil
}

// Do executes the request through the cache, dedup, and queue layers and
// returns the response body.
//
// A cached GET returns immediately with no network call or queueing. An
// identical request already in flight shares its outcome instead of issuing a
// second call. Everything else queues and dispatches with the configured
// minimum spacing. Cancellation of ctx abandons the wait, but a request
// already queued may still dispatch (and populate the cache) in the
// background.
func (t *Transport) Do(ctx context.Context, req Request) ([]byte, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	if req.TTL <= 0 {
		req.TTL = t.cfg.DefaultTTL
	}

	key := cacheKey(req)
	isGet := req.Method == http.MethodGet

	if isGet && !req.SkipCache {
		if payload, ok := t.cache.get(key); ok {
			t.observe(t.cfg.OnCacheHit)
			return payload, nil
		}
		t.observe(t.cfg.OnCacheMiss)
	}

	value, err, shared := t.flight.Do(key, func() (any, error) {
		return t.enqueue(ctx, req, key)
	})
	if shared {
		t.observe(t.cfg.OnDedupHit)
	}
	if err != nil {
		return nil, err
	}
	return value.([]byte), nil
}

// CleanExpired evicts expired cache entries. The sweep goroutine calls this
// periodically; it is exported for manual invocation.
func (t *Transport) CleanExpired() {
	t.cache.cleanExpired()
}

// ClearCache wipes the whole response cache.
func (t *Transport) ClearCache() {
	t.cache.clear()
}

// CacheSize returns the number of stored cache entries, including expired
// ones not yet swept.
func (t *Transport) CacheSize() int {
	return t.cache.len()
}

// Close stops the drain and sweep goroutines. Queued requests that have not
// dispatched yet fail with ErrClosed.
func (t *Transport) Close() {
	t.stopOnce.Do(func() { close(t.stop) })
}

func (t *Transport) enqueue(ctx context.Context, req Request, key string) ([]byte, error) {
	select {
	case <-t.stop:
		return nil, ErrClosed
	default:
	}

	p := &pendingRequest{
		ctx:  ctx,
		req:  req,
		key:  key,
		done: make(chan dispatchResult, 1),
	}

	t.mu.Lock()
	if req.Priority == PriorityHigh {
		t.high = append(t.high, p)
	} else {
		t.low = append(t.low, p)
	}
	t.mu.Unlock()

	select {
	case t.wake <- struct{}{}:
	default:
	}

	select {
	case res := <-p.done:
		return res.payload, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.stop:
		return nil, ErrClosed
	}
}

func (t *Transport) drain() {
	var lastDispatch time.Time

	for {
		if t.queueEmpty() {
			select {
			case <-t.wake:
			case <-t.stop:
				return
			}
			continue
		}

		// Sleep out the spacing before popping: a high-priority request that
		// arrives during the wait still jumps the line.
		if !lastDispatch.IsZero() {
			if wait := t.cfg.MinInterval - time.Since(lastDispatch); wait > 0 {
				select {
				case <-time.After(wait):
				case <-t.stop:
					return
				}
			}
		}

		p := t.pop()
		if p == nil {
			continue
		}

		// Spacing is measured from dispatch start, not completion, so slow
		// responses do not stall the queue.
		lastDispatch = time.Now()
		go t.dispatch(p)
	}
}

func (t *Transport) queueEmpty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.high) == 0 && len(t.low) == 0
}

func (t *Transport) pop() *pendingRequest {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.high) > 0 {
		p := t.high[0]
		t.high = t.high[1:]
		return p
	}
	if len(t.low) > 0 {
		p := t.low[0]
		t.low = t.low[1:]
		return p
	}
	return nil
}

func (t *Transport) dispatch(p *pendingRequest) {
	payload, err := t.execute(p)
	if err == nil && p.req.Method == http.MethodGet {
		t.cache.set(p.key, payload, p.req.TTL)
	}
	p.done <- dispatchResult{payload: payload, err: err}
}

func (t *Transport) execute(p *pendingRequest) ([]byte, error) {
	ctx := p.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	var body io.Reader
	if len(p.req.Body) > 0 {
		body = bytes.NewReader(p.req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, p.req.Method, p.req.URL, body)
	if err != nil {
		return nil, err
	}
	for k, v := range p.req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := t.cfg.Doer.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return payload, nil
}

func (t *Transport) sweep() {
	ticker := time.NewTicker(t.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.cache.cleanExpired()
		case <-t.stop:
			return
		}
	}
}

func (t *Transport) observe(hook func()) {
	if hook != nil {
		hook()
	}
}
