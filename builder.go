package goolstar

import (
	"context"
	"net/http"

	"github.com/juanqui-art/goolstar-go/internal/optimize"
	"github.com/juanqui-art/goolstar-go/session"
)

// Builder assembles an [SDK] step by step. Zero configuration works: New()
// followed by Build() yields a client against the default backend with an
// in-memory session.
type Builder struct {
	cfg            Config
	cfgSet         bool
	httpClient     *http.Client
	storage        session.Storage
	notifier       Notifier
	authorizer     Authorizer
	onAuthExpired  func()
	metricsEnabled bool
}

// New starts a builder with defaults.
func New() *Builder {
	return &Builder{}
}

// WithConfig replaces the whole configuration. Zero fields are defaulted at
// Build time.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	b.cfgSet = true
	return b
}

// WithHTTPClient sets the underlying HTTP client for every component.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithStorage sets the session persistence backend. Nil keeps the in-memory
// default; see [session.NewFileStorage] and [session.NewRedisStorage].
func (b *Builder) WithStorage(storage session.Storage) *Builder {
	b.storage = storage
	return b
}

// WithNotifier routes request-failure messages to the host application.
func (b *Builder) WithNotifier(notifier Notifier) *Builder {
	b.notifier = notifier
	return b
}

// WithAuthorizer overrides the staff gate for dashboard calls. The default
// authorizer derives the decision from the session store.
func (b *Builder) WithAuthorizer(authorizer Authorizer) *Builder {
	b.authorizer = authorizer
	return b
}

// WithAuthExpiredRedirect runs fn after an unrecoverable 401 has torn the
// session down. Hosts hook their login navigation here.
func (b *Builder) WithAuthExpiredRedirect(fn func()) *Builder {
	b.onAuthExpired = fn
	return b
}

// WithMetricsEnabled turns the counter set on or off.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.metricsEnabled = enabled
	return b
}

// Build validates the configuration and wires the components together.
func (b *Builder) Build() (*SDK, error) {
	cfg := b.cfg
	if !b.cfgSet {
		cfg = defaultConfig()
	} else {
		cfg.applyDefaults()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	httpClient := b.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.API.HTTPTimeout}
	}

	metrics := NewMetrics(MetricsConfig{Enabled: b.metricsEnabled || cfg.Metrics.Enabled})

	storage := b.storage
	if storage == nil && cfg.Auth.SessionFile != "" {
		storage = session.NewFileStorage(cfg.Auth.SessionFile)
	}

	store, err := session.NewStore(session.Config{
		BaseURL:          cfg.API.BaseURL,
		RefreshThreshold: cfg.Auth.RefreshThreshold,
		HTTPClient:       httpClient,
		OnLogin: func(ok bool) {
			if ok {
				metrics.Inc(MetricLoginSuccess)
			} else {
				metrics.Inc(MetricLoginFailure)
			}
		},
		OnRefresh: func(ok bool) {
			if ok {
				metrics.Inc(MetricRefreshSuccess)
			} else {
				metrics.Inc(MetricRefreshFailure)
			}
		},
		OnLogout: func() { metrics.Inc(MetricLogout) },
	}, storage)
	if err != nil {
		return nil, err
	}

	transport, err := optimize.New(optimize.Config{
		Doer:          httpClient,
		MinInterval:   cfg.Optimizer.MinInterval,
		DefaultTTL:    cfg.Optimizer.DefaultTTL,
		SweepInterval: cfg.Optimizer.SweepInterval,
		OnCacheHit:    func() { metrics.Inc(MetricCacheHit) },
		OnCacheMiss:   func() { metrics.Inc(MetricCacheMiss) },
		OnDedupHit:    func() { metrics.Inc(MetricDedupHit) },
	})
	if err != nil {
		return nil, err
	}

	notifier := b.notifier
	if notifier == nil {
		notifier = NopNotifier{}
	}

	client := &Client{
		baseURL:       cfg.API.BaseURL,
		http:          httpClient,
		provider:      store,
		fallback:      storage,
		notifier:      notifier,
		metrics:       metrics,
		onAuthExpired: b.onAuthExpired,
	}

	authorizer := b.authorizer
	if authorizer == nil {
		authorizer = &SessionAuthorizer{
			Provider: store,
			UserFn: func() *User {
				u := store.CurrentUser()
				if u == nil {
					return nil
				}
				return &User{ID: u.ID, Username: u.Username, IsStaff: u.IsStaff}
			},
		}
	}

	dashboardURL := cfg.API.DashboardBaseURL
	if dashboardURL == "" {
		dashboardURL = cfg.API.BaseURL
	}
	dashboard := &DashboardClient{
		baseURL:    dashboardURL,
		http:       httpClient,
		authorizer: authorizer,
		metrics:    metrics,
		maxRetries: cfg.Dashboard.MaxRetries,
		pageSize:   cfg.Dashboard.PageSize,
		maxPages:   cfg.Dashboard.MaxPages,
		batchSize:  cfg.Dashboard.BatchSize,
		batchDelay: cfg.Dashboard.BatchDelay,
		sleep:      sleepContext,
	}

	return &SDK{
		session:   store,
		client:    client,
		transport: transport,
		public:    &PublicAPI{transport: transport, baseURL: cfg.API.BaseURL},
		dashboard: dashboard,
		data:      &DashboardAPI{client: dashboard},
		metrics:   metrics,
	}, nil
}

// SDK is the assembled client set. Components share one HTTP client, one
// metrics sink, and one session store.
type SDK struct {
	session   *session.Store
	client    *Client
	transport *optimize.Transport
	public    *PublicAPI
	dashboard *DashboardClient
	data      *DashboardAPI
	metrics   *Metrics
}

// Session returns the session store.
func (s *SDK) Session() *session.Store { return s.session }

// Client returns the authenticated API client.
func (s *SDK) Client() *Client { return s.client }

// Public returns the unauthenticated optimized API surface.
func (s *SDK) Public() *PublicAPI { return s.public }

// Dashboard returns the raw staff client.
func (s *SDK) Dashboard() *DashboardClient { return s.dashboard }

// DashboardData returns the typed staff collections.
func (s *SDK) DashboardData() *DashboardAPI { return s.data }

// Metrics returns the counter set.
func (s *SDK) Metrics() *Metrics { return s.metrics }

// MetricsSnapshot returns a point-in-time copy of all counters.
func (s *SDK) MetricsSnapshot() MetricsSnapshot { return s.metrics.Snapshot() }

// Hydrate loads any persisted session into memory. Call once at startup.
func (s *SDK) Hydrate(ctx context.Context) error { return s.session.Hydrate(ctx) }

// Close releases background goroutines. The SDK must not be used afterwards.
func (s *SDK) Close() {
	s.transport.Close()
}
