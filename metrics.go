package goolstar

import "sync/atomic"

// MetricID identifies one SDK counter.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricLogout
	MetricRequestSuccess
	MetricRequestFailure
	MetricUnauthorizedRetry
	MetricUnauthorizedLogout
	MetricRateLimitRetry
	MetricRateLimitExhausted
	MetricCacheHit
	MetricCacheMiss
	MetricDedupHit
	MetricNotificationShown
	MetricStaffDenied
	metricIDCount
)

var metricNames = [metricIDCount]string{
	MetricLoginSuccess:       "login_success",
	MetricLoginFailure:       "login_failure",
	MetricRefreshSuccess:     "refresh_success",
	MetricRefreshFailure:     "refresh_failure",
	MetricLogout:             "logout",
	MetricRequestSuccess:     "request_success",
	MetricRequestFailure:     "request_failure",
	MetricUnauthorizedRetry:  "unauthorized_retry",
	MetricUnauthorizedLogout: "unauthorized_logout",
	MetricRateLimitRetry:     "rate_limit_retry",
	MetricRateLimitExhausted: "rate_limit_exhausted",
	MetricCacheHit:           "cache_hit",
	MetricCacheMiss:          "cache_miss",
	MetricDedupHit:           "dedup_hit",
	MetricNotificationShown:  "notification_shown",
	MetricStaffDenied:        "staff_denied",
}

// Name returns the stable snake_case identifier of the metric, used by the
// exporters.
func (id MetricID) Name() string {
	if id >= metricIDCount {
		return "unknown"
	}
	return metricNames[id]
}

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a fixed array of atomic counters. A disabled instance is inert:
// Inc becomes a no-op and Snapshot returns empty maps, so call sites never
// branch on the toggle.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// NewMetrics creates a counter set honoring the config toggle.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Enabled reports whether counters are recording.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to the counter. Safe on a nil or disabled instance.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Value reads one counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// Snapshot copies all counters atomically enough for reporting: each counter
// is read atomically; the set is not a consistent cut.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}

	s := MetricsSnapshot{Counters: make(map[MetricID]uint64, int(metricIDCount))}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}
