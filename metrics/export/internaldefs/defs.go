package internaldefs

import goolstar "github.com/juanqui-art/goolstar-go"

// CounterDef binds a core counter ID to its exposition name and help text.
type CounterDef struct {
	ID   goolstar.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goolstar.MetricLoginSuccess, Name: "goolstar_login_success_total", Help: "Successful logins."},
	{ID: goolstar.MetricLoginFailure, Name: "goolstar_login_failure_total", Help: "Failed login attempts."},
	{ID: goolstar.MetricRefreshSuccess, Name: "goolstar_refresh_success_total", Help: "Successful access-token refreshes."},
	{ID: goolstar.MetricRefreshFailure, Name: "goolstar_refresh_failure_total", Help: "Failed refresh attempts, each followed by a logout."},
	{ID: goolstar.MetricLogout, Name: "goolstar_logout_total", Help: "Session teardowns, explicit or forced."},
	{ID: goolstar.MetricRequestSuccess, Name: "goolstar_request_success_total", Help: "Authenticated API calls that returned 2xx."},
	{ID: goolstar.MetricRequestFailure, Name: "goolstar_request_failure_total", Help: "Authenticated API calls that failed."},
	{ID: goolstar.MetricUnauthorizedRetry, Name: "goolstar_unauthorized_retry_total", Help: "401 responses answered with a refresh-and-retry."},
	{ID: goolstar.MetricUnauthorizedLogout, Name: "goolstar_unauthorized_logout_total", Help: "401 responses that survived the retry and forced a logout."},
	{ID: goolstar.MetricRateLimitRetry, Name: "goolstar_rate_limit_retry_total", Help: "429 responses absorbed by backoff."},
	{ID: goolstar.MetricRateLimitExhausted, Name: "goolstar_rate_limit_exhausted_total", Help: "429 responses that exhausted the retry budget."},
	{ID: goolstar.MetricCacheHit, Name: "goolstar_cache_hit_total", Help: "Optimized requests served from the response cache."},
	{ID: goolstar.MetricCacheMiss, Name: "goolstar_cache_miss_total", Help: "Optimized requests that went to the network."},
	{ID: goolstar.MetricDedupHit, Name: "goolstar_dedup_hit_total", Help: "Optimized requests coalesced onto an in-flight call."},
	{ID: goolstar.MetricNotificationShown, Name: "goolstar_notification_shown_total", Help: "Error notifications surfaced to the user."},
	{ID: goolstar.MetricStaffDenied, Name: "goolstar_staff_denied_total", Help: "Dashboard calls rejected by the staff gate."},
}
