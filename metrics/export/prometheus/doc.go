// Package prometheus renders SDK counters for Prometheus scrapes.
//
// [NewPrometheusExporter] accepts a [goolstar.SDK] and exposes an
// [http.Handler] that renders every counter in Prometheus text exposition
// format. Counter names are prefixed goolstar_*_total.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate SDK state.
package prometheus
