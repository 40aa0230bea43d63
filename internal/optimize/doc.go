// Package optimize reduces redundant and bursty traffic to the GoolStar
// backend. It is a generic decorator around an HTTP doer with three layers:
// a TTL response cache for GETs, in-flight de-duplication keyed by the full
// request identity, and a priority queue that enforces a minimum spacing
// between dispatched requests.
//
// # Request identity
//
// Two requests are "the same" only if method, URL, canonicalized headers, and
// body all match; the composite is hashed into the cache/dedup key.
//
// # Architecture boundaries
//
// This package knows nothing about authentication. Bearer headers travel
// through it as opaque request headers and participate in the key, so
// responses for different identities never alias.
//
// # What this package must NOT do
//
//   - Cache non-GET responses.
//   - Retry failures (retry policy belongs to the clients).
//   - Import any other package of this module.
package optimize
