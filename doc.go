// Package goolstar is the Go client SDK for the GoolStar tournament backend.
// It owns the client-side authentication lifecycle (JWT inspection,
// expiry-aware refresh, persisted sessions) and the request plumbing around
// it: a caching/de-duplicating/throttled transport for public reads, an
// authenticated client that recovers from 401 with a single silent refresh,
// and a staff-only dashboard client with bounded 429 backoff.
//
// # Architecture boundaries
//
// goolstar is the public surface. It exposes [Client], [DashboardClient],
// [PublicAPI], [Builder], [Config], and the resource types. Token inspection
// lives in package token, session state in package session, and the
// cache/queue layer under internal/ where it stays private.
//
// The backend owns all business logic — standings, scheduling, match rules.
// This SDK never computes any of that; it fetches, caches, and authenticates.
//
// # Construction
//
// Components are explicit long-lived objects wired once through
// [Builder.Build] and passed by reference; there are no package-level
// singletons and no ambient state.
package goolstar
