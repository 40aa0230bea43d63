// Package token inspects GoolStar access tokens on the client side without
// verifying signatures (the backend owns the signing keys; this SDK only needs
// expiry and identity claims to decide when to refresh).
//
// # Failure semantics
//
// Every function degrades to an absent/invalid result on malformed input.
// Nothing in this package panics or returns an error: token inspection runs on
// hot read paths and must never take one down.
//
// # What this package must NOT do
//
//   - Perform network I/O or touch persisted state.
//   - Verify signatures or make authorization decisions.
//   - Import any other package of this module (strict leaf).
package token
