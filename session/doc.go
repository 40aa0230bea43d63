// Package session is the single source of truth for the authenticated GoolStar
// identity: both tokens, the user record, and the authenticated flag. All
// mutations funnel through [Store] action methods; nothing else in the module
// writes session state.
//
// # State machine
//
// A store starts anonymous, moves to authenticated via [Store.Login], is
// refreshed in place by [Store.RefreshAccessToken], and returns to anonymous
// via [Store.Logout] or any failed refresh. "Expiring" is detected on demand
// through [Store.ShouldRefreshSoon], never stored.
//
// # Persistence
//
// A hand-picked subset of state (tokens, user, authenticated flag) crosses the
// [Storage] boundary as an explicit [Record]; transient fields never do. File,
// memory, and Redis backends are provided.
//
// # Architecture boundaries
//
// This package decodes tokens through package token and talks only to the two
// auth endpoints. It does NOT issue arbitrary API requests, cache responses,
// or decide what a caller may access.
package session
