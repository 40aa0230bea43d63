package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/juanqui-art/goolstar-go/token"
)

const (
	tokenPath   = "/auth/token/"
	refreshPath = "/auth/token/refresh/"

	defaultHTTPTimeout = 15 * time.Second
)

// AuthError is returned by [Store.Login] when the token endpoint rejects the
// credentials or answers with something that is not JSON. Detail carries the
// server-provided message when one exists.
type AuthError struct {
	StatusCode int
	Detail     string
}

func (e *AuthError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("authentication failed: HTTP %d", e.StatusCode)
}

// Config holds session store tuning parameters.
type Config struct {
	// BaseURL is the backend API root, e.g. "https://api.example.com/api".
	BaseURL string

	// RefreshThreshold is the remaining access-token lifetime below which
	// ValidateAndRefreshIfNeeded refreshes proactively. Zero selects
	// token.DefaultRefreshThreshold.
	RefreshThreshold time.Duration

	// HTTPClient performs the login/refresh calls. Nil selects a client with
	// a 15s timeout.
	HTTPClient *http.Client

	// OnLogin, OnRefresh, and OnLogout are optional observation hooks, called
	// outside network I/O with the outcome of the operation.
	OnLogin   func(ok bool)
	OnRefresh func(ok bool)
	OnLogout  func()
}

// Store owns the session state. All exported methods are safe for concurrent
// use; operations that touch the network hold the store lock for their whole
// duration, so concurrent refreshes serialize instead of racing.
type Store struct {
	mu      chanMutex
	cfg     Config
	storage Storage

	user          *User
	accessToken   string
	refreshToken  string
	authenticated bool
	loading       bool
}

// chanMutex is a context-aware mutex: Lock can give up when the caller's
// context expires, which keeps a stalled refresh from wedging every reader.
type chanMutex chan struct{}

func (m chanMutex) lock() { m <- struct{}{} }

func (m chanMutex) lockCtx(ctx context.Context) error {
	select {
	case m <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m chanMutex) unlock() { <-m }

// NewStore creates a session store in the anonymous state.
func NewStore(cfg Config, storage Storage) (*Store, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, errors.New("session: BaseURL is required")
	}
	if cfg.RefreshThreshold <= 0 {
		cfg.RefreshThreshold = token.DefaultRefreshThreshold
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if storage == nil {
		storage = NewMemoryStorage()
	}

	return &Store{
		mu:      make(chanMutex, 1),
		cfg:     cfg,
		storage: storage,
	}, nil
}

// Hydrate loads the persisted record, if any, into the store. Meant to be
// called once at process start; the loading flag always resets to false.
func (s *Store) Hydrate(ctx context.Context) error {
	rec, err := s.storage.Load(ctx)
	if err != nil {
		return err
	}

	s.mu.lock()
	defer s.mu.unlock()
	s.loading = false
	if rec == nil {
		return nil
	}
	s.user = rec.User
	s.accessToken = rec.AccessToken
	s.refreshToken = rec.RefreshToken
	s.authenticated = rec.Authenticated
	return nil
}

type tokenResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	UserID  int64  `json:"user_id"`
	Email   string `json:"email"`
	IsStaff bool   `json:"is_staff"`
}

// Login exchanges credentials for a token pair. On failure the store is left
// anonymous with loading reset, and the *AuthError propagates so the caller
// can show the server's message. On success both tokens are stored, a user
// record is synthesized from the response plus the submitted username, and
// the session is persisted.
func (s *Store) Login(ctx context.Context, creds Credentials) error {
	if err := s.mu.lockCtx(ctx); err != nil {
		return err
	}
	defer s.mu.unlock()

	s.loading = true
	defer func() { s.loading = false }()

	resp, err := s.postJSON(ctx, s.cfg.BaseURL+tokenPath, creds)
	if err != nil {
		s.observeLogin(false)
		return &AuthError{Detail: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		s.observeLogin(false)
		return &AuthError{StatusCode: resp.StatusCode, Detail: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.observeLogin(false)
		return &AuthError{StatusCode: resp.StatusCode, Detail: detailFrom(body)}
	}

	var tokens tokenResponse
	if err := json.Unmarshal(body, &tokens); err != nil || tokens.Access == "" {
		s.observeLogin(false)
		return &AuthError{StatusCode: resp.StatusCode, Detail: "server did not return JSON"}
	}

	user := &User{
		ID:       tokens.UserID,
		Username: creds.Username,
		Email:    tokens.Email,
		IsStaff:  tokens.IsStaff,
		IsActive: true,
	}
	// Backfill identity the response omitted from the token claims.
	if info := token.UserFrom(tokens.Access); info != nil {
		if user.ID == 0 {
			user.ID = info.ID
		}
		if user.Email == "" {
			user.Email = info.Email
		}
		user.IsStaff = user.IsStaff || info.IsStaff
	}

	s.user = user
	s.accessToken = tokens.Access
	s.refreshToken = tokens.Refresh
	s.authenticated = true
	s.persistLocked(ctx)
	s.observeLogin(true)
	return nil
}

// Logout clears in-memory state and the persisted record. Idempotent: calling
// it while anonymous only re-clears storage.
func (s *Store) Logout() {
	s.mu.lock()
	defer s.mu.unlock()
	s.logoutLocked()
}

// RefreshAccessToken exchanges the refresh token for a new access token. Every
// failure mode collapses to logout + false; this method never propagates an
// error, because callers treat refresh as a boolean gate, not an operation
// that can be retried meaningfully.
func (s *Store) RefreshAccessToken(ctx context.Context) bool {
	if err := s.mu.lockCtx(ctx); err != nil {
		return false
	}
	defer s.mu.unlock()
	return s.refreshLocked(ctx)
}

// CheckAuth re-derives the authenticated flag from the stored tokens. It never
// refreshes: an expired access token logs the session out.
func (s *Store) CheckAuth() {
	s.mu.lock()
	defer s.mu.unlock()

	if s.accessToken == "" || s.refreshToken == "" {
		s.logoutLocked()
		return
	}
	if !token.IsValid(s.accessToken) {
		s.logoutLocked()
		return
	}
	s.authenticated = true
	s.persistLocked(context.Background())
}

// ValidateAndRefreshIfNeeded is the guard to call before any authenticated
// network request. A fresh token outside the refresh threshold returns true
// with zero network calls; otherwise the refresh flow decides.
func (s *Store) ValidateAndRefreshIfNeeded(ctx context.Context) bool {
	if err := s.mu.lockCtx(ctx); err != nil {
		return false
	}
	defer s.mu.unlock()

	if s.accessToken == "" || s.refreshToken == "" {
		s.logoutLocked()
		return false
	}

	if token.IsValid(s.accessToken) && !token.ShouldRefresh(s.accessToken, s.cfg.RefreshThreshold) {
		return true
	}

	return s.refreshLocked(ctx)
}

// IsAuthenticated returns the flag as of the last verification. It is not a
// live validity check; security-sensitive callers go through
// ValidateAndRefreshIfNeeded.
func (s *Store) IsAuthenticated() bool {
	s.mu.lock()
	defer s.mu.unlock()
	return s.authenticated
}

// IsLoading reports whether a login call is in progress.
func (s *Store) IsLoading() bool {
	s.mu.lock()
	defer s.mu.unlock()
	return s.loading
}

// CurrentUser returns a copy of the user record, or nil while anonymous.
func (s *Store) CurrentUser() *User {
	s.mu.lock()
	defer s.mu.unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// CurrentAccessToken returns the stored access token, possibly empty.
func (s *Store) CurrentAccessToken() string {
	s.mu.lock()
	defer s.mu.unlock()
	return s.accessToken
}

// CurrentRefreshToken returns the stored refresh token, possibly empty.
func (s *Store) CurrentRefreshToken() string {
	s.mu.lock()
	defer s.mu.unlock()
	return s.refreshToken
}

// IsTokenValidAndNotExpired delegates to the token validator against the
// stored access token.
func (s *Store) IsTokenValidAndNotExpired() bool {
	return token.IsValid(s.CurrentAccessToken())
}

// TokenTimeRemaining returns the stored access token's remaining lifetime, or
// token.ExpiryUnknown when there is none.
func (s *Store) TokenTimeRemaining() time.Duration {
	return token.ExpiresIn(s.CurrentAccessToken())
}

// ShouldRefreshSoon reports whether the stored access token is within the
// configured refresh threshold.
func (s *Store) ShouldRefreshSoon() bool {
	s.mu.lock()
	threshold := s.cfg.RefreshThreshold
	tok := s.accessToken
	s.mu.unlock()
	return token.ShouldRefresh(tok, threshold)
}

func (s *Store) refreshLocked(ctx context.Context) bool {
	if s.refreshToken == "" {
		s.logoutLocked()
		s.observeRefresh(false)
		return false
	}

	resp, err := s.postJSON(ctx, s.cfg.BaseURL+refreshPath, map[string]string{"refresh": s.refreshToken})
	if err != nil {
		log.Print("goolstar: token refresh request failed")
		s.logoutLocked()
		s.observeRefresh(false)
		return false
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil || resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logoutLocked()
		s.observeRefresh(false)
		return false
	}

	var tokens tokenResponse
	if err := json.Unmarshal(body, &tokens); err != nil || tokens.Access == "" {
		s.logoutLocked()
		s.observeRefresh(false)
		return false
	}

	// Refresh replaces the access token only; the refresh token stays.
	s.accessToken = tokens.Access
	s.authenticated = true
	s.persistLocked(ctx)
	s.observeRefresh(true)
	return true
}

func (s *Store) logoutLocked() {
	wasAnonymous := s.accessToken == "" && s.refreshToken == "" && s.user == nil

	s.user = nil
	s.accessToken = ""
	s.refreshToken = ""
	s.authenticated = false

	if err := s.storage.Clear(context.Background()); err != nil {
		log.Print("goolstar: session storage clear failed")
	}
	if !wasAnonymous && s.cfg.OnLogout != nil {
		s.cfg.OnLogout()
	}
}

func (s *Store) persistLocked(ctx context.Context) {
	rec := &Record{
		User:          s.user,
		AccessToken:   s.accessToken,
		RefreshToken:  s.refreshToken,
		Authenticated: s.authenticated,
	}
	if err := s.storage.Save(ctx, rec); err != nil {
		log.Print("goolstar: session persist failed")
	}
}

func (s *Store) postJSON(ctx context.Context, url string, payload any) (*http.Response, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return s.cfg.HTTPClient.Do(req)
}

func (s *Store) observeLogin(ok bool) {
	if s.cfg.OnLogin != nil {
		s.cfg.OnLogin(ok)
	}
}

func (s *Store) observeRefresh(ok bool) {
	if s.cfg.OnRefresh != nil {
		s.cfg.OnRefresh(ok)
	}
}

// detailFrom extracts the server's "detail" message from an error body,
// tolerating non-JSON and non-conforming shapes.
func detailFrom(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
