package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ValidityMargin is the hard safety margin applied by [IsValid]: a token whose
// exp lies less than this far in the future is already treated as expired,
// covering clock skew and in-flight request latency.
const ValidityMargin = 30 * time.Second

// DefaultRefreshThreshold is the remaining-lifetime threshold below which
// [ShouldRefresh] recommends a proactive refresh when the caller passes a
// non-positive threshold.
const DefaultRefreshThreshold = 5 * time.Minute

// ExpiryUnknown is the sentinel returned by [ExpiresIn] when the token cannot
// be decoded or carries no exp claim.
const ExpiryUnknown = -time.Second

// Claims is the decoded payload of a GoolStar access token. The backend issues
// DRF SimpleJWT-shaped tokens, so identity travels in custom claims next to
// the registered set.
type Claims struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
	IsStaff   bool   `json:"is_staff,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	jwt.RegisteredClaims
}

// UserInfo is the identity view derivable from a token alone. The session
// store synthesizes its user record from this plus login-time data.
type UserInfo struct {
	ID       int64
	Username string
	Email    string
	IsStaff  bool
}

// Decode parses the token payload without signature verification and returns
// nil on any failure: empty input, malformed structure, bad base64 or JSON.
func Decode(tokenStr string) *Claims {
	if tokenStr == "" {
		return nil
	}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return nil
	}

	return claims
}

// IsValid reports whether the token decodes, carries an exp claim, and has at
// least [ValidityMargin] of lifetime left.
func IsValid(tokenStr string) bool {
	claims := Decode(tokenStr)
	if claims == nil || claims.ExpiresAt == nil {
		return false
	}

	return time.Until(claims.ExpiresAt.Time) > ValidityMargin
}

// ExpiresIn returns the remaining lifetime of the token, floored at zero, or
// [ExpiryUnknown] when the token cannot be decoded or has no exp claim.
func ExpiresIn(tokenStr string) time.Duration {
	claims := Decode(tokenStr)
	if claims == nil || claims.ExpiresAt == nil {
		return ExpiryUnknown
	}

	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining < 0 {
		return 0
	}

	return remaining
}

// ShouldRefresh reports whether the token is expired, undecodable, or within
// threshold of expiry. A non-positive threshold selects
// [DefaultRefreshThreshold]. The threshold is independent of the hard
// [ValidityMargin]: a token can still be valid while already due for refresh.
func ShouldRefresh(tokenStr string, threshold time.Duration) bool {
	if threshold <= 0 {
		threshold = DefaultRefreshThreshold
	}

	claims := Decode(tokenStr)
	if claims == nil || claims.ExpiresAt == nil {
		return true
	}

	remaining := time.Until(claims.ExpiresAt.Time)
	return remaining <= threshold
}

// UserFrom extracts the identity claims of the token, or nil when the token
// cannot be decoded.
func UserFrom(tokenStr string) *UserInfo {
	claims := Decode(tokenStr)
	if claims == nil {
		return nil
	}

	return &UserInfo{
		ID:       claims.UserID,
		Username: claims.Username,
		Email:    claims.Email,
		IsStaff:  claims.IsStaff,
	}
}
