package auth

import (
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// ErrTokenExpired is returned for a JWT whose exp claim has passed.
var ErrTokenExpired = errors.New("access token expired")

// TokenInspector reads claims from access tokens issued by the portal API.
// The client holds no signing key, so signatures are never verified here;
// the server remains the authority. Inspection only lets the client drop a
// token it can already tell is dead.
type TokenInspector struct {
	parser *jwt.Parser
	now    func() time.Time
	leeway time.Duration
}

// NewTokenInspector builds an inspector. leeway tolerates clock skew.
func NewTokenInspector(leeway time.Duration) *TokenInspector {
	return &TokenInspector{parser: jwt.NewParser(), now: time.Now, leeway: leeway}
}

// Claims describes the JWT payload fields the client reads.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Inspect returns the token claims, or ok=false for opaque (non-JWT) tokens.
func (ti *TokenInspector) Inspect(token string) (*Claims, bool) {
	if strings.Count(token, ".") != 2 {
		return nil, false
	}
	claims := &Claims{}
	if _, _, err := ti.parser.ParseUnverified(token, claims); err != nil {
		return nil, false
	}
	return claims, true
}

// Check returns ErrTokenExpired when token is a JWT past its expiry.
// Opaque tokens and JWTs without exp pass.
func (ti *TokenInspector) Check(token string) error {
	claims, ok := ti.Inspect(token)
	if !ok || claims.ExpiresAt == nil {
		return nil
	}
	if ti.now().After(claims.ExpiresAt.Time.Add(ti.leeway)) {
		return ErrTokenExpired
	}
	return nil
}

// ExpiresAt returns the expiry of a JWT token, if it carries one.
func (ti *TokenInspector) ExpiresAt(token string) (time.Time, bool) {
	claims, ok := ti.Inspect(token)
	if !ok || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
