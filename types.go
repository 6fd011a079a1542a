package access

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Session holds the attributes of an authenticated session, reflecting the
// principal's current stored state, not just the token claims.
type Session interface {
	GetUserID() string
	GetUserUUID() (uuid.UUID, error)
	GetEmail() string
	GetDisplayName() string
	GetIssuer() string
	GetIssuedAt() *time.Time
	GetExpiration() *time.Time
	IsVerified() bool
	GetData() map[string]any
}

// Authenticator holds methods to deal with authentication
type Authenticator interface {
	Login(ctx context.Context, identifier, password string) (string, error)
	SessionFromToken(token string) (Session, error)
	// CurrentSession validates the token and re-reads the principal so the
	// session reflects profile edits made after issuance. Returns
	// ErrIdentityNotFound when the principal no longer exists.
	CurrentSession(ctx context.Context, token string) (Session, error)
	IdentityFromSession(ctx context.Context, session Session) (Identity, error)
}

type LoginPayload interface {
	GetIdentifier() string
	GetPassword() string
}

type HTTPAuthenticator interface {
	Login(c router.Context, payload LoginPayload) error
	Logout(c router.Context)
	Gate(table *RouteTable) router.MiddlewareFunc
	ProtectedRoute(errorHandler func(c router.Context, err error) error) router.MiddlewareFunc
	SetRedirect(c router.Context)
	GetRedirect(c router.Context, def ...string) string
}

// Identity holds the attributes of an identity
type Identity interface {
	ID() string
	Email() string
	Role() string
	DisplayName() string
	Verified() bool
}

// Config holds access control options
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetContextKey() string
	GetTokenExpiration() int
	GetTokenLookup() string
	GetAuthScheme() string
	GetIssuer() string
	GetAudience() []string
	GetSignInRoute() string
	GetVerificationRoute() string
	GetRejectedRouteKey() string
	GetRejectedRouteDefault() string
}

// IdentityProvider ensures we have a store to retrieve auth identities
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error)
	FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// TokenService handles issuing and validating session tokens.
type TokenService interface {
	Generate(identity Identity) (string, error)
	SignClaims(claims *JWTClaims) (string, error)
	Validate(tokenString string) (AuthClaims, error)
}

// TokenValidator validates raw tokens; satisfied by TokenService and by
// external validators plugged into the gate.
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

// CookieName is the session cookie. Fixed by the client contract.
const CookieName = "auth-token"

// DefaultTokenExpiration is the session token lifetime in hours (7 days).
const DefaultTokenExpiration = 24 * 7

// BasicConfig is a plain-struct Config for wiring and tests. Zero values
// fall back to the documented defaults; the signing key has no default and
// must be provided.
type BasicConfig struct {
	SigningKey           string
	SigningMethod        string
	ContextKey           string
	TokenExpiration      int
	TokenLookup          string
	AuthScheme           string
	Issuer               string
	Audience             []string
	SignInRoute          string
	VerificationRoute    string
	RejectedRouteKey     string
	RejectedRouteDefault string
}

var _ Config = BasicConfig{}

func (c BasicConfig) GetSigningKey() string { return c.SigningKey }

func (c BasicConfig) GetSigningMethod() string {
	if c.SigningMethod == "" {
		return "HS256"
	}
	return c.SigningMethod
}

func (c BasicConfig) GetContextKey() string {
	if c.ContextKey == "" {
		return CookieName
	}
	return c.ContextKey
}

func (c BasicConfig) GetTokenExpiration() int {
	if c.TokenExpiration <= 0 {
		return DefaultTokenExpiration
	}
	return c.TokenExpiration
}

func (c BasicConfig) GetTokenLookup() string {
	if c.TokenLookup == "" {
		return "cookie:" + c.GetContextKey()
	}
	return c.TokenLookup
}

func (c BasicConfig) GetAuthScheme() string {
	if c.AuthScheme == "" {
		return "Bearer"
	}
	return c.AuthScheme
}

func (c BasicConfig) GetIssuer() string     { return c.Issuer }
func (c BasicConfig) GetAudience() []string { return c.Audience }

func (c BasicConfig) GetSignInRoute() string {
	if c.SignInRoute == "" {
		return "/signin"
	}
	return c.SignInRoute
}

func (c BasicConfig) GetVerificationRoute() string {
	if c.VerificationRoute == "" {
		return "/vkyc"
	}
	return c.VerificationRoute
}

func (c BasicConfig) GetRejectedRouteKey() string {
	if c.RejectedRouteKey == "" {
		return "rejected_route"
	}
	return c.RejectedRouteKey
}

func (c BasicConfig) GetRejectedRouteDefault() string {
	if c.RejectedRouteDefault == "" {
		return "/"
	}
	return c.RejectedRouteDefault
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] ACCESS "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] ACCESS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] ACCESS "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] ACCESS "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
