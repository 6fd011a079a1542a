package access

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// ScopedTokenOptions controls how MintScopedToken issues short-lived tokens.
type ScopedTokenOptions struct {
	// TTL overrides the default token expiration. Zero uses TokenService defaults.
	TTL time.Duration
	// Issuer overrides the default issuer if provided.
	Issuer string
	// Audience overrides the default audience if provided.
	Audience []string
	// IssuedAt overrides the issuance time. Zero uses time.Now().
	IssuedAt time.Time
	// Consultation scopes the token to a single consultation resource.
	Consultation uuid.UUID
}

type tokenDefaults struct {
	issuer   string
	audience jwt.ClaimStrings
	ttl      time.Duration
}

type tokenDefaultsProvider interface {
	tokenDefaults() tokenDefaults
}

// MintScopedToken mints a short-lived JWT scoped to a consultation, used to
// hand a paying client off to the video/chat transport. The TTL should be
// capped at the grant's remaining window; MintGrantToken does that for you.
func MintScopedToken(tokenService TokenService, identity Identity, opts ScopedTokenOptions) (string, time.Time, error) {
	if tokenService == nil {
		return "", time.Time{}, goerrors.New("token service is required", goerrors.CategoryBadInput)
	}
	if identity == nil {
		return "", time.Time{}, goerrors.New("identity is required", goerrors.CategoryBadInput)
	}

	issuer := opts.Issuer
	audience := opts.Audience
	ttl := opts.TTL

	if defaultsProvider, ok := tokenService.(tokenDefaultsProvider); ok {
		defaults := defaultsProvider.tokenDefaults()
		if issuer == "" {
			issuer = defaults.issuer
		}
		if len(audience) == 0 {
			audience = defaults.audience
		}
		if ttl == 0 {
			ttl = defaults.ttl
		}
	}

	issuedAt := opts.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}
	expiresAt := issuedAt.Add(ttl)

	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   identity.ID(),
			Audience:  audience,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UID:      identity.ID(),
		Email:    identity.Email(),
		UserRole: identity.Role(),
	}

	if opts.Consultation != uuid.Nil {
		claims.RegisteredClaims.Audience = append(
			claims.RegisteredClaims.Audience,
			"consultation:"+opts.Consultation.String(),
		)
	}

	ensureTokenID(&claims.RegisteredClaims)

	token, err := tokenService.SignClaims(claims)
	if err != nil {
		return "", time.Time{}, err
	}

	return token, expiresAt, nil
}

// MintGrantToken mints a consultation-scoped token whose lifetime never
// exceeds the grant's remaining window. Returns an error for lapsed grants.
func MintGrantToken(tokenService TokenService, identity Identity, grant *AccessGrant) (string, time.Time, error) {
	if grant == nil {
		return "", time.Time{}, goerrors.New("grant is required", goerrors.CategoryBadInput)
	}

	now := time.Now()
	remaining := grant.Remaining(now)
	if remaining == 0 {
		return "", time.Time{}, goerrors.New("grant window has lapsed", goerrors.CategoryAuth).
			WithTextCode(TextCodeGrantInvalid)
	}

	return MintScopedToken(tokenService, identity, ScopedTokenOptions{
		TTL:          remaining,
		IssuedAt:     now,
		Consultation: grant.ConsultationID,
	})
}
