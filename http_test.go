package access_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	access "github.com/justiceia/go-access"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func cookieNamed(name string) any {
	return mock.MatchedBy(func(c *router.Cookie) bool {
		return c.Name == name
	})
}

func clearedCookie(name string) any {
	return mock.MatchedBy(func(c *router.Cookie) bool {
		return c.Name == name && c.Value == ""
	})
}

func expiredTokenFor(t *testing.T, auther *access.Auther, identity TestIdentity) string {
	t.Helper()

	now := time.Now()
	claims := &access.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "justiceia",
			Subject:   identity.id,
			IssuedAt:  jwt.NewNumericDate(now.Add(-8 * 24 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
		},
		UID:      identity.id,
		Email:    identity.email,
		UserRole: identity.role,
	}

	token, err := auther.TokenService().SignClaims(claims)
	require.NoError(t, err)
	return token
}

func newGateFixture(t *testing.T) (*access.RouteAuthenticator, *access.Auther, *MockIdentityProvider) {
	t.Helper()

	provider := new(MockIdentityProvider)
	cfg := newTestConfig()

	auther, err := access.NewAuthenticator(provider, cfg)
	require.NoError(t, err)

	httpAuth, err := access.NewHTTPAuthenticator(auther, cfg)
	require.NoError(t, err)

	return httpAuth, auther, provider
}

func TestNewHTTPAuthenticatorRequiresSigningKey(t *testing.T) {
	httpAuth, err := access.NewHTTPAuthenticator(new(MockAuthenticator), access.BasicConfig{})

	assert.Nil(t, httpAuth)
	assert.ErrorIs(t, err, access.ErrMissingSigningKey)
}

func TestGatePublicRouteSkipsTokenHandling(t *testing.T) {
	httpAuth, _, _ := newGateFixture(t)

	handler := httpAuth.Gate(access.DefaultRouteTable())(func(c router.Context) error {
		return nil
	})

	ctx := new(MockContext)
	ctx.On("Path").Return("/signin")

	err := handler(ctx)
	require.NoError(t, err)

	assert.True(t, ctx.NextCalled)
	ctx.AssertExpectations(t)
}

func TestGateMissingCookieFailsClosed(t *testing.T) {
	httpAuth, _, _ := newGateFixture(t)

	handler := httpAuth.Gate(access.DefaultRouteTable())(func(c router.Context) error {
		return nil
	})

	ctx := new(MockContext)
	ctx.On("Path").Return("/chat")
	ctx.On("Cookies", access.CookieName).Return("")
	ctx.On("OriginalURL").Return("/chat")
	ctx.On("Method").Return("GET")
	// stale session cookie cleared, rejected path remembered
	ctx.On("Cookie", clearedCookie(access.CookieName)).Return()
	ctx.On("Cookie", cookieNamed("rejected_route")).Return()
	ctx.On("Redirect", "/signin", []int{302}).Return(nil)

	err := handler(ctx)
	require.NoError(t, err)

	assert.False(t, ctx.NextCalled)
	ctx.AssertExpectations(t)
}

func TestGateExpiredTokenFailsClosed(t *testing.T) {
	httpAuth, auther, _ := newGateFixture(t)

	identity := TestIdentity{
		id:    uuid.NewString(),
		email: "client@example.com",
		role:  access.RoleClient,
	}
	token := expiredTokenFor(t, auther, identity)

	handler := httpAuth.Gate(access.DefaultRouteTable())(func(c router.Context) error {
		return nil
	})

	ctx := new(MockContext)
	ctx.On("Path").Return("/vkyc")
	ctx.On("Cookies", access.CookieName).Return(token)
	ctx.On("OriginalURL").Return("/vkyc")
	ctx.On("Method").Return("POST")
	ctx.On("Cookie", clearedCookie(access.CookieName)).Return()
	ctx.On("Cookie", cookieNamed("rejected_route")).Return()
	ctx.On("Redirect", "/signin", []int{303}).Return(nil)

	err := handler(ctx)
	require.NoError(t, err)

	assert.False(t, ctx.NextCalled)
	ctx.AssertExpectations(t)
}

func TestGateUnverifiedPrincipalRedirectsToVerification(t *testing.T) {
	httpAuth, auther, provider := newGateFixture(t)

	identity := TestIdentity{
		id:    uuid.NewString(),
		email: "client@example.com",
		role:  access.RoleClient,
	}

	token, err := auther.TokenService().Generate(identity)
	require.NoError(t, err)

	provider.On("FindIdentityByIdentifier", context.Background(), identity.id).
		Return(identity, nil).Once()

	handler := httpAuth.Gate(access.DefaultRouteTable())(func(c router.Context) error {
		return nil
	})

	ctx := new(MockContext)
	ctx.On("Path").Return("/chat")
	ctx.On("Context").Return(context.Background())
	ctx.On("Cookies", access.CookieName).Return(token)
	ctx.On("OriginalURL").Return("/chat")
	// the session cookie survives; only the rejected path is stashed
	ctx.On("Cookie", cookieNamed("rejected_route")).Return()
	ctx.On("Redirect", "/vkyc", []int{303}).Return(nil)

	err = handler(ctx)
	require.NoError(t, err)

	assert.False(t, ctx.NextCalled)
	ctx.AssertExpectations(t)
	provider.AssertExpectations(t)
}

func TestGateVerifiedPrincipalPassesThrough(t *testing.T) {
	httpAuth, auther, provider := newGateFixture(t)

	identity := TestIdentity{
		id:       uuid.NewString(),
		email:    "client@example.com",
		role:     access.RoleClient,
		verified: true,
	}

	token, err := auther.TokenService().Generate(identity)
	require.NoError(t, err)

	provider.On("FindIdentityByIdentifier", context.Background(), identity.id).
		Return(identity, nil).Once()

	handler := httpAuth.Gate(access.DefaultRouteTable())(func(c router.Context) error {
		return nil
	})

	ctx := new(MockContext)
	ctx.On("Path").Return("/chat")
	ctx.On("Context").Return(context.Background())
	ctx.On("Cookies", access.CookieName).Return(token)
	ctx.On("Locals", access.CookieName, mock.Anything).Return(nil)
	ctx.On("Locals", "current_user", mock.Anything).Return(nil)

	err = handler(ctx)
	require.NoError(t, err)

	assert.True(t, ctx.NextCalled)
	ctx.AssertExpectations(t)
	provider.AssertExpectations(t)
}

func TestGateAuthOnlyRouteSkipsVerificationCheck(t *testing.T) {
	httpAuth, auther, provider := newGateFixture(t)

	// Unverified, but /vkyc only requires a session
	identity := TestIdentity{
		id:    uuid.NewString(),
		email: "client@example.com",
		role:  access.RoleClient,
	}

	token, err := auther.TokenService().Generate(identity)
	require.NoError(t, err)

	handler := httpAuth.Gate(access.DefaultRouteTable())(func(c router.Context) error {
		return nil
	})

	ctx := new(MockContext)
	ctx.On("Path").Return("/vkyc")
	ctx.On("Cookies", access.CookieName).Return(token)
	ctx.On("Locals", access.CookieName, mock.Anything).Return(nil)
	ctx.On("Locals", "current_user", mock.Anything).Return(nil)

	err = handler(ctx)
	require.NoError(t, err)

	assert.True(t, ctx.NextCalled)
	ctx.AssertExpectations(t)
	provider.AssertNotCalled(t, "FindIdentityByIdentifier")
}

func TestRouteAuthenticatorLogin(t *testing.T) {
	auth := new(MockAuthenticator)

	httpAuth, err := access.NewHTTPAuthenticator(auth, newTestConfig())
	require.NoError(t, err)

	ctx := new(MockContext)
	ctx.On("Context").Return(context.Background())
	auth.On("Login", context.Background(), "client@example.com", "password123").
		Return("signed-token", nil).Once()

	ctx.On("Cookie", mock.MatchedBy(func(c *router.Cookie) bool {
		return c.Name == access.CookieName &&
			c.Value == "signed-token" &&
			c.HTTPOnly &&
			c.SameSite == "Strict"
	})).Return()

	err = httpAuth.Login(ctx, MockLoginPayload{
		Identifier: "client@example.com",
		Password:   "password123",
	})
	require.NoError(t, err)

	ctx.AssertExpectations(t)
	auth.AssertExpectations(t)
}

func TestRouteAuthenticatorLogout(t *testing.T) {
	httpAuth, _, _ := newGateFixture(t)

	ctx := new(MockContext)
	ctx.On("Cookie", clearedCookie(access.CookieName)).Return()

	httpAuth.Logout(ctx)

	ctx.AssertExpectations(t)
}

func TestRouteAuthenticatorRedirectCookie(t *testing.T) {
	httpAuth, _, _ := newGateFixture(t)

	t.Run("returns and clears the stashed route", func(t *testing.T) {
		ctx := new(MockContext)
		ctx.On("Cookies", "rejected_route").Return("/chat/123")
		ctx.On("Cookie", clearedCookie("rejected_route")).Return()

		assert.Equal(t, "/chat/123", httpAuth.GetRedirect(ctx))
		ctx.AssertExpectations(t)
	})

	t.Run("falls back to the default", func(t *testing.T) {
		ctx := new(MockContext)
		ctx.On("Cookies", "rejected_route").Return("")

		assert.Equal(t, "/", httpAuth.GetRedirect(ctx))
		assert.Equal(t, "/profile", httpAuth.GetRedirect(ctx, "/profile"))
		ctx.AssertExpectations(t)
	})
}
