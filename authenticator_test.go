package access_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	access "github.com/justiceia/go-access"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig() access.BasicConfig {
	return access.BasicConfig{
		SigningKey: testSigningKey,
		Issuer:     "justiceia",
	}
}

func TestNewAuthenticatorRequiresSigningKey(t *testing.T) {
	provider := new(MockIdentityProvider)

	auth, err := access.NewAuthenticator(provider, access.BasicConfig{})

	assert.Nil(t, auth)
	assert.ErrorIs(t, err, access.ErrMissingSigningKey)
}

func TestAutherLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("successful login returns a verifiable token", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		sink := &capturingSink{}

		auth, err := access.NewAuthenticator(provider, newTestConfig())
		require.NoError(t, err)
		auth.WithActivitySink(sink)

		identity := TestIdentity{
			id:       uuid.NewString(),
			name:     "Asha Rao",
			email:    "client@example.com",
			role:     access.RoleClient,
			verified: true,
		}

		provider.On("VerifyIdentity", ctx, "client@example.com", "password123").
			Return(identity, nil).Once()

		token, err := auth.Login(ctx, "client@example.com", "password123")
		require.NoError(t, err)
		require.NotEmpty(t, token)

		claims, err := auth.TokenService().Validate(token)
		require.NoError(t, err)
		assert.Equal(t, identity.id, claims.UserID())
		assert.Equal(t, identity.email, claims.UserEmail())
		assert.Equal(t, access.RoleClient, claims.Role())

		require.Len(t, sink.events, 1)
		assert.Equal(t, access.ActivityEventLoginSuccess, sink.events[0].EventType)
		assert.Equal(t, identity.id, sink.events[0].UserID)

		provider.AssertExpectations(t)
	})

	t.Run("failed verification surfaces the provider error", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		sink := &capturingSink{}

		auth, err := access.NewAuthenticator(provider, newTestConfig())
		require.NoError(t, err)
		auth.WithActivitySink(sink)

		provider.On("VerifyIdentity", ctx, "client@example.com", "nope").
			Return(nil, access.ErrInvalidCredentials).Once()

		token, err := auth.Login(ctx, "client@example.com", "nope")

		assert.Empty(t, token)
		assert.ErrorIs(t, err, access.ErrInvalidCredentials)

		require.Len(t, sink.events, 1)
		assert.Equal(t, access.ActivityEventLoginFailure, sink.events[0].EventType)

		provider.AssertExpectations(t)
	})

	t.Run("suspended identity cannot log in", func(t *testing.T) {
		provider := new(MockIdentityProvider)

		auth, err := access.NewAuthenticator(provider, newTestConfig())
		require.NoError(t, err)

		identity := TestIdentity{
			id:     uuid.NewString(),
			email:  "suspended@example.com",
			role:   access.RoleClient,
			status: access.UserStatusSuspended,
		}

		provider.On("VerifyIdentity", ctx, "suspended@example.com", "password123").
			Return(identity, nil).Once()

		token, err := auth.Login(ctx, "suspended@example.com", "password123")

		assert.Empty(t, token)
		assert.ErrorIs(t, err, access.ErrAccountSuspended)

		provider.AssertExpectations(t)
	})
}

func TestAutherSessionFromToken(t *testing.T) {
	provider := new(MockIdentityProvider)

	auth, err := access.NewAuthenticator(provider, newTestConfig())
	require.NoError(t, err)

	identity := TestIdentity{
		id:    uuid.NewString(),
		email: "client@example.com",
		role:  access.RoleAdvocate,
	}

	token, err := auth.TokenService().Generate(identity)
	require.NoError(t, err)

	t.Run("valid token", func(t *testing.T) {
		session, err := auth.SessionFromToken(token)
		require.NoError(t, err)

		assert.Equal(t, identity.id, session.GetUserID())
		assert.Equal(t, identity.email, session.GetEmail())
		assert.Equal(t, "justiceia", session.GetIssuer())
	})

	t.Run("garbage token", func(t *testing.T) {
		session, err := auth.SessionFromToken("garbage")
		assert.Nil(t, session)
		assert.Error(t, err)
	})
}

func TestAutherCurrentSession(t *testing.T) {
	ctx := context.Background()

	t.Run("reflects the stored verification flag, not the token", func(t *testing.T) {
		provider := new(MockIdentityProvider)

		auth, err := access.NewAuthenticator(provider, newTestConfig())
		require.NoError(t, err)

		// Token minted while the user was still unverified
		unverified := TestIdentity{
			id:    uuid.NewString(),
			email: "client@example.com",
			role:  access.RoleClient,
		}

		token, err := auth.TokenService().Generate(unverified)
		require.NoError(t, err)

		// The user completed verification and changed their name since
		current := TestIdentity{
			id:       unverified.id,
			name:     "Asha Rao",
			email:    "client@example.com",
			role:     access.RoleClient,
			verified: true,
		}

		provider.On("FindIdentityByIdentifier", ctx, unverified.id).
			Return(current, nil).Once()

		session, err := auth.CurrentSession(ctx, token)
		require.NoError(t, err)

		assert.True(t, session.IsVerified())
		assert.Equal(t, "Asha Rao", session.GetDisplayName())
		assert.Equal(t, "client", session.GetData()["role"])

		provider.AssertExpectations(t)
	})

	t.Run("deleted principal maps to identity not found", func(t *testing.T) {
		provider := new(MockIdentityProvider)

		auth, err := access.NewAuthenticator(provider, newTestConfig())
		require.NoError(t, err)

		identity := TestIdentity{
			id:    uuid.NewString(),
			email: "gone@example.com",
			role:  access.RoleClient,
		}

		token, err := auth.TokenService().Generate(identity)
		require.NoError(t, err)

		provider.On("FindIdentityByIdentifier", ctx, identity.id).
			Return(nil, access.ErrIdentityNotFound).Once()

		session, err := auth.CurrentSession(ctx, token)

		assert.Nil(t, session)
		assert.ErrorIs(t, err, access.ErrIdentityNotFound)

		provider.AssertExpectations(t)
	})

	t.Run("expired token never reaches the store", func(t *testing.T) {
		provider := new(MockIdentityProvider)

		auth, err := access.NewAuthenticator(provider, newTestConfig())
		require.NoError(t, err)

		session, err := auth.CurrentSession(ctx, "garbage")

		assert.Nil(t, session)
		assert.Error(t, err)

		provider.AssertNotCalled(t, "FindIdentityByIdentifier")
	})
}

func TestAutherIdentityFromSession(t *testing.T) {
	ctx := context.Background()
	provider := new(MockIdentityProvider)

	auth, err := access.NewAuthenticator(provider, newTestConfig())
	require.NoError(t, err)

	identity := TestIdentity{
		id:    uuid.NewString(),
		email: "client@example.com",
		role:  access.RoleClient,
	}

	provider.On("FindIdentityByIdentifier", ctx, identity.id).
		Return(identity, nil).Once()

	got, err := auth.IdentityFromSession(ctx, &access.SessionObject{UserID: identity.id})
	require.NoError(t, err)
	assert.Equal(t, identity.id, got.ID())

	provider.AssertExpectations(t)
}
