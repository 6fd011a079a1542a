package access_test

import (
	"context"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	access "github.com/justiceia/go-access"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAccountHandler(t *testing.T) {
	ctx := context.Background()
	db := setupAccessDB(t)
	repo := access.NewRepositoryManager(db)
	handler := access.NewRegisterAccountHandler(repo)

	t.Run("creates a loginable account", func(t *testing.T) {
		err := handler.Execute(ctx, access.RegisterAccountMessage{
			FirstName: "Asha",
			LastName:  "Rao",
			Email:     "asha@example.com",
			Phone:     "+919876543210",
			Password:  "password123",
		})
		require.NoError(t, err)

		user, err := repo.Users().GetByIdentifier(ctx, "asha@example.com")
		require.NoError(t, err)

		assert.Equal(t, access.RoleClient, user.Role)
		assert.Equal(t, access.UserStatusActive, user.Status)
		assert.False(t, user.IsVerified)
		assert.NoError(t, access.ComparePasswordAndHash("password123", user.PasswordHash))
	})

	t.Run("duplicate email surfaces as a conflict", func(t *testing.T) {
		err := handler.Execute(ctx, access.RegisterAccountMessage{
			Email:    "asha@example.com",
			Password: "another-password",
		})
		require.Error(t, err)

		var richErr *goerrors.Error
		require.True(t, goerrors.As(err, &richErr))
		assert.Equal(t, access.TextCodeEmailTaken, richErr.TextCode)
	})

	t.Run("empty password is rejected", func(t *testing.T) {
		err := handler.Execute(ctx, access.RegisterAccountMessage{
			Email:    "empty@example.com",
			Password: "",
		})
		assert.Error(t, err)
	})

	t.Run("keeps the requested role", func(t *testing.T) {
		err := handler.Execute(ctx, access.RegisterAccountMessage{
			Email:    "advocate@example.com",
			Password: "password123",
			Role:     access.RoleAdvocate,
		})
		require.NoError(t, err)

		user, err := repo.Users().GetByIdentifier(ctx, "advocate@example.com")
		require.NoError(t, err)
		assert.Equal(t, access.RoleAdvocate, user.Role)
	})
}

func TestCompleteVerificationHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("latches the verified flag", func(t *testing.T) {
		db := setupAccessDB(t)
		repo := access.NewRepositoryManager(db)
		sink := &capturingSink{}
		handler := access.NewCompleteVerificationHandler(repo).WithActivitySink(sink)

		seeded := seedUser(t, repo.Users(), &access.User{
			FirstName: "Asha",
			LastName:  "Rao",
			Email:     "asha@example.com",
			Phone:     "+919876543210",
		})

		var responded *access.User
		err := handler.Execute(ctx, access.CompleteVerificationMessage{
			UserID:     seeded.ID,
			OnResponse: func(u *access.User) { responded = u },
		})
		require.NoError(t, err)

		require.NotNil(t, responded)
		assert.True(t, responded.IsVerified)

		user, err := repo.Users().GetByIdentifier(ctx, seeded.ID.String())
		require.NoError(t, err)
		assert.True(t, user.IsVerified)
		assert.NotNil(t, user.VerifiedAt)

		require.Len(t, sink.events, 1)
		assert.Equal(t, access.ActivityEventVerificationDone, sink.events[0].EventType)
	})

	t.Run("incomplete profile cannot complete", func(t *testing.T) {
		db := setupAccessDB(t)
		repo := access.NewRepositoryManager(db)
		handler := access.NewCompleteVerificationHandler(repo)

		seeded := seedUser(t, repo.Users(), &access.User{
			Email: "bare@example.com",
		})

		err := handler.Execute(ctx, access.CompleteVerificationMessage{UserID: seeded.ID})
		require.Error(t, err)

		user, getErr := repo.Users().GetByIdentifier(ctx, seeded.ID.String())
		require.NoError(t, getErr)
		assert.False(t, user.IsVerified)
	})

	t.Run("already verified is a no-op", func(t *testing.T) {
		db := setupAccessDB(t)
		repo := access.NewRepositoryManager(db)
		sink := &capturingSink{}
		handler := access.NewCompleteVerificationHandler(repo).WithActivitySink(sink)

		seeded := seedUser(t, repo.Users(), &access.User{
			FirstName: "Asha",
			LastName:  "Rao",
			Email:     "asha@example.com",
			Phone:     "+919876543210",
		})
		require.NoError(t, repo.Users().MarkVerified(ctx, seeded.ID))

		var responded *access.User
		err := handler.Execute(ctx, access.CompleteVerificationMessage{
			UserID:     seeded.ID,
			OnResponse: func(u *access.User) { responded = u },
		})
		require.NoError(t, err)

		require.NotNil(t, responded)
		assert.True(t, responded.IsVerified)
	})

	t.Run("unknown user", func(t *testing.T) {
		db := setupAccessDB(t)
		repo := access.NewRepositoryManager(db)
		handler := access.NewCompleteVerificationHandler(repo)

		err := handler.Execute(ctx, access.CompleteVerificationMessage{UserID: uuid.New()})
		assert.Error(t, err)
	})
}

func TestConfirmPaymentHandler(t *testing.T) {
	ctx := context.Background()
	db := setupAccessDB(t)
	repo := access.NewRepositoryManager(db)
	ledger := access.NewLedger(repo)
	handler := access.NewConfirmPaymentHandler(ledger)

	msg := access.ConfirmPaymentMessage{
		ConsultationID: uuid.New(),
		ClientID:       uuid.New(),
		AdvocateID:     uuid.New(),
		AccessType:     access.AccessVideo,
		PaymentID:      "pay_123",
	}

	var first *access.GrantResult
	msg.OnResponse = func(r *access.GrantResult) { first = r }
	require.NoError(t, handler.Execute(ctx, msg))

	require.NotNil(t, first)
	assert.False(t, first.Replayed)

	// Redelivery of the same confirmation must not mint a second grant
	var second *access.GrantResult
	msg.OnResponse = func(r *access.GrantResult) { second = r }
	require.NoError(t, handler.Execute(ctx, msg))

	require.NotNil(t, second)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Grant.ID, second.Grant.ID)
}
