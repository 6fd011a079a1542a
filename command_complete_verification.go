package access

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CompleteVerificationMessage marks a principal as verified once the
// identity check clears. The flag is a one-way latch.
type CompleteVerificationMessage struct {
	UserID uuid.UUID `json:"user_id"`

	OnResponse func(*User)
}

func (e CompleteVerificationMessage) Type() string { return "verification.complete" }

type CompleteVerificationHandler struct {
	repo         RepositoryManager
	activitySink ActivitySink
}

func NewCompleteVerificationHandler(repo RepositoryManager) *CompleteVerificationHandler {
	return &CompleteVerificationHandler{
		repo:         repo,
		activitySink: noopActivitySink{},
	}
}

func (h *CompleteVerificationHandler) WithActivitySink(sink ActivitySink) *CompleteVerificationHandler {
	h.activitySink = normalizeActivitySink(sink)
	return h
}

func (h *CompleteVerificationHandler) Execute(ctx context.Context, event CompleteVerificationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during verification completion",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *CompleteVerificationHandler) execute(ctx context.Context, event CompleteVerificationMessage) error {
	var user *User
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := h.repo.Users().GetByIdentifierTx(ctx, tx, event.UserID.String())
		if err != nil {
			return err
		}

		state := VerificationState{User: record}
		if !state.RequiresVerification() {
			// Already verified, nothing to latch
			user = record
			return nil
		}

		if !state.CanComplete() {
			return goerrors.New("profile is incomplete", goerrors.CategoryValidation).
				WithMetadata(map[string]any{
					"user_id": event.UserID.String(),
					"missing": state.MissingFields(),
				})
		}

		if err := h.repo.Users().MarkVerifiedTx(ctx, tx, event.UserID); err != nil {
			return err
		}

		now := time.Now()
		record.IsVerified = true
		record.VerifiedAt = &now
		user = record

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "verification transaction failed")
	}

	h.emitEvent(ctx, event.UserID)

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}

func (h *CompleteVerificationHandler) emitEvent(ctx context.Context, userID uuid.UUID) {
	event := ActivityEvent{
		EventType:  ActivityEventVerificationDone,
		UserID:     userID.String(),
		Metadata:   map[string]any{},
		OccurredAt: time.Now(),
	}

	_ = normalizeActivitySink(h.activitySink).Record(ctx, event)
}
