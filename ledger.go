package access

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// GrantRequest carries everything needed to issue an access grant after a
// payment confirmation.
type GrantRequest struct {
	ConsultationID uuid.UUID  `json:"consultation_id"`
	ClientID       uuid.UUID  `json:"client_id"`
	AdvocateID     uuid.UUID  `json:"advocate_id"`
	AccessType     AccessType `json:"access_type"`
	PaymentID      string     `json:"payment_id"`
}

func (r GrantRequest) Validate() *goerrors.Error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.ConsultationID, validation.Required, validation.By(requireUUID)),
			validation.Field(&r.ClientID, validation.Required, validation.By(requireUUID)),
			validation.Field(&r.AdvocateID, validation.Required, validation.By(requireUUID)),
			validation.Field(&r.AccessType, validation.Required, validation.By(requireAccessType)),
			validation.Field(&r.PaymentID, validation.Required),
		)
	}, "invalid grant request")
}

func requireUUID(value any) error {
	id, ok := value.(uuid.UUID)
	if !ok || id == uuid.Nil {
		return goerrors.New("must be a non nil UUID", goerrors.CategoryValidation)
	}
	return nil
}

func requireAccessType(value any) error {
	t, _ := value.(AccessType)
	if !ValidAccessType(t) {
		return goerrors.New("must be video, chat, or both", goerrors.CategoryValidation)
	}
	return nil
}

// GrantResult is the outcome of a grant request. Replayed is true when an
// earlier confirmation already issued the grant and this call was a no-op.
type GrantResult struct {
	Grant    *AccessGrant `json:"grant"`
	Replayed bool         `json:"replayed"`
}

// AccessResult is a point-in-time answer to "may this client join". A lapsed
// grant answers exactly like a missing one.
type AccessResult struct {
	HasAccess     bool          `json:"has_access"`
	Grant         *AccessGrant  `json:"grant,omitempty"`
	TimeRemaining time.Duration `json:"time_remaining,omitempty"`
}

// Ledger issues and answers queries about time-boxed access grants.
type Ledger struct {
	repo         RepositoryManager
	logger       Logger
	activitySink ActivitySink
	now          func() time.Time
}

func NewLedger(repo RepositoryManager) *Ledger {
	return &Ledger{
		repo:         repo,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		now:          time.Now,
	}
}

func (l *Ledger) WithLogger(logger Logger) *Ledger {
	if logger != nil {
		l.logger = logger
	}
	return l
}

func (l *Ledger) WithActivitySink(sink ActivitySink) *Ledger {
	l.activitySink = normalizeActivitySink(sink)
	return l
}

// WithClock overrides the time source, used by tests to cross the grant window.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	if now != nil {
		l.now = now
	}
	return l
}

// Grant issues a 24 hour access grant for the consultation, or returns the
// existing one when a grant is already live. Safe to call once per payment
// confirmation delivery, duplicates included: the same consultation never
// ends up with two active unlapsed grants, and a replay returns the original
// grant unchanged even if the request payload differs.
func (l *Ledger) Grant(ctx context.Context, req GrantRequest) (*GrantResult, error) {
	if verr := req.Validate(); verr != nil {
		return nil, verr
	}

	result := &GrantResult{}

	err := l.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		now := l.now()

		existing, err := l.repo.Grants().ActiveForConsultationTx(ctx, tx, req.ConsultationID)
		if err != nil && !repository.IsRecordNotFound(err) {
			return err
		}

		if existing != nil {
			if !existing.Lapsed(now) {
				result.Grant = existing
				result.Replayed = true
				return nil
			}

			// Lapsed carcass still holds the uniqueness slot, release it
			if err := l.repo.Grants().DeactivateTx(ctx, tx, existing.ID); err != nil {
				return err
			}
		}

		grant := &AccessGrant{
			ConsultationID: req.ConsultationID,
			ClientID:       req.ClientID,
			AdvocateID:     req.AdvocateID,
			AccessType:     req.AccessType,
			PaymentID:      req.PaymentID,
			GrantedAt:      now,
			ExpiresAt:      now.Add(GrantWindow),
		}

		inserted, err := l.repo.Grants().CreateGrantTx(ctx, tx, grant)
		if err != nil {
			return err
		}

		if !inserted {
			// A concurrent confirmation won the race, surface its grant
			winner, err := l.repo.Grants().ActiveForConsultationTx(ctx, tx, req.ConsultationID)
			if err != nil {
				return err
			}
			result.Grant = winner
			result.Replayed = true
			return nil
		}

		result.Grant = grant
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "grant transaction failed")
	}

	l.emitGrantEvent(ctx, result, req)

	return result, nil
}

// CheckAccess answers whether the consultation currently has a usable grant.
// Lapsed grants answer false with no grant attached; the stored record is
// left untouched.
func (l *Ledger) CheckAccess(ctx context.Context, consultationID uuid.UUID) (*AccessResult, error) {
	grant, err := l.repo.Grants().ActiveForConsultation(ctx, consultationID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return &AccessResult{HasAccess: false}, nil
		}
		return nil, err
	}

	now := l.now()
	if grant.Lapsed(now) {
		return &AccessResult{HasAccess: false}, nil
	}

	return &AccessResult{
		HasAccess:     true,
		Grant:         grant,
		TimeRemaining: grant.Remaining(now),
	}, nil
}

// CheckClientAccess is CheckAccess with the extra requirement that the grant
// belongs to the given client.
func (l *Ledger) CheckClientAccess(ctx context.Context, consultationID, clientID uuid.UUID) (*AccessResult, error) {
	result, err := l.CheckAccess(ctx, consultationID)
	if err != nil {
		return nil, err
	}

	if result.HasAccess && result.Grant.ClientID != clientID {
		return &AccessResult{HasAccess: false}, nil
	}

	return result, nil
}

// ActiveGrants lists the client's live grants, soonest to expire first.
func (l *Ledger) ActiveGrants(ctx context.Context, clientID uuid.UUID) ([]*AccessGrant, error) {
	return l.repo.Grants().ActiveForClient(ctx, clientID)
}

func (l *Ledger) emitGrantEvent(ctx context.Context, result *GrantResult, req GrantRequest) {
	eventType := ActivityEventGrantIssued
	if result.Replayed {
		eventType = ActivityEventGrantReplayed
	}

	event := ActivityEvent{
		EventType: eventType,
		UserID:    req.ClientID.String(),
		Metadata: map[string]any{
			"consultation_id": req.ConsultationID.String(),
			"payment_id":      req.PaymentID,
			"access_type":     req.AccessType,
		},
		OccurredAt: l.now(),
	}

	if result.Grant != nil {
		event.Metadata["grant_id"] = result.Grant.ID.String()
		event.Metadata["expires_at"] = result.Grant.ExpiresAt
	}

	if err := normalizeActivitySink(l.activitySink).Record(ctx, event); err != nil {
		l.logger.Warn("activity sink record error: %v", err)
	}
}
