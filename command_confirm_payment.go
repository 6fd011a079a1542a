package access

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// ConfirmPaymentMessage is emitted by the payment pipeline once a
// consultation fee settles. Deliveries can repeat; executing the same
// message twice must not mint a second grant.
type ConfirmPaymentMessage struct {
	ConsultationID uuid.UUID  `json:"consultation_id"`
	ClientID       uuid.UUID  `json:"client_id"`
	AdvocateID     uuid.UUID  `json:"advocate_id"`
	AccessType     AccessType `json:"access_type"`
	PaymentID      string     `json:"payment_id"`

	OnResponse func(*GrantResult)
}

func (e ConfirmPaymentMessage) Type() string { return "payment.confirmed" }

type ConfirmPaymentHandler struct {
	ledger *Ledger
}

func NewConfirmPaymentHandler(ledger *Ledger) *ConfirmPaymentHandler {
	return &ConfirmPaymentHandler{ledger: ledger}
}

func (h *ConfirmPaymentHandler) Execute(ctx context.Context, event ConfirmPaymentMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during payment confirmation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ConfirmPaymentHandler) execute(ctx context.Context, event ConfirmPaymentMessage) error {
	result, err := h.ledger.Grant(ctx, GrantRequest{
		ConsultationID: event.ConsultationID,
		ClientID:       event.ClientID,
		AdvocateID:     event.AdvocateID,
		AccessType:     event.AccessType,
		PaymentID:      event.PaymentID,
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "payment confirmation failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(result)
	}

	return nil
}
