package access

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Messages shown on the verification page. Fixed strings so the frontend
// can match on them.
const (
	MsgMissingName  = "Please provide your first and last name"
	MsgMissingPhone = "Please provide a valid phone number"
	MsgPendingCheck = "Your identity check is being processed"
	MsgVerified     = "Your account is verified"
)

// DefaultPhoneRegion is the region used to parse national phone numbers.
var DefaultPhoneRegion = "IN"

// VerificationState answers whether a principal may use feature pages. It is
// a pure function of the stored principal fields, evaluated fresh on every
// read.
type VerificationState struct {
	User *User
}

// RequiresVerification reports whether the principal still has to complete
// the verification flow before feature pages open up. The stored flag alone
// is not enough: a profile that later loses a required field sends the
// principal back through the flow.
func (v VerificationState) RequiresVerification() bool {
	if v.User == nil {
		return true
	}
	return !v.User.IsVerified || len(v.MissingFields()) > 0
}

// CanComplete reports whether the profile holds everything the verification
// flow needs.
func (v VerificationState) CanComplete() bool {
	return len(v.MissingFields()) == 0
}

// Guidance picks the message the verification page leads with: what is still
// missing, that the profile is ready for the identity check, or that the
// account is already verified.
func (v VerificationState) Guidance() string {
	if missing := v.MissingFields(); len(missing) > 0 {
		return strings.Join(missing, ". ")
	}

	if v.User != nil && v.User.IsVerified {
		return MsgVerified
	}

	return MsgPendingCheck
}

// MissingFields lists the user facing messages for whatever blocks
// completion, in a stable order.
func (v VerificationState) MissingFields() []string {
	if v.User == nil {
		return []string{MsgMissingName, MsgMissingPhone}
	}

	var missing []string

	if strings.TrimSpace(v.User.FirstName) == "" || strings.TrimSpace(v.User.LastName) == "" {
		missing = append(missing, MsgMissingName)
	}

	if !validPhone(v.User.Phone) {
		missing = append(missing, MsgMissingPhone)
	}

	return missing
}

func validPhone(phone string) bool {
	trimmed := strings.TrimSpace(phone)
	if trimmed == "" {
		return false
	}

	parsed, err := phonenumbers.Parse(trimmed, DefaultPhoneRegion)
	if err != nil {
		return false
	}

	return phonenumbers.IsValidNumber(parsed)
}
