package access

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes surfaced alongside structured errors so clients and log
// pipelines can branch without string matching messages.
const (
	TextCodeInvalidCreds       = "INVALID_CREDENTIALS"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeMissingSigningKey  = "MISSING_SIGNING_KEY"
	TextCodeEmailTaken         = "EMAIL_TAKEN"
	TextCodeSessionNotFound    = "SESSION_NOT_FOUND"
	TextCodeSessionDecodeError = "SESSION_DECODE_ERROR"
	TextCodeClaimsMappingError = "CLAIMS_MAPPING_ERROR"
	TextCodeDataParseError     = "DATA_PARSE_ERROR"
	TextCodeEmptyPassword      = "EMPTY_PASSWORD"
	TextCodeTooManyAttempts    = "TOO_MANY_LOGIN_ATTEMPTS"
	TextCodeAccountSuspended   = "ACCOUNT_SUSPENDED"
	TextCodeGrantInvalid       = "GRANT_INVALID"
	TextCodeNeedsVerification  = "VERIFICATION_REQUIRED"
)

// ErrMissingSigningKey is a fatal configuration error: no component that
// signs or verifies tokens may start without a key.
var ErrMissingSigningKey = goerrors.New("token signing key is not configured", goerrors.CategoryInternal).
	WithTextCode(TextCodeMissingSigningKey)

// ErrInvalidCredentials is returned uniformly for an unknown email, an
// account with no password hash, or a failed password comparison. Callers
// must not refine it per cause; the uniformity is an anti-enumeration
// property.
var ErrInvalidCredentials = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound)

// ErrTokenExpired marks a structurally valid token past its expiry. Denied
// like ErrTokenMalformed but logged distinctly for diagnostics.
var ErrTokenExpired = goerrors.New("authentication token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired)

// ErrTokenMalformed marks a token with a bad signature or unparseable payload.
var ErrTokenMalformed = goerrors.New("authentication token is invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed)

// ErrEmailTaken is the duplicate-registration conflict.
var ErrEmailTaken = goerrors.New("an account with this email already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken)

// ErrUnableToFindSession is the error when our request has no cookie
var ErrUnableToFindSession = goerrors.New("unable to find session", goerrors.CategoryAuth).
	WithTextCode(TextCodeSessionNotFound)

// ErrUnableToDecodeSession unable to decode JWT from session cookie
var ErrUnableToDecodeSession = goerrors.New("unable to decode session", goerrors.CategoryAuth).
	WithTextCode(TextCodeSessionDecodeError)

// ErrUnableToMapClaims unable to get claims from token
var ErrUnableToMapClaims = goerrors.New("unable to map claims", goerrors.CategoryAuth).
	WithTextCode(TextCodeClaimsMappingError)

// ErrUnableToParseData parse error
var ErrUnableToParseData = goerrors.New("unable to parse data", goerrors.CategoryBadInput).
	WithTextCode(TextCodeDataParseError)

// ErrNoEmptyString rejects empty passwords before they reach bcrypt.
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword)

// ErrTooManyLoginAttempts enforces the login attempt cool down window.
var ErrTooManyLoginAttempts = goerrors.New("too many login attempts", goerrors.CategoryRateLimit).
	WithTextCode(TextCodeTooManyAttempts)

// ErrAccountSuspended blocks suspended principals from authenticating.
var ErrAccountSuspended = goerrors.New("account is suspended", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountSuspended)

// ErrVerificationRequired marks a valid session whose principal has not
// completed verification. The gate sends these to the verification flow,
// not to sign in.
var ErrVerificationRequired = goerrors.New("account verification required", goerrors.CategoryAuthz).
	WithTextCode(TextCodeNeedsVerification)

// IsTokenExpiredError will check for expired tokens, including errors that
// crossed a middleware boundary and lost their structured type.
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for malformed token errors.
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
