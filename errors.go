package accounts

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes surfaced to API clients alongside rich errors.
const (
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeAccountNotVerified = "ACCOUNT_NOT_VERIFIED"
	TextCodeInvalidToken       = "INVALID_TOKEN"
	TextCodeTokenAlreadyUsed   = "TOKEN_ALREADY_USED"
	TextCodePasswordPolicy     = "PASSWORD_POLICY"
	TextCodeEmptyPassword      = "EMPTY_PASSWORD"
	TextCodeEmailDelivery      = "EMAIL_DELIVERY_FAILED"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeAdminOnly          = "ADMIN_ONLY"
	TextCodeMissingBearerToken = "MISSING_BEARER_TOKEN"
	TextCodeUnknownBearerToken = "UNKNOWN_BEARER_TOKEN"
)

// ErrInvalidCredentials is returned for unknown identifiers and password
// mismatches alike; callers cannot tell which.
var ErrInvalidCredentials = goerrors.New("invalid username or password", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrAccountNotVerified blocks login for accounts that never consumed their
// verification token.
var ErrAccountNotVerified = goerrors.New("account not verified, check your email for the verification link", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountNotVerified).
	WithCode(goerrors.CodeForbidden)

// ErrInvalidToken is returned when a verification or reset token cannot be
// resolved to a profile.
var ErrInvalidToken = goerrors.New("invalid or expired token", goerrors.CategoryNotFound).
	WithTextCode(TextCodeInvalidToken).
	WithCode(goerrors.CodeNotFound)

// ErrTokenAlreadyUsed is returned when a reset token was already consumed.
var ErrTokenAlreadyUsed = goerrors.New("token has already been used", goerrors.CategoryConflict).
	WithTextCode(TextCodeTokenAlreadyUsed).
	WithCode(goerrors.CodeConflict)

// ErrPasswordPolicy covers the password rules for reset and registration:
// minimum eight characters and a matching confirmation.
var ErrPasswordPolicy = goerrors.New("passwords do not match or are too short (minimum 8 characters)", goerrors.CategoryValidation).
	WithTextCode(TextCodePasswordPolicy).
	WithCode(goerrors.CodeBadRequest)

// ErrNoEmptyString rejects empty passwords before hashing
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrEmailDelivery wraps synchronous mail dispatch failures. Propagated, not
// swallowed; the surrounding state change stays committed.
var ErrEmailDelivery = goerrors.New("could not deliver email", goerrors.CategoryOperation).
	WithTextCode(TextCodeEmailDelivery).
	WithCode(goerrors.CodeInternal)

// ErrAdminOnly is returned by the admin guard for non-admin sessions.
var ErrAdminOnly = goerrors.New("admin access required", goerrors.CategoryAuthz).
	WithTextCode(TextCodeAdminOnly).
	WithCode(goerrors.CodeForbidden)

// ErrTokenExpired is the session-layer error for expired JWT cookies.
var ErrTokenExpired = goerrors.New("authentication token expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is the session-layer error for undecodable JWT cookies.
var ErrTokenMalformed = goerrors.New("authentication token malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrMissingBearerToken is returned when the JSON surface gets no credential.
var ErrMissingBearerToken = goerrors.New("missing bearer token", goerrors.CategoryAuth).
	WithTextCode(TextCodeMissingBearerToken).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnknownBearerToken is returned when the presented API key resolves to
// no account.
var ErrUnknownBearerToken = goerrors.New("unknown bearer token", goerrors.CategoryAuth).
	WithTextCode(TextCodeUnknownBearerToken).
	WithCode(goerrors.CodeUnauthorized)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrUnableToFindSession is the error when our request has no cookie
var ErrUnableToFindSession = goerrors.New("unable to find session", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnableToDecodeSession unable to decode JWT from session cookie
var ErrUnableToDecodeSession = goerrors.New("unable to decode session", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnableToMapClaims unable to get claims from token
var ErrUnableToMapClaims = goerrors.New("unable to map claims", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnableToParseData parse error
var ErrUnableToParseData = goerrors.New("unable to parse data", goerrors.CategoryBadInput).
	WithCode(goerrors.CodeBadRequest)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
