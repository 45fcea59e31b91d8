package cancel

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidToken       = "CANCEL_TOKEN_INVALID"
	TextCodeExpiredToken       = "CANCEL_TOKEN_EXPIRED"
	TextCodeUnauthorized       = "CANCEL_UNAUTHORIZED"
	TextCodeProtectedAccount   = "CANCEL_PROTECTED_ACCOUNT"
	TextCodeUnknownPolicy      = "CANCEL_UNKNOWN_POLICY"
	TextCodeAccountNotFound    = "ACCOUNT_NOT_FOUND"
	TextCodeContentNotFound    = "CONTENT_NOT_FOUND"
	TextCodeCancelDisabled     = "CANCEL_DISABLED"
	textCodeInvalidTransition  = "INVALID_ACCOUNT_STATE_TRANSITION"
	textCodeTerminalState      = "TERMINAL_ACCOUNT_STATE"
	textCodeInvalidBulkRequest = "INVALID_BULK_CANCEL_REQUEST"
	textCodeWeakSigningKey     = "WEAK_SIGNING_KEY"
)

// ErrInvalidToken is returned for tampered, foreign or stale confirmation links.
var ErrInvalidToken = goerrors.New("you have tried to use an account cancellation link that is invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidToken).
	WithCode(goerrors.CodeForbidden)

// ErrExpiredToken is returned when a correctly signed link is outside its window.
var ErrExpiredToken = goerrors.New("you have tried to use an account cancellation link that has expired, please request a new one", goerrors.CategoryValidation).
	WithTextCode(TextCodeExpiredToken).
	WithCode(goerrors.CodeForbidden)

// ErrUnauthorized is returned when the invoker may not cancel the account.
var ErrUnauthorized = goerrors.New("not allowed to cancel this account", goerrors.CategoryAuthz).
	WithTextCode(TextCodeUnauthorized).
	WithCode(goerrors.CodeForbidden)

// ErrProtectedAccount is returned by the lifecycle machine for the protected
// account. The scheduler absorbs it into a no-op outcome.
var ErrProtectedAccount = goerrors.New("account is protected and can not be canceled", goerrors.CategoryConflict).
	WithTextCode(TextCodeProtectedAccount).
	WithCode(goerrors.CodeConflict)

// ErrUnknownPolicy is returned for unrecognized cancellation method identifiers.
var ErrUnknownPolicy = goerrors.New("unknown cancellation policy", goerrors.CategoryValidation).
	WithTextCode(TextCodeUnknownPolicy).
	WithCode(goerrors.CodeBadRequest)

// ErrAccountNotFound is returned when an account no longer exists.
var ErrAccountNotFound = goerrors.New("account not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeAccountNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrContentNotFound is returned when a content batch no longer exists.
var ErrContentNotFound = goerrors.New("content not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeContentNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrCancellationDisabled is returned when the feature gate denies cancellation.
var ErrCancellationDisabled = goerrors.New("account cancellation is disabled", goerrors.CategoryOperation).
	WithTextCode(TextCodeCancelDisabled).
	WithCode(goerrors.CodeForbidden)

// ErrInvalidTransition is returned when a requested status change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid account state transition", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// ErrTerminalState is returned when attempting to move away from a canceled account.
var ErrTerminalState = goerrors.New("account state is terminal", goerrors.CategoryConflict).
	WithTextCode(textCodeTerminalState).
	WithCode(goerrors.CodeConflict)

// ErrInvalidBulkRequest is returned for malformed bulk cancellation payloads.
var ErrInvalidBulkRequest = goerrors.New("invalid bulk cancellation request", goerrors.CategoryBadInput).
	WithTextCode(textCodeInvalidBulkRequest).
	WithCode(goerrors.CodeBadRequest)

// ErrWeakSigningKey is returned when the signing key is missing or too short
// to key confirmation links and invoker tokens.
var ErrWeakSigningKey = goerrors.New("signing key must be at least 16 bytes", goerrors.CategoryBadInput).
	WithTextCode(textCodeWeakSigningKey).
	WithCode(goerrors.CodeInternal)

// IsNotFound reports whether err means the account or content is already gone.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrContentNotFound) ||
		goerrors.IsNotFound(err)
}

// IsTokenError reports whether err is an expected, user facing token failure.
func IsTokenError(err error) bool {
	code := textCode(err)
	return code == TextCodeInvalidToken || code == TextCodeExpiredToken
}

func textCode(err error) string {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode
	}
	return ""
}
