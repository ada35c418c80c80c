package errors

import (
	"errors"
	"fmt"
)

// Kind is the stable, client-visible name of a failure.
type Kind string

const (
	KindUserExists       Kind = "USER_EXISTS"
	KindUserNotFound     Kind = "USER_NOT_FOUND"
	KindOTPExpired       Kind = "OTP_EXPIRED"
	KindInvalidOTP       Kind = "INVALID_OTP"
	KindBadCredentials   Kind = "BAD_CREDENTIALS"
	KindEmailNotVerified Kind = "EMAIL_NOT_VERIFIED"
	KindInvalidSession   Kind = "INVALID_SESSION"
	KindRefreshExpired   Kind = "REFRESH_EXPIRED"
	KindUnauthenticated  Kind = "UNAUTHENTICATED"
	KindForbidden        Kind = "FORBIDDEN"
	KindValidation       Kind = "VALIDATION_ERROR"
	KindNotFound         Kind = "NOT_FOUND"
	KindConflict         Kind = "CONFLICT"
	KindRateLimited      Kind = "RATE_LIMITED"
	KindInternal         Kind = "INTERNAL"
)

// Error is a sentinel tagged with a Kind. Compare with errors.Is against the
// package-level values; never construct one per call.
type Error struct {
	Kind Kind
	msg  string
}

func (e *Error) Error() string { return e.msg }

func newKind(k Kind, msg string) *Error { return &Error{Kind: k, msg: msg} }

var (
	ErrUserExists       = newKind(KindUserExists, "user already exists")
	ErrUserNotFound     = newKind(KindUserNotFound, "user not found")
	ErrOTPExpired       = newKind(KindOTPExpired, "otp expired")
	ErrInvalidOTP       = newKind(KindInvalidOTP, "invalid otp")
	ErrBadCredentials   = newKind(KindBadCredentials, "invalid credentials")
	ErrEmailNotVerified = newKind(KindEmailNotVerified, "email not verified")
	ErrInvalidSession   = newKind(KindInvalidSession, "invalid session")
	ErrRefreshExpired   = newKind(KindRefreshExpired, "refresh token expired")
	ErrForbidden        = newKind(KindForbidden, "Forbidden")
	ErrInvalidArgument  = newKind(KindValidation, "invalid argument")
	ErrNotFound         = newKind(KindNotFound, "not found")
	ErrConflict         = newKind(KindConflict, "conflict")
	ErrRateLimited      = newKind(KindRateLimited, "too many attempts")
	ErrInternal         = newKind(KindInternal, "internal error")

	// Bearer failures. All of them are UNAUTHENTICATED; the message is what
	// the client sees.
	ErrMissingToken    = newKind(KindUnauthenticated, "Missing token")
	ErrInvalidToken    = newKind(KindUnauthenticated, "Invalid token")
	ErrSessionNotFound = newKind(KindUnauthenticated, "Session not found")
	ErrSessionExpired  = newKind(KindUnauthenticated, "Session expired")
)

func NewInvalidArgument(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, msg)
}

func WrapInternal(err error, context string) error {
	return fmt.Errorf("%w: %s: %v", ErrInternal, context, err)
}

// KindOf reports the Kind of the first tagged error in err's chain.
// Untagged errors are INTERNAL.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message returns the client-safe text of err: the sentinel message for
// tagged errors (plus detail for validation failures) and a generic text
// for everything else.
func Message(err error) string {
	var e *Error
	if !errors.As(err, &e) || e.Kind == KindInternal {
		return ErrInternal.msg
	}
	if e.Kind == KindValidation {
		return err.Error()
	}
	return e.msg
}

func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

func IsInternal(err error) bool {
	return KindOf(err) == KindInternal
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

func IsBadCredentials(err error) bool {
	return errors.Is(err, ErrBadCredentials)
}

func IsUserExists(err error) bool {
	return errors.Is(err, ErrUserExists)
}

func IsUnauthenticated(err error) bool {
	return KindOf(err) == KindUnauthenticated
}
