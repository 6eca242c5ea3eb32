// Package errs holds the error taxonomy surfaced to callers of the order
// client. Every failure leaves the client as exactly one *Error; the Kind
// decides how the caller should react to it.
package errs

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Kind identifies a member of the taxonomy.
type Kind int

const (
	KindIntegration Kind = iota
	KindBlankCredential
	KindBlankPassKey
	KindInvalidAccount
	KindMaxLoginAttempts
	KindUserDisabled
	KindPasswordExpired
	KindUserNotFound
	KindAccessSuspended
	KindAuthentication
	KindSessionExpired
	KindValidation
	KindTransport
	KindProtocol
	KindOrderRejected
)

var kindNames = map[Kind]string{
	KindIntegration:      "IntegrationError",
	KindBlankCredential:  "BlankCredentialError",
	KindBlankPassKey:     "BlankPassKeyError",
	KindInvalidAccount:   "InvalidAccountError",
	KindMaxLoginAttempts: "MaxLoginAttemptsError",
	KindUserDisabled:     "UserDisabledError",
	KindPasswordExpired:  "PasswordExpiredError",
	KindUserNotFound:     "UserNotFoundError",
	KindAccessSuspended:  "AccessSuspendedError",
	KindAuthentication:   "AuthenticationError",
	KindSessionExpired:   "SessionExpiredError",
	KindValidation:       "ValidationError",
	KindTransport:        "TransportError",
	KindProtocol:         "ProtocolFault",
	KindOrderRejected:    "OrderRejectedError",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Auth reports whether the kind is an authentication failure.
func (k Kind) Auth() bool {
	switch k {
	case KindBlankCredential, KindBlankPassKey, KindInvalidAccount, KindMaxLoginAttempts,
		KindUserDisabled, KindPasswordExpired, KindUserNotFound, KindAccessSuspended,
		KindAuthentication, KindSessionExpired:
		return true
	}
	return false
}

// Violation is a single failed field rule.
type Violation struct {
	Field   string
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("validation error [%s]: %s", v.Field, v.Message)
}

// Error is the only error type returned across package boundaries.
// Values are never mutated after construction.
type Error struct {
	Kind Kind
	// Code is the remote status code, when the remote side sent one.
	Code    string
	Message string
	// Violations is populated for KindValidation.
	Violations []Violation
	// Retryable is meaningful for KindTransport only.
	Retryable bool
	cause     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Code != "" {
		b.WriteString(" [")
		b.WriteString(e.Code)
		b.WriteString("]")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Violations) > 0 {
		parts := make([]string, len(e.Violations))
		for i, v := range e.Violations {
			parts[i] = v.String()
		}
		b.WriteString(": ")
		b.WriteString(strings.Join(parts, "; "))
	}
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches another *Error of the same kind, so sentinel comparisons such
// as errors.Is(err, errs.ErrValidation) work on constructed values.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Message == "" && t.Code == ""
}

// Sentinels usable with errors.Is.
var (
	ErrIntegration      = &Error{Kind: KindIntegration}
	ErrBlankCredential  = &Error{Kind: KindBlankCredential}
	ErrBlankPassKey     = &Error{Kind: KindBlankPassKey}
	ErrInvalidAccount   = &Error{Kind: KindInvalidAccount}
	ErrMaxLoginAttempts = &Error{Kind: KindMaxLoginAttempts}
	ErrUserDisabled     = &Error{Kind: KindUserDisabled}
	ErrPasswordExpired  = &Error{Kind: KindPasswordExpired}
	ErrUserNotFound     = &Error{Kind: KindUserNotFound}
	ErrAccessSuspended  = &Error{Kind: KindAccessSuspended}
	ErrAuthentication   = &Error{Kind: KindAuthentication}
	ErrSessionExpired   = &Error{Kind: KindSessionExpired}
	ErrValidation       = &Error{Kind: KindValidation}
	ErrTransport        = &Error{Kind: KindTransport}
	ErrProtocol         = &Error{Kind: KindProtocol}
	ErrOrderRejected    = &Error{Kind: KindOrderRejected}
)

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Auth creates an authentication error carrying the remote code and the
// remote message verbatim.
func Auth(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Validation creates a validation error from one or more violations.
func Validation(violations ...Violation) *Error {
	return &Error{Kind: KindValidation, Violations: violations}
}

// Field is shorthand for a validation error on a single field.
func Field(field, message string) *Error {
	return Validation(Violation{Field: field, Message: message})
}

// Transport wraps a network failure.
func Transport(cause error, retryable bool, message string) *Error {
	return &Error{Kind: KindTransport, Message: message, Retryable: retryable, cause: cause}
}

// Protocol reports a response that could not be decoded.
func Protocol(message string) *Error {
	return &Error{Kind: KindProtocol, Message: message}
}

// Rejected reports a remote business rejection of a well formed request.
func Rejected(code, message string) *Error {
	return &Error{Kind: KindOrderRejected, Code: code, Message: message}
}

// Integration wraps an unexpected condition.
func Integration(cause error, message string) *Error {
	return &Error{Kind: KindIntegration, Message: message, cause: cause}
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, KindIntegration for foreign errors.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindIntegration
}

// IsKind reports whether err carries an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

// IsRetryable reports whether err is a transport failure worth another attempt.
func IsRetryable(err error) bool {
	e, ok := As(err)
	return ok && e.Kind == KindTransport && e.Retryable
}

// Ensure converts any error into an *Error, wrapping foreign errors as
// IntegrationError.
func Ensure(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := As(err); ok {
		return e
	}
	return Integration(err, "[starmf] - unexpected failure")
}
