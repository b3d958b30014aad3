package sasl

import (
	"fmt"
)

// Kind classifies mechanism and session errors.
type Kind int

const (
	// KindMalformedCredential rejects a credential at construction time,
	// e.g. a NUL byte inside a PLAIN field or an empty bearer token.
	KindMalformedCredential Kind = iota + 1

	// KindProtocolViolation means a step was taken in a state the mechanism
	// does not expect, e.g. stepping a finished session.
	KindProtocolViolation

	// KindDecodeError means received bytes do not parse per the mechanism's
	// wire grammar.
	KindDecodeError

	// KindAuthenticationFailed means the exchange completed per protocol but
	// the peer (or the authenticator) rejected the credentials.
	KindAuthenticationFailed

	// KindUnsupportedMechanism means no mutually supported mechanism exists.
	KindUnsupportedMechanism
)

func (k Kind) String() string {
	switch k {
	case KindMalformedCredential:
		return "malformed credential"
	case KindProtocolViolation:
		return "protocol violation"
	case KindDecodeError:
		return "decode error"
	case KindAuthenticationFailed:
		return "authentication failed"
	case KindUnsupportedMechanism:
		return "unsupported mechanism"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is the error type returned by mechanisms, sessions and the selector.
type Error struct {
	Kind      Kind
	Mechanism string // empty for errors not tied to one mechanism
	Message   string
	Cause     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Mechanism != "" {
		return fmt.Sprintf("sasl: %s: %s", e.Mechanism, msg)
	}
	return "sasl: " + msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same Kind, so callers can test against the
// exported Err* values with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinel values for errors.Is. The errors actually returned carry the
// mechanism name and a message; these match on Kind alone.
var (
	ErrMalformedCredential  = &Error{Kind: KindMalformedCredential}
	ErrProtocolViolation    = &Error{Kind: KindProtocolViolation}
	ErrDecodeError          = &Error{Kind: KindDecodeError}
	ErrAuthenticationFailed = &Error{Kind: KindAuthenticationFailed}
	ErrUnsupportedMechanism = &Error{Kind: KindUnsupportedMechanism}
)

func errMalformed(mech, format string, args ...interface{}) *Error {
	return &Error{Kind: KindMalformedCredential, Mechanism: mech, Message: fmt.Sprintf(format, args...)}
}

func errProtocol(mech, format string, args ...interface{}) *Error {
	return &Error{Kind: KindProtocolViolation, Mechanism: mech, Message: fmt.Sprintf(format, args...)}
}

func errDecode(mech, format string, args ...interface{}) *Error {
	return &Error{Kind: KindDecodeError, Mechanism: mech, Message: fmt.Sprintf(format, args...)}
}

func errAuth(mech string, cause error) *Error {
	return &Error{Kind: KindAuthenticationFailed, Mechanism: mech, Message: "authentication failed", Cause: cause}
}
