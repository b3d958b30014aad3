// Package sasl implements the challenge/response exchanges of the Simple
// Authentication and Security Layer (RFC 4422) for the ANONYMOUS, EXTERNAL,
// LOGIN, PLAIN and OAUTHBEARER mechanisms, in both the client and the server
// role.
//
// The package never touches a transport. Callers hand in the raw challenge
// or response bytes received from the peer and relay the bytes produced here
// over their own protocol framing (base64 lines for SMTP, IMAP literals,
// AMQP secure/secure-ok frames, and so on). Credential verification on the
// server side is likewise external: server mechanisms parse the wire format
// and hand the extracted identities to an authenticator callback.
package sasl

// Mechanism names as registered with IANA. Comparison is exact-match and
// case-sensitive per RFC 4422.
const (
	Anonymous   = "ANONYMOUS"
	External    = "EXTERNAL"
	Login       = "LOGIN"
	Plain       = "PLAIN"
	OAuthBearer = "OAUTHBEARER"
)

// Priority orders the supported mechanisms most secure first. LOGIN ranks
// below PLAIN because it is obsolete, and ANONYMOUS ranks last because it
// asserts no identity at all.
var Priority = [...]string{External, OAuthBearer, Plain, Login, Anonymous}

// Mechanism is the capability shared by both roles of every supported
// mechanism.
type Mechanism interface {
	// Name returns the IANA-registered mechanism name, e.g. "PLAIN".
	Name() string
}

// Client is the client role of a mechanism. Implementations are stateful,
// single-exchange objects; construct a fresh one per authentication attempt.
type Client interface {
	Mechanism

	// Start begins the exchange and returns the initial response, if the
	// mechanism has one. A nil initial response means the mechanism is
	// server-first and the client waits for the first challenge; a non-nil,
	// possibly empty response must be sent to the server as-is (an empty
	// response is meaningful, e.g. an ANONYMOUS client with no trace).
	Start() (ir []byte, err error)

	// Next produces the response to a server challenge.
	Next(challenge []byte) (response []byte, err error)

	// Done reports whether the client has produced its final response and
	// expects no further challenge on the success path.
	Done() bool
}

// Server is the server role of a mechanism. A nil response passed to Next
// means the client has not sent anything yet and the server should produce
// its initial challenge; an empty non-nil response is a real, empty client
// message. Verification of the extracted credentials happens in the
// authenticator callback supplied at construction, never here.
type Server interface {
	Mechanism

	// Next consumes a client response and produces the next challenge.
	// done reports that the exchange finished successfully.
	Next(response []byte) (challenge []byte, done bool, err error)
}
