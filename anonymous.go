package sasl

import (
	"strings"
	"unicode/utf8"
)

// RFC 4505 recommends trace strings of at most 255 octets. Inputs beyond
// this limit are junk and get rejected at construction.
const maxTraceLen = 1024

type anonymousClient struct {
	trace string
	done  bool
}

// NewAnonymousClient creates a client for the ANONYMOUS mechanism (RFC 4505).
// The optional trace string (an email address, an opaque token) is handed to
// the server verbatim; it may be empty.
func NewAnonymousClient(trace string) (Client, error) {
	if !utf8.ValidString(trace) {
		return nil, errMalformed(Anonymous, "trace is not valid UTF-8")
	}
	if strings.ContainsRune(trace, 0) {
		return nil, errMalformed(Anonymous, "trace contains a NUL byte")
	}
	if len(trace) > maxTraceLen {
		return nil, errMalformed(Anonymous, "trace exceeds %d bytes", maxTraceLen)
	}
	return &anonymousClient{trace: trace}, nil
}

func (c *anonymousClient) Name() string { return Anonymous }

func (c *anonymousClient) Start() ([]byte, error) {
	c.done = true
	// Non-nil even for an empty trace: the empty message must be sent.
	return append([]byte{}, c.trace...), nil
}

func (c *anonymousClient) Next(challenge []byte) ([]byte, error) {
	return nil, errProtocol(Anonymous, "unexpected server challenge")
}

func (c *anonymousClient) Done() bool { return c.done }

// AnonymousAuthenticator receives the trace string sent by an anonymous
// client. Returning an error rejects the exchange; the trace is informational
// and any authorization policy lives in the callback, not here.
type AnonymousAuthenticator func(trace string) error

type anonymousServer struct {
	done         bool
	authenticate AnonymousAuthenticator
}

// NewAnonymousServer creates a server for the ANONYMOUS mechanism (RFC 4505).
// The authenticator may be nil, in which case every client is accepted.
func NewAnonymousServer(authenticate AnonymousAuthenticator) Server {
	return &anonymousServer{authenticate: authenticate}
}

func (s *anonymousServer) Name() string { return Anonymous }

func (s *anonymousServer) Next(response []byte) ([]byte, bool, error) {
	if s.done {
		return nil, false, errProtocol(Anonymous, "unexpected client response")
	}
	// No initial response: issue the empty initial challenge.
	if response == nil {
		return []byte{}, false, nil
	}
	s.done = true

	if !utf8.Valid(response) {
		return nil, false, errDecode(Anonymous, "trace is not valid UTF-8")
	}
	if s.authenticate != nil {
		if err := s.authenticate(string(response)); err != nil {
			return nil, false, errAuth(Anonymous, err)
		}
	}
	return nil, true, nil
}
