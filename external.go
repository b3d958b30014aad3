package sasl

import (
	"bytes"
	"unicode/utf8"
)

type externalClient struct {
	authzid string
	done    bool
}

// NewExternalClient creates a client for the EXTERNAL mechanism (RFC 4422
// appendix A). An empty authzid asks the server to use the identity already
// established by the external channel, e.g. a TLS client certificate.
func NewExternalClient(authzid string) (Client, error) {
	if err := checkIdentity("authzid", authzid); err != nil {
		return nil, err
	}
	return &externalClient{authzid: authzid}, nil
}

func (c *externalClient) Name() string { return External }

func (c *externalClient) Start() ([]byte, error) {
	c.done = true
	return append([]byte{}, c.authzid...), nil
}

func (c *externalClient) Next(challenge []byte) ([]byte, error) {
	return nil, errProtocol(External, "unexpected server challenge")
}

func (c *externalClient) Done() bool { return c.done }

// ExternalAuthenticator checks that the externally established identity may
// act as authzid. An empty authzid means "the external identity itself". The
// external check (certificate inspection and the like) happens entirely in
// the callback.
type ExternalAuthenticator func(authzid string) error

type externalServer struct {
	done         bool
	authenticate ExternalAuthenticator
}

// NewExternalServer creates a server for the EXTERNAL mechanism (RFC 4422
// appendix A).
func NewExternalServer(authenticate ExternalAuthenticator) Server {
	return &externalServer{authenticate: authenticate}
}

func (s *externalServer) Name() string { return External }

func (s *externalServer) Next(response []byte) ([]byte, bool, error) {
	if s.done {
		return nil, false, errProtocol(External, "unexpected client response")
	}
	if response == nil {
		return []byte{}, false, nil
	}
	s.done = true

	if bytes.ContainsRune(response, 0) {
		return nil, false, errDecode(External, "authzid contains a NUL byte")
	}
	if !utf8.Valid(response) {
		return nil, false, errDecode(External, "authzid is not valid UTF-8")
	}
	if s.authenticate != nil {
		if err := s.authenticate(string(response)); err != nil {
			return nil, false, errAuth(External, err)
		}
	}
	return nil, true, nil
}
