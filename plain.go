package sasl

import (
	"bytes"
	"unicode/utf8"
)

type plainClient struct {
	cred *Credential
	done bool
}

// NewPlainClient creates a client for the PLAIN mechanism (RFC 4616). The
// credential's secret is the password. Every field must be valid UTF-8 and
// free of NUL bytes, NUL being the wire separator; violations are rejected
// here rather than silently corrupting the message.
func NewPlainClient(cred *Credential) (Client, error) {
	if cred == nil {
		return nil, errMalformed(Plain, "credential is nil")
	}
	if cred.AuthcID() == "" {
		return nil, errMalformed(Plain, "authcid is empty")
	}
	if err := checkSecret(Plain, cred.Secret()); err != nil {
		return nil, err
	}
	return &plainClient{cred: cred}, nil
}

func (c *plainClient) Name() string { return Plain }

func (c *plainClient) Start() ([]byte, error) {
	c.done = true
	var b bytes.Buffer
	b.WriteString(c.cred.AuthzID())
	b.WriteByte(0)
	b.WriteString(c.cred.AuthcID())
	b.WriteByte(0)
	b.Write(c.cred.Secret())
	return b.Bytes(), nil
}

func (c *plainClient) Next(challenge []byte) ([]byte, error) {
	return nil, errProtocol(Plain, "unexpected server challenge")
}

func (c *plainClient) Done() bool { return c.done }

// PlainAuthenticator verifies a username and password extracted from a PLAIN
// response. An empty authzid means the server derives the authorization
// identity from authcid.
type PlainAuthenticator func(authzid, authcid, password string) error

type plainServer struct {
	done         bool
	authenticate PlainAuthenticator
}

// NewPlainServer creates a server for the PLAIN mechanism (RFC 4616).
func NewPlainServer(authenticate PlainAuthenticator) Server {
	return &plainServer{authenticate: authenticate}
}

func (s *plainServer) Name() string { return Plain }

func (s *plainServer) Next(response []byte) ([]byte, bool, error) {
	if s.done {
		return nil, false, errProtocol(Plain, "unexpected client response")
	}
	if response == nil {
		return []byte{}, false, nil
	}
	s.done = true

	// Exactly two NUL separators, so exactly three fields.
	parts := bytes.Split(response, []byte{0})
	if len(parts) != 3 {
		return nil, false, errDecode(Plain, "expected 3 NUL-separated fields, got %d", len(parts))
	}
	for _, p := range parts {
		if !utf8.Valid(p) {
			return nil, false, errDecode(Plain, "field is not valid UTF-8")
		}
	}
	if len(parts[1]) == 0 {
		return nil, false, errDecode(Plain, "authcid is empty")
	}
	if s.authenticate != nil {
		if err := s.authenticate(string(parts[0]), string(parts[1]), string(parts[2])); err != nil {
			return nil, false, errAuth(Plain, err)
		}
	}
	return nil, true, nil
}

func checkSecret(mech string, secret []byte) error {
	if len(secret) == 0 {
		return errMalformed(mech, "secret is empty")
	}
	if bytes.ContainsRune(secret, 0) {
		return errMalformed(mech, "secret contains a NUL byte")
	}
	if !utf8.Valid(secret) {
		return errMalformed(mech, "secret is not valid UTF-8")
	}
	return nil
}
