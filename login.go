package sasl

import (
	"unicode/utf8"
)

// LOGIN (draft-murchison-sasl-login) is obsolete; it sends the username and
// password unencoded in two separate round trips. Prefer PLAIN whenever the
// peer offers it. The client treats the prompt text in the server challenges
// as opaque: real servers disagree on "Username:", "User Name", trailing
// whitespace and localization, so matching it buys nothing.

const (
	loginStateUsername = iota
	loginStatePassword
	loginStateDone
)

type loginClient struct {
	cred  *Credential
	state int
}

// NewLoginClient creates a client for the obsolete LOGIN mechanism. The
// credential's authcid is the username and its secret the password.
func NewLoginClient(cred *Credential) (Client, error) {
	if cred == nil {
		return nil, errMalformed(Login, "credential is nil")
	}
	if cred.AuthcID() == "" {
		return nil, errMalformed(Login, "username is empty")
	}
	if len(cred.Secret()) == 0 {
		return nil, errMalformed(Login, "password is empty")
	}
	return &loginClient{cred: cred}, nil
}

func (c *loginClient) Name() string { return Login }

// Start returns nil: LOGIN is server-first, the server opens with the
// username prompt.
func (c *loginClient) Start() ([]byte, error) {
	return nil, nil
}

func (c *loginClient) Next(challenge []byte) ([]byte, error) {
	switch c.state {
	case loginStateUsername:
		c.state = loginStatePassword
		return []byte(c.cred.AuthcID()), nil
	case loginStatePassword:
		c.state = loginStateDone
		return append([]byte(nil), c.cred.Secret()...), nil
	default:
		return nil, errProtocol(Login, "unexpected server challenge after password")
	}
}

func (c *loginClient) Done() bool { return c.state == loginStateDone }

// LoginAuthenticator verifies a username and password received over LOGIN.
type LoginAuthenticator func(username, password string) error

const (
	loginSrvInitial = iota
	loginSrvAwaitingUsername
	loginSrvAwaitingPassword
	loginSrvDone
)

type loginServer struct {
	state        int
	username     string
	authenticate LoginAuthenticator
}

// NewLoginServer creates a server for the obsolete LOGIN mechanism. Enable
// it only for legacy clients that cannot speak PLAIN.
func NewLoginServer(authenticate LoginAuthenticator) Server {
	return &loginServer{authenticate: authenticate}
}

func (s *loginServer) Name() string { return Login }

func (s *loginServer) Next(response []byte) ([]byte, bool, error) {
	switch s.state {
	case loginSrvInitial:
		if response == nil {
			s.state = loginSrvAwaitingUsername
			return []byte("Username:"), false, nil
		}
		// Initial response per RFC 4422 section 3: the client already
		// supplied the username.
		return s.acceptUsername(response)
	case loginSrvAwaitingUsername:
		return s.acceptUsername(response)
	case loginSrvAwaitingPassword:
		s.state = loginSrvDone
		if !utf8.Valid(response) {
			return nil, false, errDecode(Login, "password is not valid UTF-8")
		}
		if s.authenticate != nil {
			if err := s.authenticate(s.username, string(response)); err != nil {
				return nil, false, errAuth(Login, err)
			}
		}
		return nil, true, nil
	default:
		return nil, false, errProtocol(Login, "unexpected client response")
	}
}

func (s *loginServer) acceptUsername(response []byte) ([]byte, bool, error) {
	if !utf8.Valid(response) {
		s.state = loginSrvDone
		return nil, false, errDecode(Login, "username is not valid UTF-8")
	}
	s.username = string(response)
	s.state = loginSrvAwaitingPassword
	return []byte("Password:"), false, nil
}
