package sasl

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"unicode/utf8"
)

// OAuthBearerError is the JSON object an OAUTHBEARER server sends as its
// failure challenge (RFC 7628 section 3.2.2).
type OAuthBearerError struct {
	Status  string `json:"status"`
	Schemes string `json:"schemes,omitempty"`
	Scope   string `json:"scope,omitempty"`
}

func (e *OAuthBearerError) Error() string {
	return "oauthbearer authentication error: " + e.Status
}

// OAuthBearerOptions carries the fields of an OAUTHBEARER client message.
// Host and Port are optional hints about the service the client believes it
// is talking to; they are omitted from the wire when unset.
type OAuthBearerOptions struct {
	AuthzID string
	Token   string
	Host    string
	Port    int
}

const (
	oauthStateStart           = iota
	oauthStateAwaitingOutcome // initial message sent, server may still fail
	oauthStateDone
)

type oauthBearerClient struct {
	opts    OAuthBearerOptions
	state   int
	authErr error // terminal failure, surfaced with the \x01 ack
}

// NewOAuthBearerClient creates a client for the OAUTHBEARER mechanism
// (RFC 7628). The credential's secret is the bearer token, treated as opaque
// apart from non-emptiness; its authzid, when set, is asserted in the GS2
// header. Host and port hints are optional.
func NewOAuthBearerClient(cred *Credential, host string, port int) (Client, error) {
	if cred == nil {
		return nil, errMalformed(OAuthBearer, "credential is nil")
	}
	token := cred.Secret()
	if len(token) == 0 {
		return nil, errMalformed(OAuthBearer, "bearer token is empty")
	}
	if !utf8.Valid(token) {
		return nil, errMalformed(OAuthBearer, "bearer token is not valid UTF-8")
	}
	if bytes.ContainsRune(token, 1) {
		return nil, errMalformed(OAuthBearer, "bearer token contains a control-A byte")
	}
	if !utf8.ValidString(host) {
		return nil, errMalformed(OAuthBearer, "host is not valid UTF-8")
	}
	return &oauthBearerClient{opts: OAuthBearerOptions{
		AuthzID: cred.AuthzID(),
		Token:   string(token),
		Host:    host,
		Port:    port,
	}}, nil
}

func (c *oauthBearerClient) Name() string { return OAuthBearer }

func (c *oauthBearerClient) Start() ([]byte, error) {
	c.state = oauthStateAwaitingOutcome

	var b strings.Builder
	b.WriteString("n,")
	if c.opts.AuthzID != "" {
		b.WriteString("a=")
		b.WriteString(c.opts.AuthzID)
	}
	b.WriteString(",")
	if c.opts.Host != "" {
		b.WriteString("\x01host=")
		b.WriteString(c.opts.Host)
	}
	if c.opts.Port != 0 {
		b.WriteString("\x01port=")
		b.WriteString(strconv.Itoa(c.opts.Port))
	}
	b.WriteString("\x01auth=Bearer ")
	b.WriteString(c.opts.Token)
	b.WriteString("\x01\x01")
	return []byte(b.String()), nil
}

// Next handles the one challenge an OAUTHBEARER client can legitimately
// receive: the server's JSON failure object. Per RFC 7628 section 3.1 the
// client must acknowledge it with a lone control-A byte before the exchange
// terminates; the terminal AuthenticationFailed error is delivered through
// failure() alongside that ack.
func (c *oauthBearerClient) Next(challenge []byte) ([]byte, error) {
	if c.state != oauthStateAwaitingOutcome {
		return nil, errProtocol(OAuthBearer, "unexpected server challenge")
	}
	c.state = oauthStateDone

	var oerr OAuthBearerError
	if err := json.Unmarshal(challenge, &oerr); err != nil {
		return nil, errDecode(OAuthBearer, "failure challenge is not a JSON object: %v", err)
	}
	c.authErr = errAuth(OAuthBearer, &oerr)
	return []byte{0x01}, nil
}

func (c *oauthBearerClient) Done() bool { return c.state != oauthStateStart }

func (c *oauthBearerClient) acceptsLateChallenge() bool {
	return c.state == oauthStateAwaitingOutcome
}

func (c *oauthBearerClient) failure() error { return c.authErr }

// OAuthBearerAuthenticator validates a bearer token presented by a client.
// Returning a non-nil *OAuthBearerError starts the two-phase failure
// handshake: the error is serialized as the failure challenge and the
// exchange fails once the client acknowledges it.
type OAuthBearerAuthenticator func(opts OAuthBearerOptions) *OAuthBearerError

type oauthBearerServer struct {
	done         bool
	failErr      error
	authenticate OAuthBearerAuthenticator
}

// NewOAuthBearerServer creates a server for the OAUTHBEARER mechanism
// (RFC 7628).
func NewOAuthBearerServer(authenticate OAuthBearerAuthenticator) Server {
	return &oauthBearerServer{authenticate: authenticate}
}

func (s *oauthBearerServer) Name() string { return OAuthBearer }

// fail emits a failure challenge and records the error to surface once the
// client has acknowledged with the control-A byte.
func (s *oauthBearerServer) fail(oerr *OAuthBearerError, terminal error) ([]byte, bool, error) {
	challenge, err := json.Marshal(oerr)
	if err != nil {
		return nil, false, errDecode(OAuthBearer, "encoding failure challenge: %v", err)
	}
	s.failErr = terminal
	return challenge, false, nil
}

func (s *oauthBearerServer) failRequest(format string, args ...interface{}) ([]byte, bool, error) {
	return s.fail(
		&OAuthBearerError{Status: "invalid_request", Schemes: "bearer"},
		errDecode(OAuthBearer, format, args...),
	)
}

func (s *oauthBearerServer) Next(response []byte) ([]byte, bool, error) {
	if s.failErr != nil {
		// Awaiting the client's acknowledgment of the failure challenge.
		if len(response) != 1 || response[0] != 0x01 {
			return nil, false, errDecode(OAuthBearer, "expected a lone control-A acknowledgment")
		}
		err := s.failErr
		s.failErr = nil
		s.done = true
		return nil, false, err
	}
	if s.done {
		return nil, false, errProtocol(OAuthBearer, "unexpected client response")
	}
	if response == nil {
		return []byte{}, false, nil
	}

	opts, perr := parseOAuthBearerMessage(response)
	if perr != "" {
		return s.failRequest("%s", perr)
	}
	if s.authenticate != nil {
		if oerr := s.authenticate(*opts); oerr != nil {
			return s.fail(oerr, errAuth(OAuthBearer, oerr))
		}
	}
	s.done = true
	return nil, true, nil
}

// parseOAuthBearerMessage splits "n,a=user,\x01host=h\x01auth=Bearer t\x01\x01"
// into its fields. Unrecognized keys are skipped: RFC 7628 allows extension
// key/value pairs and rejecting them would break interop.
func parseOAuthBearerMessage(response []byte) (*OAuthBearerOptions, string) {
	if !utf8.Valid(response) {
		return nil, "message is not valid UTF-8"
	}
	parts := bytes.SplitN(response, []byte{','}, 3)
	if len(parts) != 3 {
		return nil, "malformed GS2 header"
	}
	if !bytes.HasPrefix(parts[0], []byte("n")) {
		return nil, "missing 'n' in gs2-cb-flag"
	}

	var opts OAuthBearerOptions
	if len(parts[1]) > 0 {
		if !bytes.HasPrefix(parts[1], []byte("a=")) {
			return nil, "missing 'a=' in gs2-authzid"
		}
		opts.AuthzID = string(parts[1][2:])
	}

	for _, kv := range bytes.Split(parts[2], []byte{1}) {
		if len(kv) == 0 {
			// Leading and trailing separators produce empty segments.
			continue
		}
		pair := bytes.SplitN(kv, []byte{'='}, 2)
		if len(pair) != 2 {
			return nil, "key-value pair missing '='"
		}
		key, value := string(pair[0]), string(pair[1])
		switch key {
		case "host":
			opts.Host = value
		case "port":
			port, err := strconv.Atoi(value)
			if err != nil || port <= 0 || port > 65535 {
				return nil, "malformed 'port' value"
			}
			opts.Port = port
		case "auth":
			const prefix = "bearer "
			if len(value) < len(prefix) || !strings.EqualFold(value[:len(prefix)], prefix) {
				return nil, "unsupported token type"
			}
			opts.Token = value[len(prefix):]
		}
	}
	if opts.Token == "" {
		return nil, "missing 'auth' value"
	}
	return &opts, ""
}
