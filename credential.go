package sasl

import (
	"strings"
	"unicode/utf8"
)

// Credential holds an authentication identity and its secret (a password or
// a bearer token). The secret buffer is owned by the Credential; call Zero
// when the session ends to wipe it. Credentials are deliberately not
// comparable and redact the secret when formatted, so one can never leak
// through == on a struct or a stray log line.
type Credential struct {
	_       [0]func() // not comparable
	authzid string
	authcid string
	secret  []byte
}

// NewCredential builds a credential for authcid with the given secret. The
// secret is copied. The authorization identity is left empty, which tells
// the server to derive it from authcid.
func NewCredential(authcid string, secret []byte) (*Credential, error) {
	return NewCredentialWithAuthzID("", authcid, secret)
}

// NewCredentialWithAuthzID builds a credential that additionally asserts an
// explicit authorization identity.
func NewCredentialWithAuthzID(authzid, authcid string, secret []byte) (*Credential, error) {
	if err := checkIdentity("authzid", authzid); err != nil {
		return nil, err
	}
	if err := checkIdentity("authcid", authcid); err != nil {
		return nil, err
	}
	c := &Credential{
		authzid: authzid,
		authcid: authcid,
		secret:  append([]byte(nil), secret...),
	}
	return c, nil
}

// AuthcID returns the authentication identity.
func (c *Credential) AuthcID() string { return c.authcid }

// AuthzID returns the explicitly asserted authorization identity, or "" when
// the server should derive it from the authentication identity.
func (c *Credential) AuthzID() string { return c.authzid }

// Secret returns the secret buffer. The slice aliases the credential's own
// storage and becomes invalid after Zero.
func (c *Credential) Secret() []byte { return c.secret }

// Zero wipes the secret buffer. Best effort: copies the runtime may have
// made elsewhere are out of reach.
func (c *Credential) Zero() {
	for i := range c.secret {
		c.secret[i] = 0
	}
	c.secret = nil
}

func (c *Credential) String() string {
	return "sasl.Credential{authcid: " + c.authcid + ", secret: [REDACTED]}"
}

// GoString keeps %#v from dumping the secret.
func (c *Credential) GoString() string { return c.String() }

func checkIdentity(field, s string) error {
	if !utf8.ValidString(s) {
		return errMalformed("", "%s is not valid UTF-8", field)
	}
	if strings.ContainsRune(s, 0) {
		return errMalformed("", "%s contains a NUL byte", field)
	}
	return nil
}
