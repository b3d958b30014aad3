package authfile

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sasl "github.com/maxpert/sasl-go"
)

func writeUsers(t *testing.T, entries ...Entry) string {
	t.Helper()
	doc := "users:\n"
	for _, e := range entries {
		doc += fmt.Sprintf("  - username: %s\n    password_hash: %q\n", e.Username, e.PasswordHash)
		if len(e.AuthzIDs) > 0 {
			doc += "    authz_ids:\n"
			for _, id := range e.AuthzIDs {
				doc += "      - " + id + "\n"
			}
		}
	}
	path := filepath.Join(t.TempDir(), "users.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	return path
}

func openTestFile(t *testing.T) *File {
	t.Helper()
	hash, err := HashPassword("secret")
	require.NoError(t, err)
	path := writeUsers(t,
		Entry{Username: "alice", PasswordHash: hash, AuthzIDs: []string{"billing"}},
		Entry{Username: "bob", PasswordHash: hash},
	)
	f, err := Open(path, nil)
	require.NoError(t, err)
	return f
}

func TestVerify(t *testing.T) {
	f := openTestFile(t)

	assert.NoError(t, f.Verify("alice", "secret"))
	assert.Error(t, f.Verify("alice", "wrong"))
	assert.Error(t, f.Verify("mallory", "secret"))
}

func TestAuthorize(t *testing.T) {
	f := openTestFile(t)

	assert.NoError(t, f.Authorize("", "alice"))
	assert.NoError(t, f.Authorize("alice", "alice"))
	assert.NoError(t, f.Authorize("billing", "alice"))
	assert.Error(t, f.Authorize("billing", "bob"))
	assert.Error(t, f.Authorize("root", "alice"))
}

func TestPlainAuthenticatorEndToEnd(t *testing.T) {
	f := openTestFile(t)
	server := sasl.NewPlainServer(f.PlainAuthenticator())

	_, done, err := server.Next([]byte("\x00alice\x00secret"))
	require.NoError(t, err)
	assert.True(t, done)

	server = sasl.NewPlainServer(f.PlainAuthenticator())
	_, _, err = server.Next([]byte("\x00alice\x00wrong"))
	assert.ErrorIs(t, err, sasl.ErrAuthenticationFailed)

	server = sasl.NewPlainServer(f.PlainAuthenticator())
	_, _, err = server.Next([]byte("root\x00alice\x00secret"))
	assert.ErrorIs(t, err, sasl.ErrAuthenticationFailed)
}

func TestLoginAuthenticator(t *testing.T) {
	f := openTestFile(t)
	auth := f.LoginAuthenticator()
	assert.NoError(t, auth("bob", "secret"))
	assert.Error(t, auth("bob", "nope"))
}

func TestReload(t *testing.T) {
	hash, err := HashPassword("secret")
	require.NoError(t, err)
	path := writeUsers(t, Entry{Username: "alice", PasswordHash: hash})
	f, err := Open(path, nil)
	require.NoError(t, err)
	require.Error(t, f.Verify("carol", "secret"))

	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(
		"users:\n  - username: carol\n    password_hash: %q\n", hash)), 0o600))
	require.NoError(t, f.Reload())
	assert.NoError(t, f.Verify("carol", "secret"))
	assert.Error(t, f.Verify("alice", "secret"))
}

func TestOpenErrors(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("users: {not: a list}"), 0o600))
	_, err = Open(path, nil)
	assert.Error(t, err)

	path = filepath.Join(t.TempDir(), "incomplete.yaml")
	require.NoError(t, os.WriteFile(path, []byte("users:\n  - username: x\n"), 0o600))
	_, err = Open(path, nil)
	assert.ErrorContains(t, err, "empty username or password_hash")
}

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("pw")
	require.NoError(t, err)
	assert.NotEqual(t, "pw", hash)

	path := writeUsers(t, Entry{Username: "u", PasswordHash: hash})
	f, err := Open(path, nil)
	require.NoError(t, err)
	assert.NoError(t, f.Verify("u", "pw"))
}
