// Package authfile verifies passwords against a YAML user database with
// bcrypt hashes. It supplies the authenticator callbacks consumed by the
// PLAIN and LOGIN server mechanisms; the mechanisms themselves never see
// the file.
//
// File format:
//
//	users:
//	  - username: alice
//	    password_hash: $2a$10$...
//	    authz_ids: [newsletter, billing]
package authfile

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	sasl "github.com/maxpert/sasl-go"
)

// Entry is one user record.
type Entry struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
	// AuthzIDs lists the additional authorization identities this user may
	// assume. The user's own name is always permitted.
	AuthzIDs []string `yaml:"authz_ids,omitempty"`
}

type userFile struct {
	Users []Entry `yaml:"users"`
}

// File is a loaded user database. Safe for concurrent use; Reload swaps the
// user set atomically under the lock.
type File struct {
	path string
	log  *zap.Logger

	mu    sync.RWMutex
	users map[string]Entry
}

// Open loads the user database at path. A nil logger disables logging.
func Open(path string, log *zap.Logger) (*File, error) {
	if log == nil {
		log = zap.NewNop()
	}
	f := &File{path: path, log: log}
	if err := f.Reload(); err != nil {
		return nil, err
	}
	return f, nil
}

// Reload re-reads the file from disk.
func (f *File) Reload() error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("reading user database: %w", err)
	}
	var parsed userFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parsing user database %s: %w", f.path, err)
	}
	users := make(map[string]Entry, len(parsed.Users))
	for _, entry := range parsed.Users {
		if entry.Username == "" || entry.PasswordHash == "" {
			return fmt.Errorf("user database %s: entry with empty username or password_hash", f.path)
		}
		users[entry.Username] = entry
	}

	f.mu.Lock()
	f.users = users
	f.mu.Unlock()
	f.log.Info("user database loaded",
		zap.String("path", f.path),
		zap.Int("users", len(users)))
	return nil
}

// Verify checks username's password against its bcrypt hash. Unknown users
// burn a bcrypt comparison anyway so a missing user costs the same as a
// wrong password.
func (f *File) Verify(username, password string) error {
	f.mu.RLock()
	entry, ok := f.users[username]
	f.mu.RUnlock()
	if !ok {
		bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return fmt.Errorf("unknown user %q", username)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(entry.PasswordHash), []byte(password)); err != nil {
		f.log.Debug("password verification failed", zap.String("username", username))
		return fmt.Errorf("invalid password for %q", username)
	}
	return nil
}

// Authorize checks that username may act as authzid. An empty authzid and
// the user's own name are always allowed.
func (f *File) Authorize(authzid, username string) error {
	if authzid == "" || authzid == username {
		return nil
	}
	f.mu.RLock()
	entry, ok := f.users[username]
	f.mu.RUnlock()
	if ok {
		for _, id := range entry.AuthzIDs {
			if id == authzid {
				return nil
			}
		}
	}
	return fmt.Errorf("user %q may not act as %q", username, authzid)
}

// PlainAuthenticator adapts the database to the PLAIN server mechanism.
func (f *File) PlainAuthenticator() sasl.PlainAuthenticator {
	return func(authzid, authcid, password string) error {
		if err := f.Verify(authcid, password); err != nil {
			return err
		}
		return f.Authorize(authzid, authcid)
	}
}

// LoginAuthenticator adapts the database to the LOGIN server mechanism.
func (f *File) LoginAuthenticator() sasl.LoginAuthenticator {
	return func(username, password string) error {
		return f.Verify(username, password)
	}
}

// HashPassword produces a bcrypt hash suitable for a password_hash field.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Keeps Verify constant-time-ish for unknown users.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("sasl-go-dummy"), bcrypt.MinCost)
