package sasl

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExternalClient(t *testing.T) {
	t.Run("explicit authzid", func(t *testing.T) {
		client, err := NewExternalClient("admin")
		require.NoError(t, err)
		ir, err := client.Start()
		require.NoError(t, err)
		assert.Equal(t, []byte("admin"), ir)
		assert.True(t, client.Done())
	})

	t.Run("empty authzid defers to the external channel", func(t *testing.T) {
		client, err := NewExternalClient("")
		require.NoError(t, err)
		ir, err := client.Start()
		require.NoError(t, err)
		assert.NotNil(t, ir)
		assert.Empty(t, ir)
	})

	t.Run("invalid authzid", func(t *testing.T) {
		_, err := NewExternalClient("a\x00b")
		assert.ErrorIs(t, err, ErrMalformedCredential)
	})

	t.Run("rejects challenge", func(t *testing.T) {
		client, err := NewExternalClient("")
		require.NoError(t, err)
		_, err = client.Start()
		require.NoError(t, err)
		_, err = client.Next(nil)
		assert.ErrorIs(t, err, ErrProtocolViolation)
	})
}

func TestExternalServer(t *testing.T) {
	t.Run("hands authzid to the callback", func(t *testing.T) {
		var got string
		server := NewExternalServer(func(authzid string) error {
			got = authzid
			return nil
		})
		_, done, err := server.Next([]byte("admin"))
		require.NoError(t, err)
		assert.True(t, done)
		assert.Equal(t, "admin", got)
	})

	t.Run("empty authzid means external identity", func(t *testing.T) {
		var got string
		called := false
		server := NewExternalServer(func(authzid string) error {
			called = true
			got = authzid
			return nil
		})
		_, done, err := server.Next([]byte{})
		require.NoError(t, err)
		assert.True(t, done)
		assert.True(t, called)
		assert.Empty(t, got)
	})

	t.Run("NUL in authzid", func(t *testing.T) {
		server := NewExternalServer(nil)
		_, _, err := server.Next([]byte("a\x00b"))
		assert.ErrorIs(t, err, ErrDecodeError)
	})

	t.Run("authorization rejection", func(t *testing.T) {
		server := NewExternalServer(func(string) error {
			return errors.New("certificate does not match")
		})
		_, _, err := server.Next([]byte("admin"))
		assert.ErrorIs(t, err, ErrAuthenticationFailed)
	})

	t.Run("response after completion", func(t *testing.T) {
		server := NewExternalServer(nil)
		_, _, err := server.Next([]byte(""))
		require.NoError(t, err)
		_, _, err = server.Next([]byte(""))
		assert.ErrorIs(t, err, ErrProtocolViolation)
	})
}
