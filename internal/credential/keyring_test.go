package credential_test

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/laundry-notifications/internal/credential"
)

func TestStore_Session(t *testing.T) {
	s := credential.New(keyring.NewArrayKeyring(nil))
	const base = "http://localhost:8000"

	_, err := s.Session(base)
	assert.ErrorIs(t, err, credential.ErrNotFound)

	require.NoError(t, s.SetSession(base, "abc"))
	got, err := s.Session(base)
	require.NoError(t, err)
	assert.Equal(t, "abc", got)

	_, err = s.Session("http://other:8000")
	assert.ErrorIs(t, err, credential.ErrNotFound)

	require.NoError(t, s.DeleteSession(base))
	require.NoError(t, s.DeleteSession(base))
	_, err = s.Session(base)
	assert.ErrorIs(t, err, credential.ErrNotFound)
}

func TestStore_PasswordPerUser(t *testing.T) {
	s := credential.New(keyring.NewArrayKeyring(nil))
	const base = "http://localhost:8000"

	require.NoError(t, s.SetPassword(base, "alice", "pw-a"))
	require.NoError(t, s.SetPassword(base, "bob", "pw-b"))

	got, err := s.Password(base, "alice")
	require.NoError(t, err)
	assert.Equal(t, "pw-a", got)

	got, err = s.Password(base, "bob")
	require.NoError(t, err)
	assert.Equal(t, "pw-b", got)
}
