package login

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateURL(t *testing.T) {
	assert.NoError(t, validateURL("http://localhost:8000"))
	assert.NoError(t, validateURL(" https://laundry.example.com/ "))
	assert.Error(t, validateURL(""))
	assert.Error(t, validateURL("localhost:8000/x"))
	assert.Error(t, validateURL("/notifications/"))
}

func TestValidateRequired(t *testing.T) {
	v := validateRequired("Username")
	assert.EqualError(t, v("  "), "Username is required")
	assert.NoError(t, v("alice"))
}

func TestFailedClearsPassword(t *testing.T) {
	m := New("http://localhost:8000", "alice", 80, 24)
	m.values.password = "secret"
	m.mode = ModeSubmitting

	m, _ = m.Failed(assert.AnError)

	assert.Equal(t, ModeForm, m.mode)
	assert.Empty(t, m.values.password)
	assert.Equal(t, "alice", m.values.username)
	assert.Contains(t, m.View(), assert.AnError.Error())
}
