package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnonymous(t *testing.T) {
	assert.Nil(t, Anonymous{}.UserID())
}

func TestStatic(t *testing.T) {
	p := NewStatic("user-1")

	uid := p.UserID()
	require.NotNil(t, uid)
	assert.Equal(t, "user-1", *uid)

	// Callers cannot mutate the provider through the returned pointer.
	*uid = "hijacked"
	assert.Equal(t, "user-1", *p.UserID())

	p.Set("")
	assert.Nil(t, p.UserID())

	p.Set("user-2")
	assert.Equal(t, "user-2", *p.UserID())
}

func TestStatic_EmptyIsAnonymous(t *testing.T) {
	assert.Nil(t, NewStatic("").UserID())
}
