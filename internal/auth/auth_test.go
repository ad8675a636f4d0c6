package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2hunter2", hash)

	assert.True(t, ComparePassword(hash, "hunter2hunter2"))
	assert.False(t, ComparePassword(hash, "otra"))
}

func TestJWTRoundTrip(t *testing.T) {
	j := NewJWT("test-secret")

	token, err := j.Sign(Identity{UserID: 42, Staff: true})
	require.NoError(t, err)

	id, err := j.Verify(token)
	require.NoError(t, err)
	assert.EqualValues(t, 42, id.UserID)
	assert.True(t, id.Staff)
}

func TestJWTRejectsForeignSecret(t *testing.T) {
	token, err := NewJWT("secret-a").Sign(Identity{UserID: 1})
	require.NoError(t, err)

	_, err = NewJWT("secret-b").Verify(token)
	assert.Error(t, err)

	_, err = NewJWT("secret-a").Verify("no.es.token")
	assert.Error(t, err)
}
