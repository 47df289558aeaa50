package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptVerifier(t *testing.T) {
	v := NewBcryptVerifier(bcrypt.MinCost)

	hash, err := v.Hash("password1234")
	require.NoError(t, err)
	assert.NotEqual(t, "password1234", hash)

	assert.NoError(t, v.Compare(hash, "password1234"))
	assert.ErrorIs(t, v.Compare(hash, "password12345"), bcrypt.ErrMismatchedHashAndPassword)
}

func TestNewBcryptVerifierCostFallback(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptVerifier(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptVerifier(bcrypt.MaxCost+1).cost)
	assert.Equal(t, 12, NewBcryptVerifier(12).cost)
}
