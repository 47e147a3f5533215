package lib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestEncryptDecrypt(t *testing.T) {
	sealed, err := Encrypt("Jane Doe", testKey)
	require.NoError(t, err)
	assert.NotEqual(t, "Jane Doe", sealed)

	other, err := Encrypt("Jane Doe", testKey)
	require.NoError(t, err)
	assert.NotEqual(t, sealed, other, "nonce must differ per call")

	plain, err := Decrypt(sealed, testKey)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", plain)
}

func TestEncrypt_EmptyAndBadKey(t *testing.T) {
	sealed, err := Encrypt("", testKey)
	require.NoError(t, err)
	assert.Empty(t, sealed)

	_, err = Encrypt("x", "short")
	assert.ErrorIs(t, err, ErrInvalidKey)

	sealed = MustEncrypt("x", testKey)
	_, err = Decrypt(sealed, "fedcba9876543210fedcba9876543210")
	assert.Error(t, err)
}
