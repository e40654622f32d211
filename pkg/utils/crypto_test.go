package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func TestEncryptDecryptRoundtrip(t *testing.T) {
	encrypted, err := Encrypt([]byte("access-token-value"), testKey)
	require.NoError(t, err)
	assert.NotContains(t, encrypted, "access-token-value")

	plaintext, err := Decrypt(encrypted, testKey)
	require.NoError(t, err)
	assert.Equal(t, "access-token-value", plaintext)
}

func TestEncryptProducesUniqueCiphertexts(t *testing.T) {
	a, err := Encrypt([]byte("same"), testKey)
	require.NoError(t, err)
	b, err := Encrypt([]byte("same"), testKey)
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "nonce makes ciphertexts differ")
}

func TestDecryptRejectsTamperedData(t *testing.T) {
	encrypted, err := Encrypt([]byte("secret"), testKey)
	require.NoError(t, err)

	tampered := []byte(encrypted)
	tampered[len(tampered)-1] ^= 1
	_, err = Decrypt(string(tampered), testKey)
	assert.Error(t, err)
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	encrypted, err := Encrypt([]byte("secret"), testKey)
	require.NoError(t, err)

	otherKey := []byte("fedcba9876543210fedcba9876543210")
	_, err = Decrypt(encrypted, otherKey)
	assert.Error(t, err)
}

func TestDecryptRejectsShortData(t *testing.T) {
	_, err := Decrypt("deadbeef", testKey)
	assert.Error(t, err)
}
