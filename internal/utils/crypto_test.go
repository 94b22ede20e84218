package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecret(t *testing.T) {
	secret, err := GenerateSecret()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(secret, "0x"))
	assert.Len(t, secret, 66, "32 bytes hex encoded with 0x prefix")

	other, err := GenerateSecret()
	require.NoError(t, err)
	assert.NotEqual(t, secret, other)
}

func TestHashlockPairIsOneCommitment(t *testing.T) {
	secret := "0x000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

	eth, err := EthereumHashlock(secret)
	require.NoError(t, err)
	stark, err := StarknetHashlock(secret)
	require.NoError(t, err)

	assert.NotEqual(t, eth, stark)

	// The starknet encoding is the byte-reversed ethereum digest.
	ethHex := strings.TrimPrefix(eth, "0x")
	starkHex := strings.TrimPrefix(stark, "0x")
	require.Len(t, ethHex, 64)
	for i := 0; i < 64; i += 2 {
		assert.Equal(t, ethHex[i:i+2], starkHex[62-i:64-i])
	}
}

func TestVerifySecret(t *testing.T) {
	secret, err := GenerateSecret()
	require.NoError(t, err)
	eth, err := EthereumHashlock(secret)
	require.NoError(t, err)
	stark, err := StarknetHashlock(secret)
	require.NoError(t, err)

	ok, err := VerifySecret(secret, eth, stark)
	require.NoError(t, err)
	assert.True(t, ok)

	// Matching is case-insensitive on the hex digests.
	ok, err = VerifySecret(secret, strings.ToUpper(eth), stark)
	require.NoError(t, err)
	assert.True(t, ok)

	wrong, err := GenerateSecret()
	require.NoError(t, err)
	ok, err = VerifySecret(wrong, eth, stark)
	require.NoError(t, err)
	assert.False(t, ok)

	// One matching encoding alone is not enough.
	ok, err = VerifySecret(secret, eth, eth)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashlockRejectsBadHex(t *testing.T) {
	_, err := EthereumHashlock("0xzz")
	assert.Error(t, err)
	_, err = StarknetHashlock("not-hex")
	assert.Error(t, err)
}
