package models

import (
	"strings"
	"testing"

	"github.com/stellar/go/keypair"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validHash = "a3f5c8e21b94d70f6a3e5c8b21d94e70fa3c5e8b21d94f70a6c3e5b821d94e70"

func TestParseNetwork(t *testing.T) {
	n, err := ParseNetwork("testnet")
	require.NoError(t, err)
	assert.Equal(t, NetworkTestnet, n)

	n, err = ParseNetwork(" mainnet ")
	require.NoError(t, err)
	assert.Equal(t, NetworkMainnet, n)

	_, err = ParseNetwork("devnet")
	assert.Error(t, err)

	_, err = ParseNetwork("")
	assert.Error(t, err)
}

func TestParseDocumentHash(t *testing.T) {
	t.Run("valid lowercase passes through", func(t *testing.T) {
		h, err := ParseDocumentHash(validHash)
		require.NoError(t, err)
		assert.Equal(t, validHash, h)
	})

	t.Run("uppercase and whitespace are normalized", func(t *testing.T) {
		h, err := ParseDocumentHash("  " + strings.ToUpper(validHash) + " ")
		require.NoError(t, err)
		assert.Equal(t, validHash, h)
	})

	t.Run("wrong length fails", func(t *testing.T) {
		_, err := ParseDocumentHash(validHash[:63])
		assert.Error(t, err)
	})

	t.Run("non-hex fails", func(t *testing.T) {
		_, err := ParseDocumentHash(strings.Replace(validHash, "a", "g", 1))
		assert.Error(t, err)
	})

	t.Run("empty fails", func(t *testing.T) {
		_, err := ParseDocumentHash("")
		assert.Error(t, err)
	})
}

func TestValidateKeys(t *testing.T) {
	kp, err := keypair.Random()
	require.NoError(t, err)

	assert.NoError(t, ValidatePublicKey(kp.Address()))
	assert.NoError(t, ValidateSecretKey(kp.Seed()))

	assert.Error(t, ValidatePublicKey(kp.Seed()), "secret seed is not a public key")
	assert.Error(t, ValidateSecretKey(kp.Address()), "public key is not a secret seed")
	assert.Error(t, ValidatePublicKey("GABC"))
	assert.Error(t, ValidatePublicKey(""))
}

func TestTxStatusTerminal(t *testing.T) {
	assert.False(t, TxStatusPending.Terminal())
	assert.True(t, TxStatusSuccess.Terminal())
	assert.True(t, TxStatusFailed.Terminal())
	assert.True(t, TxStatusTimeout.Terminal())
}

func TestHashBytes(t *testing.T) {
	raw, err := HashBytes(validHash)
	require.NoError(t, err)
	assert.Equal(t, byte(0xa3), raw[0])
	assert.Equal(t, byte(0x70), raw[31])

	_, err = HashBytes("abcd")
	assert.Error(t, err)
}
