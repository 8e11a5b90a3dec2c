package secrets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "6368616e676520746869732070617373776f726420746f206120736563726574"

func TestSealRoundTrip(t *testing.T) {
	sealer, err := New(testKey)
	require.NoError(t, err)

	sealed, err := sealer.Seal("SSECRETSEEDVALUE")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "SSECRETSEEDVALUE")

	opened, err := sealer.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "SSECRETSEEDVALUE", opened)
}

func TestSealIsNonDeterministic(t *testing.T) {
	sealer, err := New(testKey)
	require.NoError(t, err)

	a, err := sealer.Seal("seed")
	require.NoError(t, err)
	b, err := sealer.Seal("seed")
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "fresh nonce per seal")
}

func TestOpenWithWrongKeyFails(t *testing.T) {
	sealer, err := New(testKey)
	require.NoError(t, err)
	other, err := New(strings.Repeat("ab", 32))
	require.NoError(t, err)

	sealed, err := sealer.Seal("seed")
	require.NoError(t, err)

	_, err = other.Open(sealed)
	assert.Error(t, err)
}

func TestNewKeyValidation(t *testing.T) {
	_, err := New("deadbeef")
	assert.Error(t, err, "short key rejected")

	_, err = New("zz" + testKey[2:])
	assert.Error(t, err, "non-hex key rejected")

	sealer, err := New("")
	require.NoError(t, err, "empty key falls back to an ephemeral one")
	sealed, err := sealer.Seal("seed")
	require.NoError(t, err)
	opened, err := sealer.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "seed", opened)
}

func TestOpenGarbageFails(t *testing.T) {
	sealer, err := New(testKey)
	require.NoError(t, err)

	_, err = sealer.Open("!!not-base64!!")
	assert.Error(t, err)

	_, err = sealer.Open("c2hvcnQ")
	assert.Error(t, err)
}
