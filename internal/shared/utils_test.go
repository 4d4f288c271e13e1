package shared

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeRandHexString_LengthAndHex(t *testing.T) {
	const n = 16
	s, err := MakeRandHexString(n)
	require.NoError(t, err)
	assert.Len(t, s, n*2)

	_, err = hex.DecodeString(s)
	assert.NoError(t, err, "string is not valid hex")
}

func TestMakeRandHexString_ZeroSize(t *testing.T) {
	s, err := MakeRandHexString(0)
	require.NoError(t, err)
	assert.Equal(t, "", s)
}

func TestGenerateRandByteArray_Unique(t *testing.T) {
	a, err := GenerateRandByteArray(32)
	require.NoError(t, err)
	b, err := GenerateRandByteArray(32)
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

func TestWipeByteArray(t *testing.T) {
	b := []byte("secret")
	WipeByteArray(b)
	assert.Equal(t, make([]byte, 6), b)

	// nil must not panic
	WipeByteArray(nil)
}

func TestCloneBytes_Independent(t *testing.T) {
	src := []byte{1, 2, 3}
	dst := CloneBytes(src)
	src[0] = 9

	assert.Equal(t, []byte{1, 2, 3}, dst)
	assert.Nil(t, CloneBytes(nil))
}
