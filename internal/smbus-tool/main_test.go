package smbustool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHex(t *testing.T) {
	b, err := parseHexByte("0x0b")
	require.NoError(t, err)
	assert.Equal(t, uint8(0x0B), b)

	b, err = parseHexByte("0x9")
	require.NoError(t, err)
	assert.Equal(t, uint8(0x09), b)

	w, err := parseHexWord("0x3138")
	require.NoError(t, err)
	assert.Equal(t, uint16(0x3138), w)

	_, err = parseHexByte("0b")
	assert.Error(t, err, "missing prefix")
	_, err = parseHexByte("0x")
	assert.Error(t, err, "no digits")
	_, err = parseHexByte("0x100")
	assert.Error(t, err, "too long for a byte")
	_, err = parseHexWord("0xzz")
	assert.Error(t, err, "not hex")
}
