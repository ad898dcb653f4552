package utils

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeBase64(s string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	return string(b), err
}

func encodeBase64(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func TestGenerateBookingCode_Format(t *testing.T) {
	code, err := GenerateBookingCode()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(code, "TKT-"))
	assert.Len(t, code, 4+bookingCodeLength)
	for _, r := range code[4:] {
		assert.Contains(t, bookingCodeCharset, string(r))
	}
}

func TestGenerateBookingCode_NoImmediateRepeat(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		code, err := GenerateBookingCode()
		require.NoError(t, err)
		assert.False(t, seen[code], "duplicate code %s after %d draws", code, i)
		seen[code] = true
	}
}

func TestQRPayload_RoundTrip(t *testing.T) {
	payload := EncodeQRPayload("TKT-A1B2C3D4E", "secret")
	code, err := DecodeQRPayload(payload, "secret")
	require.NoError(t, err)
	assert.Equal(t, "TKT-A1B2C3D4E", code)
}

func TestQRPayload_TrimsWhitespace(t *testing.T) {
	payload := EncodeQRPayload("TKT-A1B2C3D4E", "secret")
	code, err := DecodeQRPayload("  "+payload+"\n", "secret")
	require.NoError(t, err)
	assert.Equal(t, "TKT-A1B2C3D4E", code)
}

func TestQRPayload_RejectsWrongSecret(t *testing.T) {
	payload := EncodeQRPayload("TKT-A1B2C3D4E", "secret")
	_, err := DecodeQRPayload(payload, "other")
	assert.ErrorIs(t, err, ErrBadQRPayload)
}

func TestQRPayload_RejectsTampered(t *testing.T) {
	// Re-encode a payload with a different embedded code but the old tag.
	payload := EncodeQRPayload("TKT-A1B2C3D4E", "secret")
	raw, err := decodeBase64(payload)
	require.NoError(t, err)
	tampered := strings.Replace(raw, "TKT-A1B2C3D4E", "TKT-FFFFFFFFF", 1)
	_, err = DecodeQRPayload(encodeBase64(tampered), "secret")
	assert.ErrorIs(t, err, ErrBadQRPayload)
}

func TestQRPayload_RejectsGarbage(t *testing.T) {
	_, err := DecodeQRPayload("not base64 at all!!!", "secret")
	assert.ErrorIs(t, err, ErrBadQRPayload)

	_, err = DecodeQRPayload(encodeBase64("no-separator-here"), "secret")
	assert.ErrorIs(t, err, ErrBadQRPayload)
}
