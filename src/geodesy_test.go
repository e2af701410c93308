package seawolf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

/* Worst case error: one scaled arc-second, in degrees. */

const codec_tolerance = 60. / float64(sec_scale) / 3600.

func TestEncodeDecimalDeg(t *testing.T) {
	tests := []struct {
		name     string
		deg      float64
		expected string
	}{
		{
			name:     "zero",
			deg:      0.0,
			expected: "0000" + "000" + "0",
		},
		{
			name:     "exactly one degree",
			deg:      1.0,
			expected: "0100" + "000" + "0",
		},
		{
			name:     "exactly minus one degree",
			deg:      -1.0,
			expected: "0100" + "000" + "1",
		},
		{
			name:     "thirty and a half",
			deg:      30.5,
			expected: "1e1e" + "000" + "0",
		},
		{
			name:     "one hundred eighty",
			deg:      180.0,
			expected: "b400" + "000" + "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, encode_decimal_deg(tt.deg))
		})
	}
}

func TestDecodeDecimalDegRejects(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "empty", text: ""},
		{name: "too short", text: "0100000"},
		{name: "too long", text: "010000000"},
		{name: "not hex", text: "01zz0000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var _, ok = decode_decimal_deg(tt.text)
			assert.False(t, ok)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var deg = rapid.Float64Range(-180, 180).Draw(t, "deg")

		var encoded = encode_decimal_deg(deg)
		require.Len(t, encoded, 8)

		var decoded, ok = decode_decimal_deg(encoded)
		require.True(t, ok)
		assert.InDelta(t, deg, decoded, codec_tolerance)
	})
}

/* Flipping the sign touches the sign nibble and nothing else. */

func TestSignNibble(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var deg = rapid.Float64Range(1e-6, 180).Draw(t, "deg")

		var pos = encode_decimal_deg(deg)
		var neg = encode_decimal_deg(-deg)

		assert.Equal(t, pos[0:7], neg[0:7])
		assert.Equal(t, byte('0'), pos[7])
		assert.Equal(t, byte('1'), neg[7])
	})
}

func TestLatLonPair(t *testing.T) {
	var encoded = encode_ll(12.34567, -76.54321)
	require.Len(t, encoded, 16)

	var lat, lon, ok = decode_ll(encoded)
	require.True(t, ok)
	assert.InDelta(t, 12.34567, lat, codec_tolerance)
	assert.InDelta(t, -76.54321, lon, codec_tolerance)
}

func TestIsHex(t *testing.T) {
	assert.True(t, is_hex("0123456789abcdef"))
	assert.True(t, is_hex("ABCDEF"))
	assert.False(t, is_hex(""))
	assert.False(t, is_hex("12:34:56"))
	assert.False(t, is_hex("0x12"))
}
