package radix_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oarkflow/chari/radix"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("hex to binary", func(t *testing.T) {
		t.Parallel()
		n, err := radix.New("ff", radix.Hex)
		require.NoError(t, err)
		out, err := n.To(2)
		require.NoError(t, err)
		assert.Equal(t, "11111111", out)
	})

	t.Run("hex prefix and case are normalized", func(t *testing.T) {
		t.Parallel()
		n, err := radix.New("0xDEADbeef", radix.Hex)
		require.NoError(t, err)
		assert.Equal(t, "deadbeef", n.Hex())
	})

	t.Run("leading zeros are stripped", func(t *testing.T) {
		t.Parallel()
		n, err := radix.New("000f", radix.Hex)
		require.NoError(t, err)
		assert.Equal(t, "f", n.Hex())
	})

	t.Run("decimal to base62", func(t *testing.T) {
		t.Parallel()
		n, err := radix.New("61", 10)
		require.NoError(t, err)
		out, err := n.To(62)
		require.NoError(t, err)
		assert.Equal(t, "Z", out)

		n, err = radix.New("62", 10)
		require.NoError(t, err)
		out, err = n.To(62)
		require.NoError(t, err)
		assert.Equal(t, "10", out)
	})

	t.Run("digit alphabet order", func(t *testing.T) {
		t.Parallel()
		for value, want := range map[string]string{"0": "0", "1": "1", "35": "z", "36": "A"} {
			n, err := radix.New(value, 10)
			require.NoError(t, err)
			out, err := n.To(62)
			require.NoError(t, err)
			assert.Equal(t, want, out, "value %s", value)
		}
	})

	t.Run("base62 round trip through every radix", func(t *testing.T) {
		t.Parallel()
		src, err := radix.New("3xYz9AbQ", 62)
		require.NoError(t, err)
		for base := radix.MinBase; base <= radix.MaxBase; base++ {
			s, err := src.To(base)
			require.NoError(t, err)
			back, err := radix.New(s, base)
			require.NoError(t, err)
			assert.Equal(t, src.Hex(), back.Hex(), "base %d", base)
		}
	})

	t.Run("zero", func(t *testing.T) {
		t.Parallel()
		n, err := radix.New("0000", 10)
		require.NoError(t, err)
		out, err := n.To(62)
		require.NoError(t, err)
		assert.Equal(t, "0", out)
		assert.Equal(t, []byte{0}, n.Bytes())
	})
}

func TestErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value string
		base  int
		err   error
	}{
		{"radix too small", "1", 1, radix.ErrInvalidRadix},
		{"radix too large", "1", 63, radix.ErrInvalidRadix},
		{"digit out of range", "12", 2, radix.ErrInvalidDigit},
		{"upper case invalid below base 37", "A", 36, radix.ErrInvalidDigit},
		{"sign rejected", "-1", 10, radix.ErrInvalidDigit},
		{"empty", "", 10, radix.ErrEmptyInput},
		{"empty hex", "0x", radix.Hex, radix.ErrEmptyInput},
		{"bad hex", "xyz", radix.Hex, radix.ErrInvalidHex},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := radix.New(tt.value, tt.base)
			assert.ErrorIs(t, err, tt.err)
		})
	}

	t.Run("invalid target radix", func(t *testing.T) {
		t.Parallel()
		n, err := radix.New("10", 10)
		require.NoError(t, err)
		_, err = n.To(0)
		assert.ErrorIs(t, err, radix.ErrInvalidRadix)
		_, err = n.To(100)
		assert.ErrorIs(t, err, radix.ErrInvalidRadix)
	})
}

func TestBytes(t *testing.T) {
	t.Parallel()

	t.Run("round trip without leading zero", func(t *testing.T) {
		t.Parallel()
		in := []byte{0x0f, 0x00, 0xab}
		n, err := radix.FromBytes(in)
		require.NoError(t, err)
		assert.Equal(t, "f00ab", n.Hex())
		assert.Equal(t, in, n.Bytes())
	})

	t.Run("leading zero bytes dropped", func(t *testing.T) {
		t.Parallel()
		n, err := radix.FromBytes([]byte{0x00, 0x00, 0x12})
		require.NoError(t, err)
		assert.Equal(t, []byte{0x12}, n.Bytes())
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		_, err := radix.FromBytes(nil)
		assert.ErrorIs(t, err, radix.ErrEmptyInput)
	})
}

func TestAlpha(t *testing.T) {
	t.Parallel()

	t.Run("leading a run stripped", func(t *testing.T) {
		t.Parallel()
		n, err := radix.FromAlpha("abcxyz")
		require.NoError(t, err)
		assert.Equal(t, "bcxyz", n.ToAlpha())
	})

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()
		for _, s := range []string{"b", "z", "hello", "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzz", "kqmpx"} {
			n, err := radix.FromAlpha(s)
			require.NoError(t, err)
			assert.Equal(t, s, n.ToAlpha())
		}
	})

	t.Run("digit mapping", func(t *testing.T) {
		t.Parallel()
		n, err := radix.FromAlpha("ba")
		require.NoError(t, err)
		out, err := n.To(10)
		require.NoError(t, err)
		assert.Equal(t, "26", out)

		n, err = radix.FromAlpha("k")
		require.NoError(t, err)
		out, err = n.To(10)
		require.NoError(t, err)
		assert.Equal(t, "10", out)
	})

	t.Run("zero renders as a", func(t *testing.T) {
		t.Parallel()
		n, err := radix.FromAlpha("aaa")
		require.NoError(t, err)
		assert.Equal(t, "a", n.ToAlpha())
	})

	t.Run("rejects non lower-case letters", func(t *testing.T) {
		t.Parallel()
		for _, s := range []string{"abC", "a1", "a-b"} {
			_, err := radix.FromAlpha(s)
			assert.ErrorIs(t, err, radix.ErrInvalidDigit, s)
		}
		_, err := radix.FromAlpha("")
		assert.ErrorIs(t, err, radix.ErrEmptyInput)
	})
}
