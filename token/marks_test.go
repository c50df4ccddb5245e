package token

import (
	"math"
	mrand "math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "37205", mark{slots: []int{3, 7, 2}, length: 5}.String())
	assert.Equal(t, "099", mark{slots: []int{0}, length: 99}.String())
	assert.Equal(t, "6100", mark{slots: []int{6, 1}, length: 0}.String())

	il := interleaving{
		{slots: []int{4}, length: 12},
		{slots: []int{0, 1}, length: 3},
	}
	assert.Equal(t, "412|0103", il.String())
}

func TestParseMarks(t *testing.T) {
	t.Parallel()

	t.Run("skips short fragments", func(t *testing.T) {
		t.Parallel()
		marks, err := parseMarks("37205||01|412")
		require.NoError(t, err)
		require.Len(t, marks, 2)
		assert.Equal(t, []int{3, 7, 2}, marks[0].slots)
		assert.Equal(t, 5, marks[0].length)
		assert.Equal(t, []int{4}, marks[1].slots)
		assert.Equal(t, 12, marks[1].length)
	})

	t.Run("rejects non numeric marks", func(t *testing.T) {
		t.Parallel()
		_, err := parseMarks("37205|4x2")
		assert.ErrorIs(t, err, ErrUnpackFailed)
	})
}

func TestInterleavingSplit(t *testing.T) {
	t.Parallel()

	il := interleaving{
		{slots: []int{2, 0}, length: 3},
		{slots: []int{1, 3, 4, 5, 6, 7}, length: 2},
	}

	t.Run("recovers data and iv", func(t *testing.T) {
		t.Parallel()
		body := "ABC" + "us" + "DE" + "tvwxyz" + "FGHIJKL"
		data, iv, err := il.split(body)
		require.NoError(t, err)
		assert.Equal(t, "ABCDEFGHIJKL", data)
		assert.Equal(t, "stuvwxyz", iv)
	})

	t.Run("body too short", func(t *testing.T) {
		t.Parallel()
		_, _, err := il.split("ABCusDEtv")
		assert.ErrorIs(t, err, ErrUnpackFailed)
	})

	t.Run("duplicate slot", func(t *testing.T) {
		t.Parallel()
		dup := interleaving{
			{slots: []int{0, 1, 2, 3}, length: 1},
			{slots: []int{3, 4, 5, 6}, length: 1},
		}
		_, _, err := dup.split("Aabcd" + "Befgh" + "tail")
		assert.ErrorIs(t, err, ErrUnpackFailed)
	})

	t.Run("slot out of range", func(t *testing.T) {
		t.Parallel()
		bad := interleaving{{slots: []int{0, 1, 2, 3, 4, 5, 6, 8}, length: 1}}
		_, _, err := bad.split("Aabcdefgh")
		assert.ErrorIs(t, err, ErrUnpackFailed)
	})

	t.Run("missing slots", func(t *testing.T) {
		t.Parallel()
		short := interleaving{{slots: []int{0, 1, 2}, length: 2}}
		_, _, err := short.split("ABxyzCDEF")
		assert.ErrorIs(t, err, ErrUnpackFailed)
	})

	t.Run("no data", func(t *testing.T) {
		t.Parallel()
		empty := interleaving{{slots: []int{0, 1, 2, 3, 4, 5, 6, 7}, length: 0}}
		_, _, err := empty.split("abcdefgh")
		assert.ErrorIs(t, err, ErrUnpackFailed)
	})
}

func TestPlan(t *testing.T) {
	t.Parallel()

	c := NewCodec("k", "ivk", WithRandom(mrand.New(mrand.NewSource(42))))
	for _, dataLen := range []int{12, 16, 24, 44, 108, 1000, 20000} {
		for i := 0; i < 50; i++ {
			il, err := c.plan(dataLen)
			require.NoError(t, err)

			var seen [IVSize]bool
			remaining := dataLen
			for _, m := range il {
				require.GreaterOrEqual(t, len(m.slots), 1)
				require.LessOrEqual(t, len(m.slots), maxGroupSize)
				for _, s := range m.slots {
					require.False(t, seen[s], "slot %d used twice", s)
					seen[s] = true
				}
				limit := max(1, min(maxChunkSize, int(math.Sqrt(float64(remaining)))))
				require.LessOrEqual(t, m.length, limit)
				require.LessOrEqual(t, m.length, remaining)
				remaining -= m.length
			}
			for s, ok := range seen {
				require.True(t, ok, "slot %d never placed", s)
			}
		}
	}
}

func TestPackUnpack(t *testing.T) {
	t.Parallel()

	c := NewCodec("data", "marks")
	data := "c29tZSBiYXNlNjQgY2lwaGVydGV4dA=="
	for i := 0; i < 100; i++ {
		token, err := c.pack("IVIVIVIV", data)
		require.NoError(t, err)
		gotData, gotIV, err := c.Unpack(token)
		require.NoError(t, err)
		assert.Equal(t, data, gotData)
		assert.Equal(t, "IVIVIVIV", gotIV)
	}
}
