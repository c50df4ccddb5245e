package params_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oarkflow/chari/params"
	"github.com/oarkflow/chari/token"
)

func complexCase() map[string]any {
	return map[string]any{
		"profile": map[string]any{
			"id":   1001,
			"tags": []any{"vip", "premium"},
			"settings": map[string]any{
				"theme": "dark", "notify": true,
			},
			"history": []any{
				map[string]any{"action": "login", "time": "2023-01-01"},
			},
			"preferences": []any{},
			"metadata":    map[string]any{},
		},
		"items": []any{
			map[string]any{"id": 1, "name": "item1", "tags": []any{"a", "b"}},
			map[string]any{"id": 2, "name": "item2", "tags": []any{"c"}},
		},
		"filters": map[string]any{
			"status": []string{"active", "pending"},
			"range":  map[string]int{"min": 0, "max": 100},
		},
		"emptyList": []any{},
		"emptyObj":  map[string]any{},
		"mixedKeys": map[string]any{"b": 2, "a": 1, "3": "three", "2": "two"},
	}
}

func TestSimplify(t *testing.T) {
	t.Parallel()

	t.Run("complex case", func(t *testing.T) {
		t.Parallel()
		got, err := params.Simplify(complexCase())
		require.NoError(t, err)
		assert.Equal(t, map[string]any{
			"emptyList": "[*EM*]",
			"emptyObj":  "[*EM*]",
			"filters":   "[*RE:range,status*]",
			"items":     "[*CO:2:id,name,tags*]",
			"mixedKeys": "[*RE:2,3,a,b*]",
			"profile":   "[*RE:history,id,metadata,preferences,settings,tags*]",
		}, got)
	})

	t.Run("edge cases", func(t *testing.T) {
		t.Parallel()
		cases := []struct {
			input map[string]any
			want  map[string]any
		}{
			{map[string]any{"a": []int{1, 2, 3}}, map[string]any{"a": "[*LI:3*]"}},
			{map[string]any{"a": []any{map[string]any{"x": 1}, map[string]any{"y": 2}}}, map[string]any{"a": "[*CO:2:x*]"}},
			{map[string]any{"a": []any{[]int{1}, []int{2}}}, map[string]any{"a": "[*CO:2*]"}},
			{map[string]any{"a": []any{nil, map[string]any{"k": 1}}}, map[string]any{"a": "[*CO:2:k*]"}},
			{map[string]any{"a": []any{nil, nil}}, map[string]any{"a": "[*LI:2*]"}},
			{map[string]any{"a": map[string]any{"c": 1, "b": 2}}, map[string]any{"a": "[*RE:b,c*]"}},
			{map[string]any{"z": 1, "a": "2", "n": nil}, map[string]any{"z": 1, "a": "2", "n": nil}},
		}
		for _, tc := range cases {
			got, err := params.Simplify(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		}
	})

	t.Run("nil input", func(t *testing.T) {
		t.Parallel()
		_, err := params.Simplify(nil)
		assert.ErrorIs(t, err, params.ErrInvalidInput)
	})

	t.Run("natural key order", func(t *testing.T) {
		t.Parallel()
		got, err := params.Simplify(map[string]any{
			"k": map[string]any{"b10": 1, "b2": 1, "B1": 1, "a": 1, "10": 1, "9": 1},
		})
		require.NoError(t, err)
		assert.Equal(t, "[*RE:9,10,a,B1,b2,b10*]", got["k"])
	})
}

func TestEncodeDecode(t *testing.T) {
	t.Parallel()

	simplified, err := params.Simplify(complexCase())
	require.NoError(t, err)

	buf, err := params.Encode(complexCase())
	require.NoError(t, err)
	require.NotEmpty(t, buf)

	again, err := params.Encode(complexCase())
	require.NoError(t, err)
	assert.Equal(t, buf, again, "encoding must be stable")

	decoded, err := params.Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, simplified, decoded)

	_, err = params.Decode([]byte{0xc1})
	assert.Error(t, err)
}

func TestCanonical(t *testing.T) {
	t.Parallel()

	a, err := params.Canonical(map[string]any{"b": []any{1, 2}, "a": "x"})
	require.NoError(t, err)
	b, err := params.Canonical(map[string]any{"a": "x", "b": []any{3, 4}})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","b":"[*LI:2*]"}`, a)
	assert.Equal(t, a, b)

	s, err := params.Canonical("already=flat")
	require.NoError(t, err)
	assert.Equal(t, "already=flat", s)

	_, err = params.Canonical(42)
	assert.ErrorIs(t, err, params.ErrInvalidInput)
}

func TestSimplifierSigns(t *testing.T) {
	t.Parallel()

	master, err := token.NewKeyManager().GenerateMasterKey()
	require.NoError(t, err)
	key, err := token.DeriveKey(master, "params")
	require.NoError(t, err)

	s := token.NewSigner(token.WithCanonicalizer(params.Simplifier{}))
	w := s.Window()
	sig, err := s.SignWindow(key, "c", map[string]any{"ids": []int{1, 2, 3}}, w)
	require.NoError(t, err)

	ok, err := s.Verify(key, "c", map[string]any{"ids": []int{7, 8, 9}}, sig, true)
	require.NoError(t, err)
	assert.True(t, ok, "same shape must verify")

	ok, err = s.Verify(key, "c", map[string]any{"ids": []int{1, 2}}, sig, true)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSortStability(t *testing.T) {
	t.Parallel()

	keys := []string{"b", "A", "a", "B"}
	m := make(map[string]any, len(keys))
	for _, k := range keys {
		m[k] = 1
	}
	got, err := params.Simplify(map[string]any{"k": m})
	require.NoError(t, err)
	assert.Equal(t, "[*RE:A,a,B,b*]", got["k"])
}
