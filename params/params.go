// Package params summarises nested request parameters into a flat, stable
// form suitable for signing.
//
// Only the shape of nested values is kept: a list becomes its length (plus
// the keys of its first map element) and a map becomes its sorted key set.
// Scalars are kept as is. Two requests with the same top-level scalars and
// the same nested shapes therefore canonicalize identically.
package params

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Summary markers.
const (
	Empty = "[*EM*]"
)

// ErrInvalidInput is returned when the input is not a map with string keys.
var ErrInvalidInput = errors.New("input must be a non-nil map with string keys")

// Simplify returns a copy of input where every list or map value is
// replaced by its summary string:
//
//	[]                         -> [*EM*]
//	[1, 2, 3]                  -> [*LI:3*]
//	[{"id":1,"name":"a"}, ...] -> [*CO:n:id,name*]
//	[[1], [2]]                 -> [*CO:2*]
//	{"b":1,"a":2}              -> [*RE:a,b*]
func Simplify(input map[string]any) (map[string]any, error) {
	if input == nil {
		return nil, ErrInvalidInput
	}
	out := make(map[string]any, len(input))
	for k, v := range input {
		out[k] = summarize(v)
	}
	return out, nil
}

// Encode simplifies input and serializes it with MessagePack.
func Encode(input map[string]any) ([]byte, error) {
	simplified, err := Simplify(input)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(simplified); err != nil {
		return nil, fmt.Errorf("encode params: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reads a map produced by Encode.
func Decode(data []byte) (map[string]any, error) {
	var out map[string]any
	if err := msgpack.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode params: %w", err)
	}
	return out, nil
}

// Canonical returns the simplified params as JSON with sorted keys.
// Strings are returned unchanged.
func Canonical(params any) (string, error) {
	if s, ok := params.(string); ok {
		return s, nil
	}
	m, ok := asMap(params)
	if !ok {
		return "", ErrInvalidInput
	}
	simplified, err := Simplify(m)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(simplified); err != nil {
		return "", fmt.Errorf("canonicalize params: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// Simplifier plugs Canonical into a token.Signer.
type Simplifier struct{}

func (Simplifier) Canonical(params any) (string, error) { return Canonical(params) }

func summarize(v any) any {
	if m, ok := asMap(v); ok {
		if len(m) == 0 {
			return Empty
		}
		return "[*RE:" + strings.Join(sortedKeys(m), ",") + "*]"
	}
	list, ok := asList(v)
	if !ok {
		return v
	}
	if len(list) == 0 {
		return Empty
	}
	var first any
	for _, item := range list {
		if item != nil {
			first = item
			break
		}
	}
	if m, ok := asMap(first); ok {
		return "[*CO:" + strconv.Itoa(len(list)) + ":" + strings.Join(sortedKeys(m), ",") + "*]"
	}
	if _, ok := asList(first); ok {
		return "[*CO:" + strconv.Itoa(len(list)) + "*]"
	}
	return "[*LI:" + strconv.Itoa(len(list)) + "*]"
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case nil:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String || rv.IsNil() {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

func asList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case nil, string, []byte:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return naturalLess(keys[i], keys[j]) })
	return keys
}

// naturalLess orders keys case-insensitively with digit runs compared by
// numeric value, so "2" < "10" < "a" < "B".
func naturalLess(a, b string) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		ca, cb := a[i], b[j]
		if isDigit(ca) && isDigit(cb) {
			si := i
			for i < len(a) && isDigit(a[i]) {
				i++
			}
			sj := j
			for j < len(b) && isDigit(b[j]) {
				j++
			}
			na := strings.TrimLeft(a[si:i], "0")
			nb := strings.TrimLeft(b[sj:j], "0")
			if len(na) != len(nb) {
				return len(na) < len(nb)
			}
			if na != nb {
				return na < nb
			}
			continue
		}
		la, lb := lower(ca), lower(cb)
		if la != lb {
			return la < lb
		}
		i++
		j++
	}
	if len(a)-i != len(b)-j {
		return len(a)-i < len(b)-j
	}
	return a < b
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}
