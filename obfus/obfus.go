// Package obfus turns strings into self-decoding JavaScript expressions.
//
// The output is light obfuscation for embedding literals in generated
// front-end code. It is not encryption: the key travels with the data.
package obfus

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/oarkflow/chari/token"
)

// EmptyCode is the expression produced for an empty plaintext.
const EmptyCode = `""`

// ErrMalformedCode is returned by Decode for input GenerateCode could not have produced.
var ErrMalformedCode = errors.New("malformed obfuscated code")

var codePattern = regexp.MustCompile(`^\(\(k => String\.fromCharCode\(\.\.\.\[([0-9, ]*)\]\.map\(x => x \^ k\)\)\)\)\((\d+)\)$`)

// Generator produces obfuscated code using its own entropy source.
type Generator struct {
	random *token.Random
}

// NewGenerator returns a Generator reading from r, or crypto/rand when r is nil.
func NewGenerator(r io.Reader) *Generator {
	return &Generator{random: token.NewRandom(r)}
}

var defaultGenerator = NewGenerator(nil)

// GenerateCode obfuscates plaintext with a random key using the default generator.
func GenerateCode(plaintext string) (string, error) {
	return defaultGenerator.GenerateCode(plaintext)
}

// GenerateCode returns a JavaScript expression that evaluates to plaintext.
// Each UTF-16 code unit is XORed with a key in [1,255]:
//
//	((k => String.fromCharCode(...[d1, d2].map(x => x ^ k))))(key)
func (g *Generator) GenerateCode(plaintext string) (string, error) {
	if plaintext == "" {
		return EmptyCode, nil
	}
	key, err := g.random.IntRange(1, 255)
	if err != nil {
		return "", fmt.Errorf("obfuscation key: %w", err)
	}
	return Encode(plaintext, uint16(key)), nil
}

// Encode builds the expression for an explicit key. A zero key leaves the
// data readable.
func Encode(plaintext string, key uint16) string {
	if plaintext == "" {
		return EmptyCode
	}
	units := utf16.Encode([]rune(plaintext))
	data := make([]string, len(units))
	for i, u := range units {
		data[i] = strconv.Itoa(int(u ^ key))
	}
	return "((k => String.fromCharCode(...[" + strings.Join(data, ", ") + "].map(x => x ^ k))))(" + strconv.Itoa(int(key)) + ")"
}

// Decode evaluates code produced by GenerateCode without a JavaScript runtime.
func Decode(code string) (string, error) {
	if code == EmptyCode {
		return "", nil
	}
	m := codePattern.FindStringSubmatch(code)
	if m == nil {
		return "", ErrMalformedCode
	}
	key, err := strconv.ParseUint(m[2], 10, 16)
	if err != nil {
		return "", fmt.Errorf("%w: key %q", ErrMalformedCode, m[2])
	}
	if strings.TrimSpace(m[1]) == "" {
		return "", nil
	}
	fields := strings.Split(m[1], ",")
	units := make([]uint16, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseUint(strings.TrimSpace(f), 10, 16)
		if err != nil {
			return "", fmt.Errorf("%w: element %d", ErrMalformedCode, i)
		}
		units[i] = uint16(v) ^ uint16(key)
	}
	return string(utf16.Decode(units)), nil
}
