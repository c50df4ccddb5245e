// Package radix converts arbitrary-precision non-negative integers between
// any radix from 2 to 62 using the digit alphabet 0-9a-zA-Z.
//
// Every value is normalized to a canonical big integer, so leading zero
// digits (and therefore leading zero bytes of binary input) are not
// preserved. Callers that need fixed-width output must pad themselves.
package radix

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const (
	// MinBase is the smallest supported radix.
	MinBase = 2
	// MaxBase is the largest supported radix.
	MaxBase = 62
	// Hex selects hex mode in New: an optional 0x prefix and case-insensitive digits.
	Hex = 16
)

// digits holds the digit alphabet; value 0 is '0', 35 is 'z', 36 is 'A'.
const digits = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

var (
	ErrInvalidRadix = errors.New("radix must be between 2 and 62")
	ErrInvalidDigit = errors.New("invalid digit for radix")
	ErrInvalidHex   = errors.New("invalid hex string")
	ErrEmptyInput   = errors.New("empty input")
)

// Number is an immutable non-negative integer.
type Number struct {
	v *big.Int
}

// New parses value written in base. Base 16 accepts an optional 0x prefix and
// upper-case hex digits; every other base uses the 0-9a-zA-Z alphabet strictly.
func New(value string, base int) (*Number, error) {
	if base == Hex {
		return FromHex(value)
	}
	if err := validBase(base); err != nil {
		return nil, err
	}
	v, err := parse(value, base)
	if err != nil {
		return nil, err
	}
	return &Number{v: v}, nil
}

// FromHex parses a hex string with an optional 0x prefix.
func FromHex(value string) (*Number, error) {
	h := value
	if len(h) >= 2 && h[0] == '0' && (h[1] == 'x' || h[1] == 'X') {
		h = h[2:]
	}
	if h == "" {
		return nil, ErrEmptyInput
	}
	h = strings.ToLower(h)
	for i := 0; i < len(h); i++ {
		c := h[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return nil, fmt.Errorf("%w: %q", ErrInvalidHex, value)
		}
	}
	v, ok := new(big.Int).SetString(h, 16)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHex, value)
	}
	return &Number{v: v}, nil
}

// FromBytes interprets b as a big-endian unsigned integer.
func FromBytes(b []byte) (*Number, error) {
	if len(b) == 0 {
		return nil, ErrEmptyInput
	}
	return &Number{v: new(big.Int).SetBytes(b)}, nil
}

// To renders the number in base.
func (n *Number) To(base int) (string, error) {
	if err := validBase(base); err != nil {
		return "", err
	}
	return n.v.Text(base), nil
}

// Hex returns the canonical lower-case hex form without leading zeros.
func (n *Number) Hex() string {
	return n.v.Text(16)
}

// Bytes returns the big-endian bytes of the number. Leading zero bytes are
// dropped; zero is returned as a single 0x00 byte.
func (n *Number) Bytes() []byte {
	if n.v.Sign() == 0 {
		return []byte{0}
	}
	return n.v.Bytes()
}

// Big returns a copy of the underlying integer.
func (n *Number) Big() *big.Int {
	return new(big.Int).Set(n.v)
}

func (n *Number) String() string {
	return n.Hex()
}

func validBase(base int) error {
	if base < MinBase || base > MaxBase {
		return fmt.Errorf("%w, got %d", ErrInvalidRadix, base)
	}
	return nil
}

func digitValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 36
	}
	return -1
}

func parse(s string, base int) (*big.Int, error) {
	if s == "" {
		return nil, ErrEmptyInput
	}
	b := big.NewInt(int64(base))
	d := new(big.Int)
	v := new(big.Int)
	for i := 0; i < len(s); i++ {
		idx := digitValue(s[i])
		if idx < 0 || idx >= base {
			return nil, fmt.Errorf("%w %d: %q", ErrInvalidDigit, base, s[i])
		}
		v.Mul(v, b)
		v.Add(v, d.SetInt64(int64(idx)))
	}
	return v, nil
}
