package radix

import "fmt"

// alphaBase is the radix behind the lower-case alpha encoding.
const alphaBase = 26

// FromAlpha parses a string of lower-case letters as a base-26 numeral where
// 'a'-'j' stand for the digits 0-9 and 'k'-'z' for the digits a-p.
//
// Leading 'a' characters are zero digits and are lost on normalization, so
// FromAlpha("abc").ToAlpha() is "bc".
func FromAlpha(alpha string) (*Number, error) {
	if alpha == "" {
		return nil, ErrEmptyInput
	}
	mapped := make([]byte, len(alpha))
	for i := 0; i < len(alpha); i++ {
		c := alpha[i]
		switch {
		case c >= 'a' && c <= 'j':
			mapped[i] = c - 'a' + '0'
		case c >= 'k' && c <= 'z':
			mapped[i] = c - 'k' + 'a'
		default:
			return nil, fmt.Errorf("%w: alpha character %q, expected a-z", ErrInvalidDigit, c)
		}
	}
	v, err := parse(string(mapped), alphaBase)
	if err != nil {
		return nil, err
	}
	return &Number{v: v}, nil
}

// ToAlpha renders the number in the alpha encoding. Zero is "a".
func (n *Number) ToAlpha() string {
	s := []byte(n.v.Text(alphaBase))
	for i, c := range s {
		if c >= '0' && c <= '9' {
			s[i] = c - '0' + 'a'
		} else {
			s[i] = c - 'a' + 'k'
		}
	}
	return string(s)
}
