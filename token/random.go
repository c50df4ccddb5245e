package token

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"io"
	"math/bits"
)

// alphaChars is the alphabet of generated IVs.
const alphaChars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

var (
	ErrInvalidSize   = errors.New("size must be positive")
	ErrInvalidLength = errors.New("length must be positive")
	ErrReaderFailed  = errors.New("entropy source read failed")
)

// Random draws uniformly distributed values from an entropy source.
// It holds no state besides the reader, so it is safe for concurrent use
// whenever the reader is.
type Random struct {
	reader io.Reader
}

// NewRandom returns a Random over the given entropy source.
// If no reader is provided, crypto/rand.Reader is used (recommended).
func NewRandom(readers ...io.Reader) *Random {
	reader := rand.Reader
	if len(readers) > 0 && readers[0] != nil {
		reader = readers[0]
	}
	return &Random{reader: reader}
}

// readBytesSafe reads exactly len(buf) bytes.
func (r *Random) readBytesSafe(buf []byte) error {
	n, err := io.ReadFull(r.reader, buf)
	if err != nil {
		return errors.Join(ErrReaderFailed, err)
	}
	if n != len(buf) {
		return ErrReaderFailed
	}
	return nil
}

// Key returns size random bytes.
func (r *Random) Key(size int) ([]byte, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	out := make([]byte, size)
	if err := r.readBytesSafe(out); err != nil {
		return nil, err
	}
	return out, nil
}

// Uint64 returns a random uint64.
func (r *Random) Uint64() (uint64, error) {
	var buf [8]byte
	if err := r.readBytesSafe(buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

// Uint64Range returns a random uint64 in [0, max) with uniform distribution.
func (r *Random) Uint64Range(max uint64) (uint64, error) {
	if max == 0 {
		return 0, nil
	}

	// Rejection sampling to avoid modulo bias
	mask := uint64(1)<<(64-bits.LeadingZeros64(max)) - 1
	for {
		val, err := r.Uint64()
		if err != nil {
			return 0, err
		}
		val &= mask
		if val < max {
			return val, nil
		}
	}
}

// IntRange returns a random int in the closed interval [lo, hi].
func (r *Random) IntRange(lo, hi int) (int, error) {
	if hi < lo {
		return 0, ErrInvalidSize
	}
	v, err := r.Uint64Range(uint64(hi-lo) + 1)
	if err != nil {
		return 0, err
	}
	return lo + int(v), nil
}

// Perm returns a random permutation of [0, n) using Fisher-Yates.
func (r *Random) Perm(n int) ([]int, error) {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j, err := r.IntRange(0, i)
		if err != nil {
			return nil, err
		}
		p[i], p[j] = p[j], p[i]
	}
	return p, nil
}

// String returns an alphanumeric string of the given length with perfect
// uniform distribution over 0-9A-Za-z.
func (r *Random) String(length int) (string, error) {
	if length <= 0 {
		return "", ErrInvalidLength
	}

	// 248 is the largest multiple of 62 below 256.
	rejectThreshold := byte(256 - (256 % len(alphaChars)))
	result := make([]byte, 0, length)
	buf := make([]byte, length+length/4+1)
	for len(result) < length {
		if err := r.readBytesSafe(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= rejectThreshold {
				continue
			}
			result = append(result, alphaChars[int(b)%len(alphaChars)])
			if len(result) == length {
				break
			}
		}
	}
	return string(result), nil
}
