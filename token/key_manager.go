package token

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/oarkflow/shamir"
	"golang.org/x/crypto/hkdf"

	"github.com/oarkflow/chari/radix"
)

const (
	// MasterKeySize is the raw length of a master key.
	MasterKeySize = 32
	// DerivedKeySize is the raw length of an HKDF derived key.
	DerivedKeySize = 32
	// packBase is the radix of packed keys.
	packBase = 62
	// maxKeyAttempts bounds the resampling loop of GenerateMasterKey.
	maxKeyAttempts = 64
	// shareMarker prefixes raw Shamir shares before packing so a leading zero byte survives.
	shareMarker = 0x01
)

var (
	// ErrKeyUnpack is returned for any packed key that does not decode.
	ErrKeyUnpack = errors.New("invalid packed key")
	// ErrInvalidShares is returned when master key shares cannot be split or combined.
	ErrInvalidShares = errors.New("invalid key shares")
)

// hkdfSalt is the fixed all-zero HKDF salt.
var hkdfSalt = make([]byte, sha256.Size)

// KeyManager creates master keys and hands them out as packed base-62 strings.
type KeyManager struct {
	random *Random
}

// NewKeyManager returns a KeyManager. Only WithRandom is meaningful here.
func NewKeyManager(opts ...Option) *KeyManager {
	o := applyOptions(opts...)
	return &KeyManager{random: NewRandom(o.reader)}
}

// GenerateMasterKey returns a packed 32 byte random key. Keys whose first
// byte has a zero high nibble are resampled so that the packed form always
// unpacks to exactly 32 bytes.
func (km *KeyManager) GenerateMasterKey() (string, error) {
	for i := 0; i < maxKeyAttempts; i++ {
		key, err := km.random.Key(MasterKeySize)
		if err != nil {
			return "", err
		}
		if key[0] < 0x10 {
			continue
		}
		return PackKey(key)
	}
	return "", fmt.Errorf("%w: no usable key after %d attempts", ErrReaderFailed, maxKeyAttempts)
}

// PackKey renders a binary key as a base-62 string, going through hex.
//
// The conversion treats the key as an integer: UnpackKey(PackKey(b)) is b
// with its leading 0x00 bytes removed, and a key of only zero bytes comes
// back as a single 0x00 byte.
func PackKey(key []byte) (string, error) {
	n, err := radix.FromBytes(key)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrKeyUnpack, err)
	}
	return n.To(packBase)
}

// UnpackKey reverses PackKey.
func UnpackKey(packed string) ([]byte, error) {
	n, err := radix.New(packed, packBase)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyUnpack, err)
	}
	return n.Bytes(), nil
}

// DeriveKey derives a purpose scoped key from a packed master key with
// HKDF-SHA256, a zero salt and info as context. The result is packed.
func DeriveKey(packedMaster, info string) (string, error) {
	master, err := UnpackKey(packedMaster)
	if err != nil {
		return "", err
	}
	reader := hkdf.New(sha256.New, master, hkdfSalt, []byte(info))
	out := make([]byte, DerivedKeySize)
	if _, err := io.ReadFull(reader, out); err != nil {
		return "", err
	}
	return PackKey(out)
}

// SplitMasterKey splits a packed master key into parts packed shares, any
// threshold of which restore it with CombineMasterKey.
func SplitMasterKey(packedMaster string, parts, threshold int) ([]string, error) {
	master, err := UnpackKey(packedMaster)
	if err != nil {
		return nil, err
	}
	shares, err := shamir.Split(master, parts, threshold)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidShares, err)
	}
	packed := make([]string, len(shares))
	for i, share := range shares {
		p, err := PackKey(append([]byte{shareMarker}, share...))
		if err != nil {
			return nil, err
		}
		packed[i] = p
	}
	return packed, nil
}

// CombineMasterKey restores a packed master key from packed shares.
func CombineMasterKey(packedShares []string) (string, error) {
	if len(packedShares) < 2 {
		return "", fmt.Errorf("%w: need at least 2 shares", ErrInvalidShares)
	}
	shares := make([][]byte, len(packedShares))
	for i, p := range packedShares {
		raw, err := UnpackKey(p)
		if err != nil {
			return "", err
		}
		if len(raw) < 2 || raw[0] != shareMarker {
			return "", fmt.Errorf("%w: share %d is malformed", ErrInvalidShares, i)
		}
		shares[i] = raw[1:]
	}
	master, err := shamir.Combine(shares)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidShares, err)
	}
	return PackKey(master)
}
