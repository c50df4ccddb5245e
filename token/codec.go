package token

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidToken is returned by Decrypt for any failure: malformed input,
	// tampering, wrong keys or a bad padding.
	ErrInvalidToken = errors.New("token invalid")
	// ErrEmptyPayload is returned when Encrypt gets nil or an empty string.
	ErrEmptyPayload = errors.New("payload is empty")
	// ErrInvalidIV is returned when a caller supplied IV is not 8 bytes long.
	ErrInvalidIV = errors.New("iv must be 8 bytes")
	// ErrUnpackFailed is returned when the IV and ciphertext cannot be
	// recovered from a token body.
	ErrUnpackFailed = errors.New("iv unpack failed")
	// ErrPayloadTooLarge is returned when a payload would not fit in a token.
	ErrPayloadTooLarge = errors.New("payload too large")
)

// Maximum token size to prevent resource exhaustion attacks
const maxTokenSize = 1 << 20

// Codec encrypts payloads into single printable tokens whose IV is hidden
// inside the ciphertext. The data key and the marks key are derived
// independently, so leaking one does not reveal the other.
//
// A Codec holds no mutable state and is safe for concurrent use.
type Codec struct {
	dataKey  []byte
	marksKey []byte
	random   *Random
}

// NewCodec derives both working keys from passphrase material.
func NewCodec(dataMaterial, marksMaterial string, opts ...Option) *Codec {
	o := applyOptions(opts...)
	return &Codec{
		dataKey:  deriveCipherKey(dataMaterial),
		marksKey: deriveCipherKey(marksMaterial),
		random:   NewRandom(o.reader),
	}
}

// Encrypt encrypts payload under a fresh random IV.
//
// Strings and byte slices are used as is; nil fails with ErrEmptyPayload;
// anything else is JSON encoded without HTML escaping.
func (c *Codec) Encrypt(payload any) (string, error) {
	iv, err := c.random.String(IVSize)
	if err != nil {
		return "", err
	}
	return c.EncryptWithIV(payload, iv)
}

// EncryptWithIV is Encrypt with a caller supplied 8 byte IV.
func (c *Codec) EncryptWithIV(payload any, iv string) (string, error) {
	plaintext, err := payloadString(payload)
	if err != nil {
		return "", err
	}
	if len(iv) != IVSize {
		return "", fmt.Errorf("%w, got %d", ErrInvalidIV, len(iv))
	}
	if len(plaintext) > maxTokenSize/2 {
		return "", ErrPayloadTooLarge
	}
	encrypted, err := encryptCBC(c.dataKey, iv, []byte(plaintext))
	if err != nil {
		return "", err
	}
	return c.pack(iv, encrypted)
}

// Decrypt recovers the plaintext from a token produced by Encrypt. Every
// failure yields ErrInvalidToken; Decrypt never panics.
func (c *Codec) Decrypt(token string) (plain string, err error) {
	defer func() {
		if r := recover(); r != nil {
			plain, err = "", ErrInvalidToken
		}
	}()

	ciphertext, iv, err := c.Unpack(token)
	if err != nil {
		return "", ErrInvalidToken
	}
	out, err := decryptCBC(c.dataKey, iv, ciphertext)
	if err != nil {
		return "", ErrInvalidToken
	}
	return string(out), nil
}

// Unpack decrypts the marks block of token and uses it to separate the
// interleaved body back into the data ciphertext and its IV.
func (c *Codec) Unpack(token string) (ciphertext, iv string, err error) {
	if len(token) > maxTokenSize {
		return "", "", fmt.Errorf("%w: token too large", ErrUnpackFailed)
	}
	head, body, ok := strings.Cut(token, string(markSeparator))
	if !ok {
		return "", "", fmt.Errorf("%w: separator missing", ErrUnpackFailed)
	}
	if body == "" {
		return "", "", fmt.Errorf("%w: payload missing", ErrUnpackFailed)
	}
	if len(head) <= IVSize {
		return "", "", fmt.Errorf("%w: marks block too short", ErrUnpackFailed)
	}
	raw, err := decryptCBC(c.marksKey, head[:IVSize], head[IVSize:])
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrUnpackFailed, err)
	}
	marks, err := parseMarks(string(raw))
	if err != nil {
		return "", "", err
	}
	return interleaving(marks).split(body)
}

func payloadString(payload any) (string, error) {
	var s string
	switch v := payload.(type) {
	case nil:
		return "", ErrEmptyPayload
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(v); err != nil {
			return "", fmt.Errorf("encode payload: %w", err)
		}
		s = strings.TrimSuffix(buf.String(), "\n")
	}
	if s == "" {
		return "", ErrEmptyPayload
	}
	return s, nil
}
