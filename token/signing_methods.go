package token

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Canonicalizer flattens request parameters into the stable string that is
// embedded in a signed message. Semantically equal inputs must produce the
// same string regardless of key order.
type Canonicalizer interface {
	Canonical(params any) (string, error)
}

// CanonicalizerFunc adapts a function to Canonicalizer.
type CanonicalizerFunc func(params any) (string, error)

func (f CanonicalizerFunc) Canonical(params any) (string, error) { return f(params) }

// JSONCanonicalizer passes strings through and JSON encodes everything else.
// Map keys are emitted in sorted order.
type JSONCanonicalizer struct{}

func (JSONCanonicalizer) Canonical(params any) (string, error) {
	switch v := params.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(params); err != nil {
		return "", fmt.Errorf("canonicalize params: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// Signer produces and checks HMAC-SHA256 signatures bound to a time window.
// The signed message is "<params>|<challenge>|<window>" and the signature is
// the lower-case hex digest.
type Signer struct {
	now    func() time.Time
	window time.Duration
	drift  int
	canon  Canonicalizer
}

// NewSigner returns a Signer with a 10 second window and one window of past drift.
func NewSigner(opts ...Option) *Signer {
	o := applyOptions(opts...)
	return &Signer{
		now:    o.now,
		window: o.window,
		drift:  o.drift,
		canon:  o.canon,
	}
}

// Window returns the current window number, floor(unix time / window length).
func (s *Signer) Window() int64 {
	ms := s.now().UnixMilli()
	w := s.window.Milliseconds()
	q := ms / w
	if ms%w != 0 && ms < 0 {
		q--
	}
	return q
}

// Sign signs params and challenge for the current window.
func (s *Signer) Sign(derivedKey, challenge string, params any) (string, error) {
	return s.SignWindow(derivedKey, challenge, params, s.Window())
}

// SignWindow signs for an explicit window, letting callers pre-commit to one.
func (s *Signer) SignWindow(derivedKey, challenge string, params any, window int64) (string, error) {
	key, data, err := s.prepare(derivedKey, params)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(s.mac(key, data, challenge, window)), nil
}

// Verify reports whether signature is valid for the current window or, when
// allowDrift is set, for one of the preceding drift windows. Future windows
// are never accepted. A mismatch is (false, nil); errors are reserved for
// malformed keys and params.
func (s *Signer) Verify(derivedKey, challenge string, params any, signature string, allowDrift bool) (bool, error) {
	key, data, err := s.prepare(derivedKey, params)
	if err != nil {
		return false, err
	}
	got, err := hex.DecodeString(signature)
	if err != nil || len(got) != sha256.Size {
		return false, nil
	}

	now := s.Window()
	if hmac.Equal(got, s.mac(key, data, challenge, now)) {
		return true, nil
	}
	if !allowDrift {
		return false, nil
	}
	for i := 1; i <= s.drift; i++ {
		if hmac.Equal(got, s.mac(key, data, challenge, now-int64(i))) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Signer) prepare(derivedKey string, params any) ([]byte, string, error) {
	key, err := UnpackKey(derivedKey)
	if err != nil {
		return nil, "", err
	}
	data, err := s.canon.Canonical(params)
	if err != nil {
		return nil, "", err
	}
	return key, data, nil
}

func (s *Signer) mac(key []byte, data, challenge string, window int64) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	h.Write([]byte{'|'})
	h.Write([]byte(challenge))
	h.Write([]byte{'|'})
	h.Write([]byte(strconv.FormatInt(window, 10)))
	return h.Sum(nil)
}
