package token

import (
	"crypto/cipher"
	"crypto/des"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
)

const (
	// CipherKeySize is the 3DES key length derived from passphrase material.
	CipherKeySize = 24
	// IVSize is the CBC initialization vector length, one 3DES block.
	IVSize = des.BlockSize
)

var errPadding = errors.New("invalid padding")

// deriveCipherKey hashes arbitrary material with SHA-256 and keeps the first 24 bytes.
func deriveCipherKey(material string) []byte {
	sum := sha256.Sum256([]byte(material))
	key := make([]byte, CipherKeySize)
	copy(key, sum[:CipherKeySize])
	return key
}

// encryptCBC encrypts plaintext with 3DES-CBC and PKCS#7 padding and returns
// standard base64 text.
func encryptCBC(key []byte, iv string, plaintext []byte) (string, error) {
	if len(iv) != IVSize {
		return "", ErrInvalidIV
	}
	block, err := des.NewTripleDESCipher(key)
	if err != nil {
		return "", err
	}

	pad := IVSize - len(plaintext)%IVSize
	staged := acquireBuffer(len(plaintext) + pad)
	defer staged.Release()
	buf := staged.Bytes()
	copy(buf, plaintext)
	for i := len(plaintext); i < len(buf); i++ {
		buf[i] = byte(pad)
	}

	out := make([]byte, len(buf))
	cipher.NewCBCEncrypter(block, []byte(iv)).CryptBlocks(out, buf)
	return base64.StdEncoding.EncodeToString(out), nil
}

// decryptCBC reverses encryptCBC.
func decryptCBC(key []byte, iv string, encoded string) ([]byte, error) {
	if len(iv) != IVSize {
		return nil, ErrInvalidIV
	}
	if len(encoded) > maxTokenSize {
		return nil, ErrInvalidToken
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}
	if len(raw) == 0 || len(raw)%IVSize != 0 {
		return nil, fmt.Errorf("ciphertext length %d is not a multiple of the block size", len(raw))
	}
	block, err := des.NewTripleDESCipher(key)
	if err != nil {
		return nil, err
	}

	staged := acquireBuffer(len(raw))
	defer staged.Release()
	buf := staged.Bytes()
	cipher.NewCBCDecrypter(block, []byte(iv)).CryptBlocks(buf, raw)

	pad := int(buf[len(buf)-1])
	if pad == 0 || pad > IVSize {
		return nil, errPadding
	}
	for _, b := range buf[len(buf)-pad:] {
		if int(b) != pad {
			return nil, errPadding
		}
	}
	out := make([]byte, len(buf)-pad)
	copy(out, buf)
	return out, nil
}
