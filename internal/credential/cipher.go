// Package credential encrypts third-party API secrets before they are stored.
//
// Values are AES-256-CBC encrypted under an operator-provided key and encoded
// as "<iv-hex>:<ciphertext-hex>". The layout must stay stable: rows written by
// earlier deployments are decrypted with it.
package credential

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
)

const (
	keySize = 32
	ivSize  = aes.BlockSize
)

var (
	// ErrInvalidKey signals a missing or malformed ENCRYPTION_KEY.
	ErrInvalidKey = errors.New("credential: encryption key must be 64 hex characters")
	// ErrMalformedSecret indicates the stored value is not "<iv-hex>:<ciphertext-hex>".
	ErrMalformedSecret = errors.New("credential: malformed encrypted secret")
	// ErrDecrypt indicates the ciphertext did not decrypt under the configured key.
	// A wrong key and corrupted data are indistinguishable.
	ErrDecrypt = errors.New("credential: decryption failed")
)

// Cipher encrypts and decrypts secret strings. The key is resolved on first
// use so processes that never touch stored tokens do not need it.
type Cipher struct {
	keyHex string

	once   sync.Once
	block  cipher.Block
	keyErr error
}

// NewCipher returns a cipher for the hex-encoded 32-byte key.
func NewCipher(keyHex string) *Cipher {
	return &Cipher{keyHex: strings.TrimSpace(keyHex)}
}

func (c *Cipher) resolve() (cipher.Block, error) {
	c.once.Do(func() {
		if c.keyHex == "" {
			c.keyErr = fmt.Errorf("%w: ENCRYPTION_KEY is not set", ErrInvalidKey)
			return
		}
		key, err := hex.DecodeString(c.keyHex)
		if err != nil {
			c.keyErr = fmt.Errorf("%w: %v", ErrInvalidKey, err)
			return
		}
		if len(key) != keySize {
			c.keyErr = fmt.Errorf("%w: got %d bytes", ErrInvalidKey, len(key))
			return
		}
		block, err := aes.NewCipher(key)
		if err != nil {
			c.keyErr = fmt.Errorf("%w: %v", ErrInvalidKey, err)
			return
		}
		c.block = block
	})
	return c.block, c.keyErr
}

// Validate forces key resolution and reports a configuration error, if any.
func (c *Cipher) Validate() error {
	_, err := c.resolve()
	return err
}

// Encrypt returns plaintext encrypted under a fresh random IV.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	block, err := c.resolve()
	if err != nil {
		return "", err
	}

	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(out), nil
}

// Decrypt reverses Encrypt.
func (c *Cipher) Decrypt(secret string) (string, error) {
	block, err := c.resolve()
	if err != nil {
		return "", err
	}

	ivHex, dataHex, ok := strings.Cut(secret, ":")
	if !ok {
		return "", fmt.Errorf("%w: missing delimiter", ErrMalformedSecret)
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != ivSize {
		return "", fmt.Errorf("%w: bad iv", ErrMalformedSecret)
	}
	data, err := hex.DecodeString(dataHex)
	if err != nil {
		return "", fmt.Errorf("%w: bad ciphertext encoding", ErrMalformedSecret)
	}
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext length %d", ErrMalformedSecret, len(data))
	}

	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, data)

	plain, err := pkcs7Unpad(out, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, ErrDecrypt
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrDecrypt
		}
	}
	return data[:len(data)-n], nil
}
