package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// ErrMalformed is returned by Open when the sealed value cannot be decoded
// or fails authentication.
var ErrMalformed = errors.New("sealed value is malformed")

// Sealer protects short secrets (API tokens) before they are written to a
// browser cookie. The label is bound as additional data so a value sealed for
// one purpose cannot be replayed under another.
type Sealer interface {
	Seal(label, plaintext string) (string, error)
	Open(label, sealed string) (string, error)
}

// Plain stores values as-is. Used when TOKEN_ENCRYPTION_KEY is unset.
type Plain struct{}

func (Plain) Seal(_, plaintext string) (string, error) { return plaintext, nil }
func (Plain) Open(_, sealed string) (string, error)    { return sealed, nil }

type AESGCM struct {
	gcm cipher.AEAD
}

// NewAESGCM expects a 64-character hex key (AES-256).
func NewAESGCM(hexKey string) (*AESGCM, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &AESGCM{gcm: gcm}, nil
}

// NewSealer picks AES-GCM when a key is configured and Plain otherwise.
func NewSealer(hexKey string) (Sealer, error) {
	if hexKey == "" {
		return Plain{}, nil
	}
	return NewAESGCM(hexKey)
}

func (c *AESGCM) Seal(label, plaintext string) (string, error) {
	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	// nonce || ciphertext || tag
	sealed := c.gcm.Seal(nonce, nonce, []byte(plaintext), []byte(label))
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (c *AESGCM) Open(label, sealed string) (string, error) {
	buffer, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	nonceSize := c.gcm.NonceSize()
	if len(buffer) < nonceSize {
		return "", fmt.Errorf("%w: too short", ErrMalformed)
	}

	nonce, body := buffer[:nonceSize], buffer[nonceSize:]
	plain, err := c.gcm.Open(nil, nonce, body, []byte(label))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	return string(plain), nil
}
