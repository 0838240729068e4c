package file

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceLen = 24

var ErrUnsealFailed = errors.New("can't unseal data: wrong key or corrupted content")

type Sealer interface {
	Seal(plain []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// SecretboxSealer encrypts data with NaCl secretbox
// Output layout: nonce (24 bytes) followed by the sealed box
type SecretboxSealer struct {
	key [32]byte
}

// NewSecretboxSealer derives the box key from an arbitrary secret string
func NewSecretboxSealer(secret string) (*SecretboxSealer, error) {
	if secret == "" {
		return nil, errors.New("secret must not be empty")
	}

	return &SecretboxSealer{key: sha256.Sum256([]byte(secret))}, nil
}

func (s *SecretboxSealer) Seal(plain []byte) ([]byte, error) {
	var nonce [nonceLen]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("error while generating nonce. Err: %w", err)
	}

	return secretbox.Seal(nonce[:], plain, &nonce, &s.key), nil
}

func (s *SecretboxSealer) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < nonceLen+secretbox.Overhead {
		return nil, ErrUnsealFailed
	}

	var nonce [nonceLen]byte
	copy(nonce[:], sealed[:nonceLen])

	plain, ok := secretbox.Open(nil, sealed[nonceLen:], &nonce, &s.key)
	if !ok {
		return nil, ErrUnsealFailed
	}

	return plain, nil
}
