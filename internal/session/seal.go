// Copyright (c) 2026 Repleo
// BounCA - certificate authority console client
// This source code is licensed under the MIT license found in the LICENSE file.

package session

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

// Persisted tokens are sealed at rest: key derived from the per-install
// secret with scrypt, payload boxed with NaCl secretbox. Layout is
// salt(16) || nonce(24) || box.
const (
	sealSaltLen  = 16
	sealNonceLen = 24
)

func deriveSealKey(secret, salt []byte) (*[32]byte, error) {
	raw, err := scrypt.Key(secret, salt, 1<<15, 8, 1, 32)
	if err != nil {
		return nil, err
	}
	var key [32]byte
	copy(key[:], raw)
	return &key, nil
}

func sealToken(secret []byte, token string) ([]byte, error) {
	salt := make([]byte, sealSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	var nonce [sealNonceLen]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	key, err := deriveSealKey(secret, salt)
	if err != nil {
		return nil, fmt.Errorf("failed to derive sealing key: %w", err)
	}

	out := make([]byte, 0, sealSaltLen+sealNonceLen+len(token)+secretbox.Overhead)
	out = append(out, salt...)
	out = append(out, nonce[:]...)
	return secretbox.Seal(out, []byte(token), &nonce, key), nil
}

func openToken(secret, sealed []byte) (string, error) {
	if len(sealed) < sealSaltLen+sealNonceLen+secretbox.Overhead {
		return "", errors.New("sealed token too short")
	}
	salt := sealed[:sealSaltLen]
	var nonce [sealNonceLen]byte
	copy(nonce[:], sealed[sealSaltLen:sealSaltLen+sealNonceLen])
	key, err := deriveSealKey(secret, salt)
	if err != nil {
		return "", fmt.Errorf("failed to derive sealing key: %w", err)
	}
	plain, ok := secretbox.Open(nil, sealed[sealSaltLen+sealNonceLen:], &nonce, key)
	if !ok {
		return "", errors.New("sealed token failed to open")
	}
	return string(plain), nil
}
