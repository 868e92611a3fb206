// Package auth checks service API keys against configured SHA-256 hashes.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
)

// ErrInvalidAPIKey is returned for keys with no configured hash.
var ErrInvalidAPIKey = errors.New("invalid API key")

// Key is one accepted API key, stored only as its hash.
type Key struct {
	Hash        string
	Description string
}

// Principal identifies the caller behind a valid key.
type Principal struct {
	Description string
}

// Authenticator validates API keys.
type Authenticator struct {
	keys []Key
}

// NewAuthenticator creates an authenticator accepting the given keys.
func NewAuthenticator(keys []Key) *Authenticator {
	a := &Authenticator{keys: make([]Key, len(keys))}
	for i, k := range keys {
		a.keys[i] = Key{Hash: strings.ToLower(k.Hash), Description: k.Description}
	}
	return a
}

// ValidateAPIKey returns the principal for apiKey. Every configured hash is
// compared in constant time.
func (a *Authenticator) ValidateAPIKey(apiKey string) (*Principal, error) {
	keyHash := []byte(HashAPIKey(apiKey))

	var match *Principal
	for _, k := range a.keys {
		if subtle.ConstantTimeCompare(keyHash, []byte(k.Hash)) == 1 && match == nil {
			match = &Principal{Description: k.Description}
		}
	}
	if match == nil {
		return nil, ErrInvalidAPIKey
	}
	return match, nil
}

// HashAPIKey creates a SHA-256 hash of an API key for storage
func HashAPIKey(apiKey string) string {
	hash := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(hash[:])
}
