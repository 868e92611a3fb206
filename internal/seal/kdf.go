// Package seal derives per-owner contact keys and encrypts contact records
// so only the wallet owner can read them back.
package seal

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the derived key length in bytes (AES-256).
	KeySize = 32
	// MinIterations is the lowest PBKDF2 work factor accepted.
	MinIterations = 100_000
)

var (
	// ErrProofRequired is returned when a key is requested without a proof of
	// ownership and the fallback secret is disabled.
	ErrProofRequired = errors.New("seal: proof of ownership required")
	// ErrIdentityRequired is returned for an empty identity.
	ErrIdentityRequired = errors.New("seal: identity required")
	// ErrMissingSecret is returned at construction when the salt or secret is
	// not configured.
	ErrMissingSecret = errors.New("seal: secret and salt must be configured")
)

// Config is the process-wide key derivation setup, loaded once at startup.
type Config struct {
	// Secret is mixed in place of the proof when RequireProof is false.
	Secret string
	// Salt is the fixed PBKDF2 salt.
	Salt string
	// Iterations defaults to MinIterations.
	Iterations int
	// RequireProof rejects derivations that carry no proof.
	RequireProof bool
}

// Key is a derived symmetric key. It formats and logs as redacted.
type Key [KeySize]byte

func (Key) String() string       { return "[key redacted]" }
func (Key) LogValue() slog.Value { return slog.StringValue("[key redacted]") }
func (k Key) GoString() string   { return k.String() }
func (k *Key) wipe()             { clear(k[:]) }

// Deriver turns (identity, proof) into a Key. It is immutable and safe for
// concurrent use.
type Deriver struct {
	secret       []byte
	salt         []byte
	iterations   int
	requireProof bool
}

// NewDeriver validates cfg and returns a Deriver.
func NewDeriver(cfg Config) (*Deriver, error) {
	if cfg.Salt == "" || cfg.Secret == "" {
		return nil, ErrMissingSecret
	}
	iter := cfg.Iterations
	if iter == 0 {
		iter = MinIterations
	}
	if iter < MinIterations {
		return nil, fmt.Errorf("seal: iterations %d below minimum %d", iter, MinIterations)
	}
	return &Deriver{
		secret:       []byte(cfg.Secret),
		salt:         []byte(cfg.Salt),
		iterations:   iter,
		requireProof: cfg.RequireProof,
	}, nil
}

// DeriveKey stretches "identity:proof" with PBKDF2-SHA256. The same inputs
// always yield the same key.
func (d *Deriver) DeriveKey(identity, proof string) (Key, error) {
	var key Key
	if identity == "" {
		return key, ErrIdentityRequired
	}

	material := make([]byte, 0, len(identity)+1+max(len(proof), len(d.secret)))
	material = append(material, identity...)
	material = append(material, ':')
	switch {
	case proof != "":
		material = append(material, proof...)
	case d.requireProof:
		return key, ErrProofRequired
	default:
		material = append(material, d.secret...)
	}

	derived := pbkdf2.Key(material, d.salt, d.iterations, KeySize, sha256.New)
	copy(key[:], derived)
	clear(derived)
	clear(material)
	return key, nil
}
