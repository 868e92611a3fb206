package seal

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// envelopeVersion prefixes every ciphertext: version | nonce | sealed.
const envelopeVersion byte = 1

// ErrDecryption is matched by every DecryptionError.
var ErrDecryption = errors.New("seal: decryption failed")

// DecryptionError reports ciphertext that is malformed, was tampered with, or
// was sealed under a different key. Callers must not retry with other keys.
type DecryptionError struct {
	Reason string
	Err    error
}

func (e *DecryptionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("seal: decryption failed: %s: %v", e.Reason, e.Err)
	}
	return "seal: decryption failed: " + e.Reason
}

// Unwrap lets errors.Is match both ErrDecryption and the cause.
func (e *DecryptionError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrDecryption, e.Err}
	}
	return []error{ErrDecryption}
}

func newGCM(key *Key) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("seal: create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("seal: create GCM: %w", err)
	}
	return gcm, nil
}

// seal encrypts plaintext with AES-256-GCM under a fresh random nonce.
// aad binds the ciphertext to the record layout it carries.
func seal(key *Key, plaintext, aad []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 1+gcm.NonceSize(), 1+gcm.NonceSize()+len(plaintext)+gcm.Overhead())
	out[0] = envelopeVersion
	if _, err := io.ReadFull(rand.Reader, out[1:]); err != nil {
		return nil, fmt.Errorf("seal: generate nonce: %w", err)
	}
	return gcm.Seal(out, out[1:], plaintext, aad), nil
}

// open reverses seal. Every failure is a *DecryptionError.
func open(key *Key, envelope, aad []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, &DecryptionError{Reason: "bad key", Err: err}
	}

	if len(envelope) < 1+gcm.NonceSize()+gcm.Overhead() {
		return nil, &DecryptionError{Reason: "ciphertext too short"}
	}
	if envelope[0] != envelopeVersion {
		return nil, &DecryptionError{Reason: fmt.Sprintf("unsupported envelope version %d", envelope[0])}
	}

	nonce := envelope[1 : 1+gcm.NonceSize()]
	pt, err := gcm.Open(nil, nonce, envelope[1+gcm.NonceSize():], aad)
	if err != nil {
		return nil, &DecryptionError{Reason: "authentication failed"}
	}
	return pt, nil
}
