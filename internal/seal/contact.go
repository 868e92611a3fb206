package seal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/tjfontaine/sui-agent/internal/domain"
)

var (
	aadRecord = []byte("sui-agent/contact/v1")
	aadBatch  = []byte("sui-agent/contacts/v1")
)

// EncryptRecord seals a single contact under key.
func EncryptRecord(key *Key, r domain.ContactRecord) ([]byte, error) {
	pt, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("seal: encode contact: %w", err)
	}
	defer clear(pt)
	return seal(key, pt, aadRecord)
}

// DecryptRecord opens a ciphertext produced by EncryptRecord.
func DecryptRecord(key *Key, ciphertext []byte) (domain.ContactRecord, error) {
	var r domain.ContactRecord
	if err := openJSON(key, ciphertext, aadRecord, &r); err != nil {
		return domain.ContactRecord{}, err
	}
	return r, nil
}

// EncryptBatch seals an ordered list of contacts as one ciphertext.
func EncryptBatch(key *Key, records []domain.ContactRecord) ([]byte, error) {
	if records == nil {
		records = []domain.ContactRecord{}
	}
	pt, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("seal: encode contacts: %w", err)
	}
	defer clear(pt)
	return seal(key, pt, aadBatch)
}

// DecryptBatch opens a ciphertext produced by EncryptBatch, preserving order.
func DecryptBatch(key *Key, ciphertext []byte) ([]domain.ContactRecord, error) {
	var records []domain.ContactRecord
	if err := openJSON(key, ciphertext, aadBatch, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func openJSON(key *Key, ciphertext, aad []byte, v any) error {
	pt, err := open(key, ciphertext, aad)
	if err != nil {
		return err
	}
	defer clear(pt)

	dec := json.NewDecoder(bytes.NewReader(pt))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &DecryptionError{Reason: "malformed plaintext", Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return &DecryptionError{Reason: "trailing data after plaintext"}
	}
	return nil
}

// Sealer combines key derivation with the contact cipher. Each call derives
// its key and wipes it before returning.
type Sealer struct {
	deriver *Deriver
}

// NewSealer creates a Sealer.
func NewSealer(d *Deriver) *Sealer {
	return &Sealer{deriver: d}
}

// EncryptContact seals one record for identity.
func (s *Sealer) EncryptContact(identity, proof string, r domain.ContactRecord) ([]byte, error) {
	key, err := s.deriver.DeriveKey(identity, proof)
	if err != nil {
		return nil, err
	}
	defer key.wipe()
	return EncryptRecord(&key, r)
}

// DecryptContact opens one record for identity.
func (s *Sealer) DecryptContact(identity, proof string, ciphertext []byte) (domain.ContactRecord, error) {
	key, err := s.deriver.DeriveKey(identity, proof)
	if err != nil {
		return domain.ContactRecord{}, err
	}
	defer key.wipe()
	return DecryptRecord(&key, ciphertext)
}

// EncryptContacts seals a list of records for identity as one ciphertext.
func (s *Sealer) EncryptContacts(identity, proof string, records []domain.ContactRecord) ([]byte, error) {
	key, err := s.deriver.DeriveKey(identity, proof)
	if err != nil {
		return nil, err
	}
	defer key.wipe()
	return EncryptBatch(&key, records)
}

// DecryptContacts opens a batch ciphertext for identity.
func (s *Sealer) DecryptContacts(identity, proof string, ciphertext []byte) ([]domain.ContactRecord, error) {
	key, err := s.deriver.DeriveKey(identity, proof)
	if err != nil {
		return nil, err
	}
	defer key.wipe()
	return DecryptBatch(&key, ciphertext)
}
