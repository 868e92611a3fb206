package seal

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/tjfontaine/sui-agent/internal/domain"
)

func testConfig() Config {
	return Config{Secret: "test-secret", Salt: "test-salt", RequireProof: true}
}

func mustDeriver(t *testing.T, cfg Config) *Deriver {
	t.Helper()
	d, err := NewDeriver(cfg)
	if err != nil {
		t.Fatalf("NewDeriver() error = %v", err)
	}
	return d
}

func mustKey(t *testing.T, d *Deriver, identity, proof string) Key {
	t.Helper()
	k, err := d.DeriveKey(identity, proof)
	if err != nil {
		t.Fatalf("DeriveKey() error = %v", err)
	}
	return k
}

func ptr(s string) *string { return &s }

func TestNewDeriver(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{"defaults", Config{Secret: "s", Salt: "x"}, nil},
		{"missing salt", Config{Secret: "s"}, ErrMissingSecret},
		{"missing secret", Config{Salt: "x"}, ErrMissingSecret},
		{"explicit iterations", Config{Secret: "s", Salt: "x", Iterations: 200_000}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDeriver(tt.cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewDeriver() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := NewDeriver(Config{Secret: "s", Salt: "x", Iterations: 1000}); err == nil {
		t.Error("expected an error for a weak iteration count")
	}
}

func TestDeriveKey(t *testing.T) {
	d := mustDeriver(t, testConfig())

	k1 := mustKey(t, d, "0xabc", "sig-1")
	k2 := mustKey(t, d, "0xabc", "sig-1")
	if k1 != k2 {
		t.Error("same inputs produced different keys")
	}
	if k1 == mustKey(t, d, "0xabc", "sig-2") {
		t.Error("different proofs produced the same key")
	}
	if k1 == mustKey(t, d, "0xabd", "sig-1") {
		t.Error("different identities produced the same key")
	}

	if _, err := d.DeriveKey("0xabc", ""); !errors.Is(err, ErrProofRequired) {
		t.Errorf("DeriveKey() without proof error = %v, want ErrProofRequired", err)
	}
	if _, err := d.DeriveKey("", "sig"); !errors.Is(err, ErrIdentityRequired) {
		t.Errorf("DeriveKey() without identity error = %v, want ErrIdentityRequired", err)
	}
}

func TestDeriveKey_SecretFallback(t *testing.T) {
	cfg := testConfig()
	cfg.RequireProof = false
	d := mustDeriver(t, cfg)

	fallback := mustKey(t, d, "0xabc", "")
	if fallback != mustKey(t, d, "0xabc", cfg.Secret) {
		t.Error("fallback key should equal a key derived with the secret as proof")
	}
}

func TestKey_Redacted(t *testing.T) {
	k := Key{1, 2, 3}
	for _, s := range []string{k.String(), fmt.Sprintf("%v", k), fmt.Sprintf("%#v", k), k.LogValue().String()} {
		if s != "[key redacted]" {
			t.Errorf("key rendered as %q", s)
		}
	}
}

func TestRecordRoundTrip(t *testing.T) {
	d := mustDeriver(t, testConfig())
	key := mustKey(t, d, "0xabc", "sig")

	tests := []domain.ContactRecord{
		{Key: "mom", DisplayName: "Mom", Address: "0x1"},
		{Key: "boss", DisplayName: "The Boss", Address: "0x2", Notes: ptr("pays on fridays")},
		{Key: "empty-notes", DisplayName: "E", Address: "0x3", Notes: ptr("")},
	}
	for _, rec := range tests {
		t.Run(rec.Key, func(t *testing.T) {
			ct, err := EncryptRecord(&key, rec)
			if err != nil {
				t.Fatalf("EncryptRecord() error = %v", err)
			}
			if strings.Contains(string(ct), rec.DisplayName) {
				t.Error("ciphertext contains plaintext name")
			}
			got, err := DecryptRecord(&key, ct)
			if err != nil {
				t.Fatalf("DecryptRecord() error = %v", err)
			}
			if !reflect.DeepEqual(got, rec) {
				t.Errorf("round trip = %+v, want %+v", got, rec)
			}
		})
	}
}

func TestBatchRoundTrip(t *testing.T) {
	d := mustDeriver(t, testConfig())
	key := mustKey(t, d, "0xabc", "sig")

	records := []domain.ContactRecord{
		{Key: "zed", DisplayName: "Zed", Address: "0x9"},
		{Key: "amy", DisplayName: "Amy", Address: "0x1", Notes: ptr("n")},
	}
	ct, err := EncryptBatch(&key, records)
	if err != nil {
		t.Fatalf("EncryptBatch() error = %v", err)
	}
	got, err := DecryptBatch(&key, ct)
	if err != nil {
		t.Fatalf("DecryptBatch() error = %v", err)
	}
	if !reflect.DeepEqual(got, records) {
		t.Errorf("DecryptBatch() = %+v, want %+v", got, records)
	}

	empty, err := EncryptBatch(&key, nil)
	if err != nil {
		t.Fatalf("EncryptBatch(nil) error = %v", err)
	}
	got, err = DecryptBatch(&key, empty)
	if err != nil || len(got) != 0 {
		t.Errorf("DecryptBatch(empty) = %v, %v", got, err)
	}
}

func TestModesAreNotInterchangeable(t *testing.T) {
	d := mustDeriver(t, testConfig())
	key := mustKey(t, d, "0xabc", "sig")

	single, _ := EncryptRecord(&key, domain.ContactRecord{Key: "a", DisplayName: "A", Address: "0x1"})
	if _, err := DecryptBatch(&key, single); !errors.Is(err, ErrDecryption) {
		t.Errorf("DecryptBatch(single) error = %v, want ErrDecryption", err)
	}
	batch, _ := EncryptBatch(&key, []domain.ContactRecord{{Key: "a"}})
	if _, err := DecryptRecord(&key, batch); !errors.Is(err, ErrDecryption) {
		t.Errorf("DecryptRecord(batch) error = %v, want ErrDecryption", err)
	}
}

func TestDecrypt_Malformed(t *testing.T) {
	key := Key{7}
	tests := map[string][]byte{
		"nil":         nil,
		"short":       {envelopeVersion, 1, 2, 3},
		"bad version": append([]byte{9}, make([]byte, 40)...),
	}
	for name, ct := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecryptRecord(&key, ct)
			var de *DecryptionError
			if !errors.As(err, &de) {
				t.Fatalf("error = %v, want *DecryptionError", err)
			}
			if !errors.Is(err, ErrDecryption) {
				t.Error("DecryptionError does not match ErrDecryption")
			}
		})
	}
}

func TestDecrypt_TrailingData(t *testing.T) {
	key := Key{7}
	tests := map[string]string{
		"second value":  `{"key":"a","name":"A","address":"0x1"} {"key":"b"}`,
		"stray brace":   `{"key":"a","name":"A","address":"0x1"}}`,
		"garbage":       `{"key":"a","name":"A","address":"0x1"}xyz`,
		"trailing list": `{"key":"a","name":"A","address":"0x1"}[]`,
	}
	for name, pt := range tests {
		t.Run(name, func(t *testing.T) {
			ct, err := seal(&key, []byte(pt), aadRecord)
			if err != nil {
				t.Fatalf("seal() error = %v", err)
			}
			if _, err := DecryptRecord(&key, ct); !errors.Is(err, ErrDecryption) {
				t.Errorf("DecryptRecord() error = %v, want ErrDecryption", err)
			}
		})
	}

	ct, err := seal(&key, []byte(`{"key":"a","name":"A","address":"0x1"}`+"\n"), aadRecord)
	if err != nil {
		t.Fatalf("seal() error = %v", err)
	}
	if _, err := DecryptRecord(&key, ct); err != nil {
		t.Errorf("trailing whitespace rejected: %v", err)
	}
}

func TestSealer(t *testing.T) {
	s := NewSealer(mustDeriver(t, testConfig()))
	rec := domain.ContactRecord{Key: "mom", DisplayName: "Mom", Address: "0x1"}

	ct, err := s.EncryptContact("0xabc", "sig", rec)
	if err != nil {
		t.Fatalf("EncryptContact() error = %v", err)
	}
	got, err := s.DecryptContact("0xabc", "sig", ct)
	if err != nil || got != rec {
		t.Fatalf("DecryptContact() = %+v, %v", got, err)
	}
	if _, err := s.DecryptContact("0xabc", "other-sig", ct); !errors.Is(err, ErrDecryption) {
		t.Errorf("wrong proof error = %v, want ErrDecryption", err)
	}
	if _, err := s.EncryptContact("0xabc", "", rec); !errors.Is(err, ErrProofRequired) {
		t.Errorf("missing proof error = %v, want ErrProofRequired", err)
	}

	batch, err := s.EncryptContacts("0xabc", "sig", []domain.ContactRecord{rec})
	if err != nil {
		t.Fatalf("EncryptContacts() error = %v", err)
	}
	list, err := s.DecryptContacts("0xabc", "sig", batch)
	if err != nil || len(list) != 1 || list[0] != rec {
		t.Fatalf("DecryptContacts() = %+v, %v", list, err)
	}
}

func genRecord() gopter.Gen {
	return gopter.CombineGens(
		gen.Identifier(),
		gen.AnyString(),
		gen.AlphaString(),
		gen.PtrOf(gen.AnyString()),
	).Map(func(v []any) domain.ContactRecord {
		return domain.ContactRecord{
			Key:         v[0].(string),
			DisplayName: v[1].(string),
			Address:     "0x" + v[2].(string),
			Notes:       v[3].(*string),
		}
	})
}

func TestProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 25
	properties := gopter.NewProperties(parameters)

	d := mustDeriver(t, testConfig())

	properties.Property("derivation is deterministic", prop.ForAll(
		func(identity, proof string) bool {
			k1, err1 := d.DeriveKey(identity, proof)
			k2, err2 := d.DeriveKey(identity, proof)
			return err1 == nil && err2 == nil && k1 == k2
		},
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
		gen.AnyString().SuchThat(func(s string) bool { return s != "" }),
	))

	key := mustKey(t, d, "0xowner", "sig")
	otherKey := mustKey(t, d, "0xowner", "another-sig")

	properties.Property("decrypt inverts encrypt", prop.ForAll(
		func(rec domain.ContactRecord) bool {
			ct, err := EncryptRecord(&key, rec)
			if err != nil {
				return false
			}
			got, err := DecryptRecord(&key, ct)
			return err == nil && reflect.DeepEqual(got, rec)
		},
		genRecord(),
	))

	properties.Property("any flipped byte is detected", prop.ForAll(
		func(rec domain.ContactRecord, pos int, bit uint8) bool {
			ct, err := EncryptRecord(&key, rec)
			if err != nil {
				return false
			}
			i := pos % len(ct)
			ct[i] ^= 1 << (bit % 8)
			_, err = DecryptRecord(&key, ct)
			return errors.Is(err, ErrDecryption)
		},
		genRecord(),
		gen.IntRange(0, 1<<20),
		gen.UInt8(),
	))

	properties.Property("a key from another proof is rejected", prop.ForAll(
		func(rec domain.ContactRecord) bool {
			ct, err := EncryptRecord(&key, rec)
			if err != nil {
				return false
			}
			_, err = DecryptRecord(&otherKey, ct)
			return errors.Is(err, ErrDecryption)
		},
		genRecord(),
	))

	properties.TestingRun(t)
}
