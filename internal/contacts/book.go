// Package contacts is the encrypted address book. Records are sealed per
// owner, written to a blob store, and indexed by contact key.
package contacts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/sui-agent/internal/blob"
	"github.com/tjfontaine/sui-agent/internal/domain"
	"github.com/tjfontaine/sui-agent/internal/seal"
	"github.com/tjfontaine/sui-agent/internal/storage"
)

var (
	// ErrNotFound is returned when the owner has no contact under a key or name.
	ErrNotFound = errors.New("contacts: not found")
	// ErrInvalidContact is returned for records that cannot be saved.
	ErrInvalidContact = errors.New("contacts: invalid contact")
)

// Book stores and retrieves encrypted contacts.
type Book struct {
	sealer *seal.Sealer
	blobs  blob.Store
	index  storage.ContactIndex
	logger *slog.Logger
	tracer trace.Tracer

	// mu serialises writes so the proof check and the index update see the
	// same book.
	mu sync.Mutex
}

// NewBook wires a Book. A nil logger uses slog.Default().
func NewBook(sealer *seal.Sealer, blobs blob.Store, index storage.ContactIndex, logger *slog.Logger) *Book {
	if logger == nil {
		logger = slog.Default()
	}
	return &Book{
		sealer: sealer,
		blobs:  blobs,
		index:  index,
		logger: logger,
		tracer: otel.Tracer("github.com/tjfontaine/sui-agent/internal/contacts"),
	}
}

func (b *Book) start(ctx context.Context, name string) (context.Context, trace.Span) {
	return b.tracer.Start(ctx, name)
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// Save encrypts rec for owner and makes it the current record under its
// normalised key. It returns the new blob id.
func (b *Book) Save(ctx context.Context, owner, proof string, rec domain.ContactRecord) (string, error) {
	ctx, span := b.start(ctx, "contacts.Save")
	defer span.End()

	rec.Key = domain.NormalizeContactKey(rec.Key)
	rec.DisplayName = strings.TrimSpace(rec.DisplayName)
	rec.Address = strings.TrimSpace(rec.Address)
	if err := validate(rec); err != nil {
		return "", fail(span, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.authorize(ctx, owner, proof, rec.Key); err != nil {
		return "", fail(span, err)
	}

	ct, err := b.sealer.EncryptContact(owner, proof, rec)
	if err != nil {
		return "", fail(span, err)
	}
	id, err := b.blobs.Put(ctx, ct)
	if err != nil {
		return "", fail(span, fmt.Errorf("contacts: store ciphertext: %w", err))
	}
	if err := b.index.PutRef(ctx, storage.ContactRef{Owner: owner, Key: rec.Key, BlobID: id}); err != nil {
		return "", fail(span, fmt.Errorf("contacts: index contact: %w", err))
	}

	b.logger.Info("contact saved", slog.String("blob_id", id), slog.Int("size", len(ct)))
	return id, nil
}

// authorize checks that proof opens the owner's existing book before a write.
// The record under key is tried first, then any other record. An owner with
// no contacts accepts the proof of their first save.
func (b *Book) authorize(ctx context.Context, owner, proof, key string) error {
	ref, err := b.index.GetRef(ctx, owner, key)
	if errors.Is(err, storage.ErrNotFound) {
		refs, lerr := b.index.ListRefs(ctx, owner)
		if lerr != nil {
			return fmt.Errorf("contacts: list: %w", lerr)
		}
		if len(refs) == 0 {
			return nil
		}
		ref, err = refs[0], nil
	}
	if err != nil {
		return fmt.Errorf("contacts: lookup: %w", err)
	}
	_, err = b.open(ctx, owner, proof, ref)
	return err
}

func validate(rec domain.ContactRecord) error {
	switch {
	case rec.Key == "" || strings.ContainsAny(rec.Key, " \t\n"):
		return fmt.Errorf("%w: key must be a single lowercase word", ErrInvalidContact)
	case rec.DisplayName == "":
		return fmt.Errorf("%w: name is required", ErrInvalidContact)
	case !domain.IsAddress(rec.Address):
		return fmt.Errorf("%w: address must start with %s", ErrInvalidContact, domain.AddressPrefix)
	}
	return nil
}

// Get decrypts the contact stored under key.
func (b *Book) Get(ctx context.Context, owner, proof, key string) (domain.ContactRecord, error) {
	ctx, span := b.start(ctx, "contacts.Get")
	defer span.End()

	rec, err := b.get(ctx, owner, proof, domain.NormalizeContactKey(key))
	if err != nil {
		return domain.ContactRecord{}, fail(span, err)
	}
	return rec, nil
}

func (b *Book) get(ctx context.Context, owner, proof, key string) (domain.ContactRecord, error) {
	ref, err := b.index.GetRef(ctx, owner, key)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.ContactRecord{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return domain.ContactRecord{}, fmt.Errorf("contacts: lookup: %w", err)
	}
	return b.open(ctx, owner, proof, ref)
}

func (b *Book) open(ctx context.Context, owner, proof string, ref storage.ContactRef) (domain.ContactRecord, error) {
	ct, err := b.blobs.Get(ctx, ref.BlobID)
	if err != nil {
		return domain.ContactRecord{}, fmt.Errorf("contacts: fetch ciphertext: %w", err)
	}
	rec, err := b.sealer.DecryptContact(owner, proof, ct)
	if err != nil {
		return domain.ContactRecord{}, err
	}
	if rec.Key != ref.Key {
		return domain.ContactRecord{}, &seal.DecryptionError{Reason: "record does not match its index key"}
	}
	return rec, nil
}

// List decrypts every contact of owner in key order. The first record that
// fails to decrypt aborts the listing.
func (b *Book) List(ctx context.Context, owner, proof string) ([]domain.ContactRecord, error) {
	ctx, span := b.start(ctx, "contacts.List")
	defer span.End()

	refs, err := b.index.ListRefs(ctx, owner)
	if err != nil {
		return nil, fail(span, fmt.Errorf("contacts: list: %w", err))
	}
	span.SetAttributes(attribute.Int("contacts.count", len(refs)))

	out := make([]domain.ContactRecord, 0, len(refs))
	for _, ref := range refs {
		rec, err := b.open(ctx, owner, proof, ref)
		if err != nil {
			return nil, fail(span, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Resolve returns the address for a contact named by key or by display name.
func (b *Book) Resolve(ctx context.Context, owner, proof, name string) (string, error) {
	ctx, span := b.start(ctx, "contacts.Resolve")
	defer span.End()

	rec, err := b.get(ctx, owner, proof, domain.NormalizeContactKey(name))
	if err == nil {
		return rec.Address, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", fail(span, err)
	}

	all, err := b.List(ctx, owner, proof)
	if err != nil {
		return "", fail(span, err)
	}
	for _, rec := range all {
		if strings.EqualFold(rec.DisplayName, strings.TrimSpace(name)) {
			return rec.Address, nil
		}
	}
	return "", fail(span, fmt.Errorf("%w: %s", ErrNotFound, name))
}

// Delete drops the contact under key from the index once proof opens it.
// The ciphertext blob is left to expire in the blob store.
func (b *Book) Delete(ctx context.Context, owner, proof, key string) error {
	ctx, span := b.start(ctx, "contacts.Delete")
	defer span.End()

	key = domain.NormalizeContactKey(key)
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.get(ctx, owner, proof, key); err != nil {
		return fail(span, err)
	}
	err := b.index.DeleteRef(ctx, owner, key)
	if errors.Is(err, storage.ErrNotFound) {
		return fail(span, fmt.Errorf("%w: %s", ErrNotFound, key))
	}
	if err != nil {
		return fail(span, fmt.Errorf("contacts: delete: %w", err))
	}
	b.logger.Info("contact deleted")
	return nil
}

// Export seals the owner's whole book as one ciphertext and returns its blob id.
func (b *Book) Export(ctx context.Context, owner, proof string) (string, error) {
	ctx, span := b.start(ctx, "contacts.Export")
	defer span.End()

	records, err := b.List(ctx, owner, proof)
	if err != nil {
		return "", fail(span, err)
	}
	ct, err := b.sealer.EncryptContacts(owner, proof, records)
	if err != nil {
		return "", fail(span, err)
	}
	id, err := b.blobs.Put(ctx, ct)
	if err != nil {
		return "", fail(span, fmt.Errorf("contacts: store export: %w", err))
	}
	return id, nil
}

// Import restores a book written by Export, saving each record individually.
// It returns the number of contacts imported.
func (b *Book) Import(ctx context.Context, owner, proof, blobID string) (int, error) {
	ctx, span := b.start(ctx, "contacts.Import")
	defer span.End()

	ct, err := b.blobs.Get(ctx, blobID)
	if err != nil {
		return 0, fail(span, fmt.Errorf("contacts: fetch export: %w", err))
	}
	records, err := b.sealer.DecryptContacts(owner, proof, ct)
	if err != nil {
		return 0, fail(span, err)
	}
	for i, rec := range records {
		if _, err := b.Save(ctx, owner, proof, rec); err != nil {
			return i, fail(span, err)
		}
	}
	return len(records), nil
}
