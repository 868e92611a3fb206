package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/tjfontaine/sui-agent/internal/storage"
)

func TestStore_PutGetReplace(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.PutRef(ctx, storage.ContactRef{Owner: "0xa", Key: "mom", BlobID: "b1"}); err != nil {
		t.Fatalf("PutRef() error = %v", err)
	}
	if err := s.PutRef(ctx, storage.ContactRef{Owner: "0xa", Key: "mom", BlobID: "b2"}); err != nil {
		t.Fatalf("PutRef() error = %v", err)
	}

	ref, err := s.GetRef(ctx, "0xa", "mom")
	if err != nil {
		t.Fatalf("GetRef() error = %v", err)
	}
	if ref.BlobID != "b2" {
		t.Errorf("BlobID = %s, want b2", ref.BlobID)
	}
	if ref.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}

	if _, err := s.GetRef(ctx, "0xb", "mom"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetRef() for other owner error = %v, want ErrNotFound", err)
	}
}

func TestStore_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, k := range []string{"zed", "amy", "bob"} {
		_ = s.PutRef(ctx, storage.ContactRef{Owner: "0xa", Key: k, BlobID: "blob-" + k})
	}
	_ = s.PutRef(ctx, storage.ContactRef{Owner: "0xb", Key: "eve", BlobID: "blob-eve"})

	refs, err := s.ListRefs(ctx, "0xa")
	if err != nil {
		t.Fatalf("ListRefs() error = %v", err)
	}
	want := []string{"amy", "bob", "zed"}
	if len(refs) != len(want) {
		t.Fatalf("ListRefs() returned %d refs, want %d", len(refs), len(want))
	}
	for i, k := range want {
		if refs[i].Key != k {
			t.Errorf("refs[%d].Key = %s, want %s", i, refs[i].Key, k)
		}
	}

	if err := s.DeleteRef(ctx, "0xa", "bob"); err != nil {
		t.Fatalf("DeleteRef() error = %v", err)
	}
	if err := s.DeleteRef(ctx, "0xa", "bob"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second DeleteRef() error = %v, want ErrNotFound", err)
	}
	refs, _ = s.ListRefs(ctx, "0xa")
	if len(refs) != 2 {
		t.Errorf("ListRefs() after delete returned %d refs", len(refs))
	}
}
