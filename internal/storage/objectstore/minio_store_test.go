package objectstore

import (
	"context"
	"strings"
	"testing"
)

func TestMinioStore_NotInitialized(t *testing.T) {
	var s *MinioStore
	ctx := context.Background()
	if err := s.Put(ctx, "b", "k", strings.NewReader("x"), 1, ""); err == nil {
		t.Fatalf("Put() expected error on nil store")
	}
	if _, err := s.List(ctx, "b", "p"); err == nil {
		t.Fatalf("List() expected error on nil store")
	}
	if _, err := NewMinioStoreWithClient(nil); err == nil {
		t.Fatalf("NewMinioStoreWithClient(nil) expected error")
	}
}
