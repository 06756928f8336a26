package artifacts

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	data := []byte("%PDF-1.4")
	if err := s.Put(ctx, Object{Key: "k", Filename: "a.pdf", ContentType: "application/pdf", Data: data}); err != nil {
		t.Fatal(err)
	}
	data[0] = 'X'

	obj, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if string(obj.Data) != "%PDF-1.4" || obj.CreatedAt.IsZero() {
		t.Errorf("object = %q created %v", obj.Data, obj.CreatedAt)
	}
	obj.Data[0] = 'Y'
	again, _ := s.Get(ctx, "k")
	if string(again.Data) != "%PDF-1.4" {
		t.Error("stored bytes changed through a returned object")
	}

	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Delete: %v", err)
	}
	if err := s.Delete(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete: %v", err)
	}
}
