package employees

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	if err := s.Replace(ctx, sample()); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	list, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"1", "2", "3"}, ids(list)); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}

	created, err := s.Create(ctx, Employee{RUT: "5-5", FirstName: "Rosa", LastName: "Díaz"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("Create did not assign an id")
	}
	if _, err := s.Create(ctx, Employee{ID: "1", RUT: "x", FirstName: "x", LastName: "x"}); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate Create: %v", err)
	}

	created.Position = "Lead"
	if _, err := s.Update(ctx, created); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := s.Get(ctx, created.ID)
	if err != nil || got.Position != "Lead" {
		t.Errorf("Get after Update = %+v, %v", got, err)
	}
	if _, err := s.Update(ctx, Employee{ID: "nope"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update missing: %v", err)
	}

	if err := s.Delete(ctx, "2"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete: %v", err)
	}
	list, _ = s.List(ctx)
	if diff := cmp.Diff([]string{"1", "3", created.ID}, ids(list)); diff != "" {
		t.Errorf("after delete (-want +got):\n%s", diff)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreReplaceRejectsDuplicates(t *testing.T) {
	s := NewMemoryStore()
	list := sample()
	list[2].ID = "1"
	if err := s.Replace(context.Background(), list); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("err = %v", err)
	}
}

// Set EMS_TEST_DATABASE_URL to run against a scratch Postgres database.
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("EMS_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("EMS_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := Connect(ctx, dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Close()
	if err := EnsureSchema(ctx, pool); err != nil {
		t.Fatal(err)
	}
	exerciseStore(t, NewPostgresStore(pool))
}

func TestLookup(t *testing.T) {
	list := sample()
	if e, err := Lookup(list, "2"); err != nil || e.FirstName != "Ana" {
		t.Errorf("by id = %+v, %v", e, err)
	}
	if e, err := Lookup(list, "11222333-4"); err != nil || e.ID != "3" {
		t.Errorf("by rut = %+v, %v", e, err)
	}
	if _, err := Lookup(list, "0"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing: %v", err)
	}
}
