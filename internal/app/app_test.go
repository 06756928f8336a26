package app

import (
	"bytes"
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/youruser/emsapp/internal/config"
	"github.com/youruser/emsapp/internal/employees"
)

func TestNewPipelineDocumentTime(t *testing.T) {
	cfg := &config.Config{
		OrgMark:      "EMS",
		Symbology:    "CODE128",
		PhotoTimeout: time.Second,
		DocumentTime: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	pipe, err := NewPipeline(cfg, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	e := employees.Employee{
		ID: "e1", RUT: "12345678-9",
		FirstName: "Juan", LastName: "Pérez",
		Position: "Analyst", Department: "Sales",
	}

	a, err := pipe.GenerateOne(context.Background(), e)
	if err != nil {
		t.Fatalf("GenerateOne: %v", err)
	}
	// PDF dates have one-second resolution.
	time.Sleep(1100 * time.Millisecond)
	b, err := pipe.GenerateOne(context.Background(), e)
	if err != nil {
		t.Fatalf("GenerateOne: %v", err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Fatal("documents differ with a fixed document time")
	}
}

func TestNewPipelineRejectsSymbology(t *testing.T) {
	cfg := &config.Config{Symbology: "EAN13"}
	if _, err := NewPipeline(cfg, log.New(io.Discard, "", 0)); err == nil {
		t.Fatal("expected error for unsupported symbology")
	}
}
