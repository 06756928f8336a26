package credential

import (
	"errors"
	"testing"

	"github.com/youruser/emsapp/internal/employees"
	imagepkg "github.com/youruser/emsapp/internal/image"
	"github.com/youruser/emsapp/internal/pdfinfo"
)

func testCard(t *testing.T, e employees.Employee) *imagepkg.CardRaster {
	t.Helper()
	c, err := imagepkg.NewComposer("")
	if err != nil {
		t.Fatal(err)
	}
	bc, err := imagepkg.RenderBarcode(e.RUT, imagepkg.DefaultBarcodeOptions())
	if err != nil {
		t.Fatal(err)
	}
	card, err := c.Compose(e, bc, nil)
	if err != nil {
		t.Fatal(err)
	}
	return card
}

func TestDocumentLifecycle(t *testing.T) {
	enc := NewEncoder()
	doc := enc.Begin()
	if _, err := doc.Finish(); err == nil {
		t.Fatal("Finish on an empty document succeeded")
	}
	if _, err := doc.Finish(); !errors.Is(err, errDocumentClosed) {
		t.Errorf("second Finish: %v", err)
	}
	if err := doc.AddPage(testCard(t, staff()[0])); !errors.Is(err, errDocumentClosed) {
		t.Errorf("AddPage after Finish: %v", err)
	}
}

func TestEncodePages(t *testing.T) {
	cards := []*imagepkg.CardRaster{testCard(t, staff()[0]), testCard(t, staff()[2])}
	data, err := NewEncoder().Encode(cards...)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	info, err := pdfinfo.Inspect(data)
	if err != nil {
		t.Fatal(err)
	}
	if info.NumPages() != 2 {
		t.Errorf("pages = %d", info.NumPages())
	}
}

func TestAddNilCard(t *testing.T) {
	doc := NewEncoder().Begin()
	var inErr *InvalidInputError
	if err := doc.AddPage(nil); !errors.As(err, &inErr) {
		t.Fatalf("err = %v", err)
	}
}
