package credential

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"log"
	"math"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/go-cmp/cmp"
	xdraw "golang.org/x/image/draw"

	"github.com/youruser/emsapp/internal/employees"
	imagepkg "github.com/youruser/emsapp/internal/image"
	"github.com/youruser/emsapp/internal/pdfinfo"
)

var fixedTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// fakePhotos serves images by reference. "slow" blocks until the context
// ends; unknown references fail.
type fakePhotos map[string]image.Image

func (f fakePhotos) Load(ctx context.Context, ref string) (image.Image, error) {
	if ref == "slow" {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if img, ok := f[ref]; ok {
		return img, nil
	}
	return nil, errors.New("no such photo")
}

func newTestPipeline(t *testing.T, photos PhotoSource, fallback bool) *Pipeline {
	t.Helper()
	enc := NewEncoder()
	enc.Now = func() time.Time { return fixedTime }
	p, err := NewPipeline(Options{
		Photos:        photos,
		Encoder:       enc,
		StepTimeout:   50 * time.Millisecond,
		PhotoFallback: fallback,
		Logger:        log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func staff() []employees.Employee {
	return []employees.Employee{
		{ID: "e1", RUT: "12345678-9", FirstName: "Juan", LastName: "Pérez", Department: "Operations", Position: "Driver"},
		{ID: "e2", RUT: "9876543-2", FirstName: "Ana", LastName: "Soto", Department: "Finance", Position: "Analyst", ProfileImage: "ana"},
		{ID: "e3", RUT: "11222333-4", FirstName: "Luis", LastName: "Rojas", Department: "Operations", Position: "Driver"},
	}
}

func photos() fakePhotos {
	return fakePhotos{"ana": imaging.New(120, 160, color.NRGBA{B: 200, A: 255})}
}

type progressLog [][2]int

func (l *progressLog) record(current, total int) { *l = append(*l, [2]int{current, total}) }

func near(a, b float64) bool { return math.Abs(a-b) < 0.05 }

func TestGenerateOne(t *testing.T) {
	p := newTestPipeline(t, photos(), false)
	juan := staff()[0]
	art, err := p.GenerateOne(context.Background(), juan)
	if err != nil {
		t.Fatalf("GenerateOne: %v", err)
	}
	if art.Filename != "credential-12345678-9.pdf" || art.ContentType != "application/pdf" {
		t.Errorf("artifact = %q %q", art.Filename, art.ContentType)
	}
	want := []Page{{EmployeeID: "e1", NationalID: "12345678-9", Name: "Juan Pérez", Placeholder: true}}
	if diff := cmp.Diff(want, art.Pages); diff != "" {
		t.Errorf("pages mismatch (-want +got):\n%s", diff)
	}

	info, err := pdfinfo.Inspect(art.Bytes())
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.NumPages() != 1 {
		t.Fatalf("pages = %d", info.NumPages())
	}
	if pg := info.Pages[0]; !near(pg.WidthMM(), 85.6) || !near(pg.HeightMM(), 54) {
		t.Errorf("page size = %.2f x %.2f mm", pg.WidthMM(), pg.HeightMM())
	}
}

func TestGenerateBatch(t *testing.T) {
	p := newTestPipeline(t, photos(), false)
	var progress progressLog
	art, err := p.GenerateBatch(context.Background(), staff(), progress.record)
	if err != nil {
		t.Fatalf("GenerateBatch: %v", err)
	}
	if art.Filename != BatchFilename || art.PageCount() != 3 {
		t.Fatalf("artifact = %q with %d pages", art.Filename, art.PageCount())
	}
	ids := []string{art.Pages[0].EmployeeID, art.Pages[1].EmployeeID, art.Pages[2].EmployeeID}
	if diff := cmp.Diff([]string{"e1", "e2", "e3"}, ids); diff != "" {
		t.Errorf("page order (-want +got):\n%s", diff)
	}
	if art.Pages[1].Placeholder {
		t.Error("page with a photo marked as placeholder")
	}
	if diff := cmp.Diff(progressLog{{1, 3}, {2, 3}, {3, 3}}, progress); diff != "" {
		t.Errorf("progress (-want +got):\n%s", diff)
	}

	info, err := pdfinfo.Inspect(art.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if info.NumPages() != 3 {
		t.Fatalf("pdf pages = %d", info.NumPages())
	}
	for i, pg := range info.Pages {
		if !near(pg.WidthMM(), 85.6) || !near(pg.HeightMM(), 54) {
			t.Errorf("page %d size = %.2f x %.2f mm", i+1, pg.WidthMM(), pg.HeightMM())
		}
	}
}

func TestGenerateBatchRejectsBeforeRendering(t *testing.T) {
	incomplete := staff()
	incomplete[1].LastName = ""
	dup := staff()
	dup[2].ID = "e1"

	tests := []struct {
		name      string
		list      []employees.Employee
		wantIndex int
	}{
		{"empty", nil, -1},
		{"missing last name", incomplete, 1},
		{"duplicate id", dup, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipeline(t, photos(), false)
			var progress progressLog
			art, err := p.GenerateBatch(context.Background(), tt.list, progress.record)
			var inErr *InvalidInputError
			if !errors.As(err, &inErr) {
				t.Fatalf("err = %v, want *InvalidInputError", err)
			}
			if inErr.Index != tt.wantIndex {
				t.Errorf("index = %d, want %d", inErr.Index, tt.wantIndex)
			}
			if art != nil || len(progress) != 0 {
				t.Errorf("artifact %v, progress %v", art, progress)
			}
		})
	}
}

func TestGenerateBatchAbortsOnFailure(t *testing.T) {
	list := staff()
	list[1].ProfileImage = "missing"
	p := newTestPipeline(t, photos(), false)
	var progress progressLog
	art, err := p.GenerateBatch(context.Background(), list, progress.record)
	var compErr *imagepkg.CompositionError
	if !errors.As(err, &compErr) || compErr.Stage != "photo" {
		t.Fatalf("err = %v, want photo CompositionError", err)
	}
	if art != nil {
		t.Error("partial artifact returned")
	}
	if diff := cmp.Diff(progressLog{{1, 3}}, progress); diff != "" {
		t.Errorf("progress (-want +got):\n%s", diff)
	}
	if Classify(err) != CodeComposition {
		t.Errorf("code = %s", Classify(err))
	}
}

func TestGenerateBatchPhotoFallback(t *testing.T) {
	list := staff()
	list[1].ProfileImage = "missing"
	p := newTestPipeline(t, photos(), true)
	art, err := p.GenerateBatch(context.Background(), list, nil)
	if err != nil {
		t.Fatalf("GenerateBatch: %v", err)
	}
	if !art.Pages[1].Placeholder {
		t.Error("fallback page not marked as placeholder")
	}
}

func TestPhotoStepTimeout(t *testing.T) {
	e := staff()[0]
	e.ProfileImage = "slow"
	p := newTestPipeline(t, photos(), false)
	start := time.Now()
	_, err := p.GenerateOne(context.Background(), e)
	if Classify(err) != CodeComposition {
		t.Fatalf("err = %v, code %s", err, Classify(err))
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("timeout not applied")
	}
}

func TestGenerateBatchCancelled(t *testing.T) {
	p := newTestPipeline(t, photos(), false)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var progress progressLog
	_, err := p.GenerateBatch(ctx, staff(), func(current, total int) {
		progress.record(current, total)
		cancel()
	})
	if !errors.Is(err, context.Canceled) || Classify(err) != CodeCancel {
		t.Fatalf("err = %v", err)
	}
	if len(progress) != 1 {
		t.Errorf("progress = %v", progress)
	}
}

func TestGenerateEncodingError(t *testing.T) {
	e := staff()[0]
	e.RUT = "12345678-ñ"
	p := newTestPipeline(t, photos(), false)
	_, err := p.GenerateOne(context.Background(), e)
	var encErr *imagepkg.EncodingError
	if !errors.As(err, &encErr) || Classify(err) != CodeEncoding {
		t.Fatalf("err = %v", err)
	}
}

func TestGenerateBatchDeterministic(t *testing.T) {
	p := newTestPipeline(t, photos(), false)
	a, err := p.GenerateBatch(context.Background(), staff(), nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.GenerateBatch(context.Background(), staff(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Fatal("identical batches produced different documents")
	}
}

func TestEndToEndExample(t *testing.T) {
	e := employees.Employee{
		ID: "12345678-9", RUT: "12345678-9",
		FirstName: "Juan", LastName: "Pérez",
		Position: "Analyst", Department: "Sales",
	}
	p := newTestPipeline(t, photos(), false)

	card, err := p.RenderCard(context.Background(), e)
	if err != nil {
		t.Fatalf("RenderCard: %v", err)
	}
	if !card.Placeholder || card.Initials != "JP" {
		t.Errorf("placeholder = %v initials = %q", card.Placeholder, card.Initials)
	}

	// The barcode region holds exactly the scaled CODE128 rendering of the rut.
	bc, err := imagepkg.RenderBarcode("12345678-9", imagepkg.DefaultBarcodeOptions())
	if err != nil {
		t.Fatal(err)
	}
	want := imaging.New(imagepkg.CardWidth, imagepkg.CardHeight, color.White)
	xdraw.BiLinear.Scale(want, imagepkg.BarcodeRect, bc, bc.Bounds(), xdraw.Over, nil)
	got := card.Image()
	r := imagepkg.BarcodeRect
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if got.NRGBAAt(x, y) != want.NRGBAAt(x, y) {
				t.Fatalf("barcode pixel (%d,%d) = %v, want %v", x, y, got.NRGBAAt(x, y), want.NRGBAAt(x, y))
			}
		}
	}

	art, err := p.GenerateOne(context.Background(), e)
	if err != nil {
		t.Fatal(err)
	}
	info, err := pdfinfo.Inspect(art.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if info.NumPages() != 1 || !near(info.Pages[0].WidthMM(), 85.6) || !near(info.Pages[0].HeightMM(), 54) {
		t.Errorf("document = %+v", info.Pages)
	}
}
