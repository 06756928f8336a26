package credential

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	imagepkg "github.com/youruser/emsapp/internal/image"
)

const ContentType = "application/pdf"

var errDocumentClosed = errors.New("document already finished")

// Encoder turns card rasters into a PDF with one page per card, each page
// the physical card size.
type Encoder struct {
	WidthMM  float64
	HeightMM float64
	Quality  int
	Title    string
	// Now stamps the creation and modification dates. Fix it to get
	// byte-identical output for identical input.
	Now func() time.Time
}

func NewEncoder() *Encoder {
	return &Encoder{
		WidthMM:  imagepkg.CardWidthMM,
		HeightMM: imagepkg.CardHeightMM,
		Quality:  95,
		Title:    "Employee credentials",
		Now:      time.Now,
	}
}

// Document accumulates pages in append order. It is not safe for concurrent
// use.
type Document struct {
	enc   *Encoder
	pdf   *fpdf.Fpdf
	pages int
	done  bool
}

func (e *Encoder) Begin() *Document {
	// The page size carries the landscape geometry, so the orientation is
	// left at "P" to stop fpdf from swapping width and height.
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: e.WidthMM, Ht: e.HeightMM},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCompression(true)
	pdf.SetCatalogSort(true)
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	ts := now().UTC()
	pdf.SetCreationDate(ts)
	pdf.SetModificationDate(ts)
	if e.Title != "" {
		pdf.SetTitle(e.Title, true)
	}
	pdf.SetCreator("emsapp", true)
	return &Document{enc: e, pdf: pdf}
}

// AddPage appends card as a full-bleed page.
func (d *Document) AddPage(card *imagepkg.CardRaster) error {
	if d.done {
		return errDocumentClosed
	}
	if card == nil {
		return &InvalidInputError{Reason: "nil card", Index: d.pages}
	}
	var jpg bytes.Buffer
	if err := card.EncodeJPEG(&jpg, d.enc.Quality); err != nil {
		return &imagepkg.CompositionError{Stage: "encode", Err: err}
	}
	name := fmt.Sprintf("card-%d", d.pages)
	opt := fpdf.ImageOptions{ImageType: "JPG"}
	d.pdf.AddPage()
	d.pdf.RegisterImageOptionsReader(name, opt, &jpg)
	d.pdf.ImageOptions(name, 0, 0, d.enc.WidthMM, d.enc.HeightMM, false, opt, 0, "")
	if err := d.pdf.Error(); err != nil {
		return fmt.Errorf("add page %d: %w", d.pages+1, err)
	}
	d.pages++
	return nil
}

func (d *Document) Pages() int { return d.pages }

// Finish writes the document and returns its bytes. The Document cannot be
// used afterwards.
func (d *Document) Finish() ([]byte, error) {
	if d.done {
		return nil, errDocumentClosed
	}
	d.done = true
	if d.pages == 0 {
		return nil, &InvalidInputError{Reason: "document has no pages", Index: -1}
	}
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// Encode is Begin, AddPage for each card, Finish.
func (e *Encoder) Encode(cards ...*imagepkg.CardRaster) ([]byte, error) {
	doc := e.Begin()
	for _, c := range cards {
		if err := doc.AddPage(c); err != nil {
			return nil, err
		}
	}
	return doc.Finish()
}
