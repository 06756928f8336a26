package imagepkg

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"io"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	xdraw "golang.org/x/image/draw"

	"github.com/youruser/emsapp/internal/employees"
)

// Physical card size (ID-1) and its raster at 300 DPI.
const (
	CardWidthMM  = 85.6
	CardHeightMM = 54.0
	CardDPI      = 300
	CardWidth    = 1016
	CardHeight   = 642
)

// DefaultOrgMark is printed top-left when no organization mark is configured.
const DefaultOrgMark = "EMS"

var (
	PhotoRect   = image.Rect(40, 100, 240, 300)
	BarcodeRect = image.Rect(40, 320, 480, 420)
)

var (
	markColor        = color.NRGBA{R: 0x1e, G: 0x40, B: 0xaf, A: 0xff}
	nameColor        = color.NRGBA{R: 0x11, G: 0x18, B: 0x27, A: 0xff}
	detailColor      = color.NRGBA{R: 0x4b, G: 0x55, B: 0x63, A: 0xff}
	placeholderColor = color.NRGBA{R: 0xe5, G: 0xe7, B: 0xeb, A: 0xff}
	initialsColor    = color.NRGBA{R: 0x9c, G: 0xa3, B: 0xaf, A: 0xff}
)

var errNoBarcode = errors.New("missing barcode image")

// CardRaster is one composed credential face. It is never modified after
// Compose returns it.
type CardRaster struct {
	img *image.NRGBA

	EmployeeID string
	NationalID string
	// Placeholder is set when the initials were drawn instead of a photo.
	Placeholder bool
	Initials    string
}

// Image returns a copy of the raster.
func (c *CardRaster) Image() *image.NRGBA { return imaging.Clone(c.img) }

func (c *CardRaster) Bounds() image.Rectangle { return c.img.Bounds() }

func (c *CardRaster) EncodeJPEG(w io.Writer, quality int) error {
	return imaging.Encode(w, c.img, imaging.JPEG, imaging.JPEGQuality(quality))
}

func (c *CardRaster) EncodePNG(w io.Writer) error {
	return imaging.Encode(w, c.img, imaging.PNG)
}

// Composer lays out credentials on a fixed 1016x642 canvas.
type Composer struct {
	OrgMark string
}

func NewComposer(orgMark string) (*Composer, error) {
	if orgMark == "" {
		orgMark = DefaultOrgMark
	}
	if _, err := loadFonts(); err != nil {
		return nil, err
	}
	return &Composer{OrgMark: orgMark}, nil
}

// Compose builds the card for e. photo may be nil, in which case the photo
// square is outlined and filled with the employee's initials.
func (c *Composer) Compose(e employees.Employee, barcode image.Image, photo image.Image) (*CardRaster, error) {
	if barcode == nil {
		return nil, &CompositionError{Stage: "barcode", Err: errNoBarcode}
	}
	faces, err := openFaces()
	if err != nil {
		return nil, &CompositionError{Stage: "text", Err: err}
	}
	defer faces.close()

	mark := c.OrgMark
	if mark == "" {
		mark = DefaultOrgMark
	}

	canvas := imaging.New(CardWidth, CardHeight, color.White)
	drawText(canvas, faces.mark, markColor, 40, 60, mark)

	drawText(canvas, faces.name, nameColor, 280, 140, e.FirstName+" "+e.LastName)
	drawText(canvas, faces.detail, detailColor, 280, 180, e.Position)
	drawText(canvas, faces.detail, detailColor, 280, 220, e.Department)

	xdraw.BiLinear.Scale(canvas, BarcodeRect, barcode, barcode.Bounds(), xdraw.Over, nil)

	card := &CardRaster{EmployeeID: e.ID, NationalID: e.RUT}
	if photo != nil {
		filled := imaging.Fill(photo, PhotoRect.Dx(), PhotoRect.Dy(), imaging.Center, imaging.Lanczos)
		canvas = imaging.Paste(canvas, filled, PhotoRect.Min)
	} else {
		strokeRect(canvas, PhotoRect, placeholderColor)
		card.Placeholder = true
		card.Initials = e.Initials()
		drawText(canvas, faces.mark, initialsColor, 100, 200, card.Initials)
	}
	card.img = canvas
	return card, nil
}

type cardFaces struct {
	mark, name, detail font.Face
}

func openFaces() (*cardFaces, error) {
	mark, err := newFace(styleBold, 48)
	if err != nil {
		return nil, err
	}
	name, err := newFace(styleBold, 36)
	if err != nil {
		mark.Close()
		return nil, err
	}
	detail, err := newFace(styleRegular, 24)
	if err != nil {
		mark.Close()
		name.Close()
		return nil, err
	}
	return &cardFaces{mark: mark, name: name, detail: detail}, nil
}

func (f *cardFaces) close() {
	f.mark.Close()
	f.name.Close()
	f.detail.Close()
}

// strokeRect draws a 1px outline just inside r.
func strokeRect(dst draw.Image, r image.Rectangle, c color.Color) {
	src := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1),
		image.Rect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+1, r.Max.Y),
		image.Rect(r.Max.X-1, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e, src, image.Point{}, draw.Src)
	}
}
