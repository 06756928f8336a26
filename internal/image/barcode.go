package imagepkg

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
)

type Symbology string

const (
	Code128 Symbology = "CODE128"
	QR      Symbology = "QR"
)

// ParseSymbology accepts "code128" or "qr" in any case.
func ParseSymbology(s string) (Symbology, error) {
	switch Symbology(strings.ToUpper(strings.TrimSpace(s))) {
	case Code128, "":
		return Code128, nil
	case QR:
		return QR, nil
	default:
		return "", fmt.Errorf("unknown symbology %q", s)
	}
}

// BarcodeOptions controls barcode rendering. For CODE128, ModuleWidth is the
// width in pixels of the narrowest bar and Height the bar height; for QR,
// Height is the side of the square symbol.
type BarcodeOptions struct {
	Symbology    Symbology
	ModuleWidth  int
	Height       int
	DisplayValue bool
	FontSize     float64
	Margin       int
	TextMargin   int
}

func DefaultBarcodeOptions() BarcodeOptions {
	return BarcodeOptions{
		Symbology:    Code128,
		ModuleWidth:  2,
		Height:       100,
		DisplayValue: true,
		FontSize:     20,
		Margin:       10,
		TextMargin:   2,
	}
}

// MaxCode128Length is the longest CODE128 payload accepted.
const MaxCode128Length = 48

var (
	errEmptyPayload = errors.New("empty payload")
	errTooLong      = fmt.Errorf("payload longer than %d characters", MaxCode128Length)
)

// checkCode128 accepts printable ASCII only. code128.Encode silently maps
// U+00F1 through U+00F4 to FNC1-FNC4.
func checkCode128(text string) error {
	n := 0
	for i, r := range text {
		if r < 0x20 || r > 0x7e {
			return fmt.Errorf("unsupported character %q at byte %d", r, i)
		}
		n++
	}
	if n > MaxCode128Length {
		return errTooLong
	}
	return nil
}

// RenderBarcode draws text as a barcode on a white canvas, optionally with
// the human-readable value centred beneath it. Output depends only on text
// and opt.
func RenderBarcode(text string, opt BarcodeOptions) (*image.NRGBA, error) {
	if opt.Symbology == "" {
		opt.Symbology = Code128
	}
	if text == "" {
		return nil, &EncodingError{Symbology: opt.Symbology, Text: text, Err: errEmptyPayload}
	}
	if opt.ModuleWidth <= 0 {
		opt.ModuleWidth = 1
	}
	if opt.Height <= 0 {
		return nil, fmt.Errorf("barcode height must be positive, got %d", opt.Height)
	}

	var bars image.Image
	switch opt.Symbology {
	case Code128:
		if err := checkCode128(text); err != nil {
			return nil, &EncodingError{Symbology: Code128, Text: text, Err: err}
		}
		bc, err := code128.Encode(text)
		if err != nil {
			return nil, &EncodingError{Symbology: Code128, Text: text, Err: err}
		}
		modules := bc.Bounds().Dx()
		scaled, err := barcode.Scale(bc, modules*opt.ModuleWidth, opt.Height)
		if err != nil {
			return nil, &EncodingError{Symbology: Code128, Text: text, Err: err}
		}
		bars = scaled
	case QR:
		q, err := GenerateQRImage(text, opt.Height)
		if err != nil {
			return nil, &EncodingError{Symbology: QR, Text: text, Err: err}
		}
		bars = q
	default:
		return nil, fmt.Errorf("unsupported symbology %q", opt.Symbology)
	}

	bb := bars.Bounds()
	width := bb.Dx()
	height := opt.Margin + bb.Dy() + opt.Margin

	var label labelLayout
	if opt.DisplayValue {
		var err error
		label, err = layoutLabel(text, opt.FontSize)
		if err != nil {
			return nil, err
		}
		defer label.face.Close()
		if label.width > width {
			width = label.width
		}
		height += opt.TextMargin + label.height
	}
	width += 2 * opt.Margin

	canvas := imaging.New(width, height, color.White)
	barsAt := image.Pt((width-bb.Dx())/2, opt.Margin)
	draw.Draw(canvas, image.Rectangle{Min: barsAt, Max: barsAt.Add(bb.Size())}, bars, bb.Min, draw.Src)

	if opt.DisplayValue {
		x := (width - label.width) / 2
		y := opt.Margin + bb.Dy() + opt.TextMargin + label.ascent
		drawText(canvas, label.face, color.Black, x, y, text)
	}
	return canvas, nil
}

type labelLayout struct {
	face   font.Face
	width  int
	height int
	ascent int
}

func layoutLabel(text string, size float64) (labelLayout, error) {
	if size <= 0 {
		size = 20
	}
	face, err := newFace(styleMono, size)
	if err != nil {
		return labelLayout{}, err
	}
	m := face.Metrics()
	return labelLayout{
		face:   face,
		width:  textWidth(face, text),
		height: m.Ascent.Ceil() + m.Descent.Ceil(),
		ascent: m.Ascent.Ceil(),
	}, nil
}

// BarcodePNG renders text and returns PNG bytes.
func BarcodePNG(text string, opt BarcodeOptions) ([]byte, error) {
	img, err := RenderBarcode(text, opt)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode barcode png: %w", err)
	}
	return buf.Bytes(), nil
}
