// Package pdfinfo reads back the page structure of generated credential
// documents.
package pdfinfo

import (
	"bytes"
	"fmt"
	"io"

	pdf "github.com/ledongthuc/pdf"
)

const pointsPerMM = 72 / 25.4

type PageSize struct {
	WidthPt  float64 `json:"width_pt"`
	HeightPt float64 `json:"height_pt"`
}

func (s PageSize) WidthMM() float64  { return s.WidthPt / pointsPerMM }
func (s PageSize) HeightMM() float64 { return s.HeightPt / pointsPerMM }

type Info struct {
	Pages []PageSize `json:"pages"`
}

func (i *Info) NumPages() int { return len(i.Pages) }

// Inspect parses PDF bytes and reports each page's MediaBox, following the
// page tree when the box is inherited.
func Inspect(data []byte) (*Info, error) {
	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("new pdf reader: %w", err)
	}
	info := &Info{}
	total := doc.NumPage()
	for n := 1; n <= total; n++ {
		p := doc.Page(n)
		if p.V.IsNull() {
			return nil, fmt.Errorf("page %d: missing page object", n)
		}
		box := mediaBox(p.V)
		if box.Len() != 4 {
			return nil, fmt.Errorf("page %d: no media box", n)
		}
		info.Pages = append(info.Pages, PageSize{
			WidthPt:  box.Index(2).Float64() - box.Index(0).Float64(),
			HeightPt: box.Index(3).Float64() - box.Index(1).Float64(),
		})
	}
	return info, nil
}

func InspectReader(r io.Reader) (*Info, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	return Inspect(data)
}

func mediaBox(page pdf.Value) pdf.Value {
	for v := page; !v.IsNull(); v = v.Key("Parent") {
		if box := v.Key("MediaBox"); !box.IsNull() {
			return box
		}
	}
	return pdf.Value{}
}
