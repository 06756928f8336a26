package credential

import (
	"bytes"
	"io"
	"strings"
)

const BatchFilename = "credentials.pdf"

// Page describes one page of an artifact, in page order.
type Page struct {
	EmployeeID  string `json:"employee_id"`
	NationalID  string `json:"national_id"`
	Name        string `json:"name"`
	Placeholder bool   `json:"placeholder"`
}

// Artifact is a finished credential document. Its bytes never change after
// the pipeline returns it.
type Artifact struct {
	Filename    string
	ContentType string
	Pages       []Page
	data        []byte
}

func newArtifact(filename string, data []byte, pages []Page) *Artifact {
	return &Artifact{
		Filename:    filename,
		ContentType: ContentType,
		Pages:       pages,
		data:        data,
	}
}

func (a *Artifact) PageCount() int { return len(a.Pages) }

func (a *Artifact) Size() int { return len(a.data) }

// Bytes returns a copy of the document.
func (a *Artifact) Bytes() []byte { return bytes.Clone(a.data) }

func (a *Artifact) Reader() *bytes.Reader { return bytes.NewReader(a.data) }

func (a *Artifact) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(a.data)
	return int64(n), err
}

// SingleFilename is the download name for one employee's credential.
func SingleFilename(nationalID string) string {
	return "credential-" + sanitizeFilename(nationalID) + ".pdf"
}

func sanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return '_'
		}
		return r
	}, strings.TrimSpace(s))
}
