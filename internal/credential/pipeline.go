package credential

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"time"

	"github.com/youruser/emsapp/internal/employees"
	imagepkg "github.com/youruser/emsapp/internal/image"
)

// ProgressFunc receives the number of finished pages and the batch size
// after each page is added.
type ProgressFunc func(current, total int)

// PhotoSource loads profile images. *imagepkg.PhotoLoader is the production
// implementation.
type PhotoSource interface {
	Load(ctx context.Context, ref string) (image.Image, error)
}

type Options struct {
	Barcode  imagepkg.BarcodeOptions
	Composer *imagepkg.Composer
	Photos   PhotoSource
	Encoder  *Encoder
	// StepTimeout bounds each photo load. Zero leaves it to the PhotoSource.
	StepTimeout time.Duration
	// PhotoFallback draws the initials placeholder when a photo cannot be
	// loaded instead of failing the card.
	PhotoFallback bool
	Logger        *log.Logger
}

// Pipeline renders, composes and encodes credentials. Employees are
// processed one at a time in input order.
type Pipeline struct {
	barcode       imagepkg.BarcodeOptions
	composer      *imagepkg.Composer
	photos        PhotoSource
	encoder       *Encoder
	stepTimeout   time.Duration
	photoFallback bool
	logger        *log.Logger
}

func NewPipeline(opt Options) (*Pipeline, error) {
	p := &Pipeline{
		barcode:       opt.Barcode,
		composer:      opt.Composer,
		photos:        opt.Photos,
		encoder:       opt.Encoder,
		stepTimeout:   opt.StepTimeout,
		photoFallback: opt.PhotoFallback,
		logger:        opt.Logger,
	}
	if p.barcode == (imagepkg.BarcodeOptions{}) {
		p.barcode = imagepkg.DefaultBarcodeOptions()
	}
	if p.composer == nil {
		c, err := imagepkg.NewComposer(imagepkg.DefaultOrgMark)
		if err != nil {
			return nil, err
		}
		p.composer = c
	}
	if p.photos == nil {
		p.photos = imagepkg.NewPhotoLoader(0, "")
	}
	if p.encoder == nil {
		p.encoder = NewEncoder()
	}
	if p.logger == nil {
		p.logger = log.Default()
	}
	return p, nil
}

// GenerateOne produces a single-page artifact named credential-{rut}.pdf.
func (p *Pipeline) GenerateOne(ctx context.Context, e employees.Employee) (*Artifact, error) {
	if err := checkEmployee(e, -1); err != nil {
		return nil, err
	}
	card, err := p.RenderCard(ctx, e)
	if err != nil {
		return nil, err
	}
	data, err := p.encoder.Encode(card)
	if err != nil {
		return nil, err
	}
	return newArtifact(SingleFilename(e.RUT), data, []Page{pageOf(e, card)}), nil
}

// GenerateBatch produces one artifact with a page per employee, in input
// order. Any failure aborts the whole batch and no artifact is returned;
// onProgress has then been called once per page completed before the
// failure.
func (p *Pipeline) GenerateBatch(ctx context.Context, list []employees.Employee, onProgress ProgressFunc) (*Artifact, error) {
	if len(list) == 0 {
		return nil, &InvalidInputError{Reason: "no employees selected", Index: -1}
	}
	seen := make(map[string]int, len(list))
	for i, e := range list {
		if err := checkEmployee(e, i); err != nil {
			return nil, err
		}
		if first, dup := seen[e.ID]; dup {
			return nil, &InvalidInputError{
				Reason: fmt.Sprintf("employee %s appears more than once (first at #%d)", e.ID, first+1),
				Index:  i,
			}
		}
		seen[e.ID] = i
	}

	start := time.Now()
	total := len(list)
	p.logger.Printf("credentials: batch of %d started", total)
	doc := p.encoder.Begin()
	pages := make([]Page, 0, total)
	for i, e := range list {
		if err := ctx.Err(); err != nil {
			p.logger.Printf("credentials: batch cancelled after %d/%d", i, total)
			return nil, err
		}
		card, err := p.RenderCard(ctx, e)
		if err != nil {
			p.logger.Printf("credentials: batch failed at %d/%d (%s): %v", i+1, total, e.ID, err)
			return nil, err
		}
		if err := doc.AddPage(card); err != nil {
			return nil, err
		}
		pages = append(pages, pageOf(e, card))
		if onProgress != nil {
			onProgress(i+1, total)
		}
	}
	data, err := doc.Finish()
	if err != nil {
		return nil, err
	}
	p.logger.Printf("credentials: batch of %d finished in %s (%d bytes)", total, time.Since(start).Round(time.Millisecond), len(data))
	return newArtifact(BatchFilename, data, pages), nil
}

// RenderCard runs the barcode, photo and composition steps for one employee.
func (p *Pipeline) RenderCard(ctx context.Context, e employees.Employee) (*imagepkg.CardRaster, error) {
	bc, err := imagepkg.RenderBarcode(e.RUT, p.barcode)
	if err != nil {
		return nil, err
	}
	var photo image.Image
	if e.ProfileImage != "" {
		photo, err = p.loadPhoto(ctx, e.ProfileImage)
		if err != nil {
			var compErr *imagepkg.CompositionError
			if !p.photoFallback || !errors.As(err, &compErr) {
				return nil, err
			}
			p.logger.Printf("credentials: photo for %s unavailable, using initials: %v", e.ID, err)
			photo = nil
		}
	}
	return p.composer.Compose(e, bc, photo)
}

func (p *Pipeline) loadPhoto(ctx context.Context, ref string) (image.Image, error) {
	if p.stepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.stepTimeout)
		defer cancel()
	}
	img, err := p.photos.Load(ctx, ref)
	if err == nil {
		return img, nil
	}
	var compErr *imagepkg.CompositionError
	if errors.As(err, &compErr) {
		return nil, err
	}
	return nil, &imagepkg.CompositionError{Stage: "photo", Ref: ref, Err: err}
}

func checkEmployee(e employees.Employee, index int) error {
	if err := employees.CheckCredentialFields(e); err != nil {
		var verr *employees.ValidationError
		if errors.As(err, &verr) {
			return &InvalidInputError{Reason: "missing required fields", Index: index, Fields: verr.Fields}
		}
		return err
	}
	return nil
}

func pageOf(e employees.Employee, card *imagepkg.CardRaster) Page {
	return Page{
		EmployeeID:  e.ID,
		NationalID:  e.RUT,
		Name:        e.FullName(),
		Placeholder: card.Placeholder,
	}
}

// BarcodeOptions reports the options cards are rendered with.
func (p *Pipeline) BarcodeOptions() imagepkg.BarcodeOptions { return p.barcode }
