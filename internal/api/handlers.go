package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/youruser/emsapp/internal/artifacts"
	"github.com/youruser/emsapp/internal/batch"
	"github.com/youruser/emsapp/internal/credential"
	"github.com/youruser/emsapp/internal/employees"
	imagepkg "github.com/youruser/emsapp/internal/image"
	"github.com/youruser/emsapp/internal/queue"
)

// CardRenderer draws a single card; *credential.Pipeline implements it.
type CardRenderer interface {
	RenderCard(ctx context.Context, e employees.Employee) (*imagepkg.CardRaster, error)
}

// JobQueue submits background batch jobs; *queue.Jobs implements it.
type JobQueue interface {
	Enqueue(ctx context.Context, sel batch.Selection) (queue.JobStatus, error)
	Status(ctx context.Context, id string) (queue.JobStatus, error)
}

type presigner interface {
	PresignGet(ctx context.Context, key, filename string, ttl time.Duration) (string, error)
}

// Deps are the services the HTTP handlers use. Jobs and Artifacts may be
// nil when no queue is configured.
type Deps struct {
	Employees  employees.Store
	Renderer   CardRenderer
	Barcode    imagepkg.BarcodeOptions
	Controller *credential.Controller
	Downloads  *artifacts.Downloads
	Artifacts  artifacts.Store
	Jobs       JobQueue
	// BaseContext outlives requests; interactive runs are started with it.
	BaseContext context.Context
	PresignTTL  time.Duration
}

type handlers struct {
	Deps
}

func newHandlers(d Deps) *handlers {
	if d.BaseContext == nil {
		d.BaseContext = context.Background()
	}
	if d.Barcode == (imagepkg.BarcodeOptions{}) {
		d.Barcode = imagepkg.DefaultBarcodeOptions()
	}
	if d.PresignTTL <= 0 {
		d.PresignTTL = 5 * time.Minute
	}
	return &handlers{Deps: d}
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// barcode returns a PNG for the "text" query param.
func (h *handlers) barcode(c *gin.Context) {
	text := c.Query("text")
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}
	opt := h.Barcode
	if s := c.Query("symbology"); s != "" {
		sym, err := imagepkg.ParseSymbology(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		opt.Symbology = sym
	}
	if v, err := strconv.Atoi(c.Query("size")); err == nil && v > 0 && v <= 2000 {
		opt.Height = v
	} else if opt.Symbology == imagepkg.QR && opt.Height < 200 {
		opt.Height = 200
	}
	if c.Query("label") == "false" {
		opt.DisplayValue = false
	}
	b, err := imagepkg.BarcodePNG(text, opt)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", b)
}

func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, employees.ErrNotFound), errors.Is(err, artifacts.ErrNotFound), errors.Is(err, queue.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case errors.Is(err, employees.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	code := credential.Classify(err)
	switch code {
	case credential.CodeBusy:
		status = http.StatusConflict
	case credential.CodeInvalidInput, credential.CodeEncoding:
		status = http.StatusUnprocessableEntity
	case credential.CodeComposition:
		status = http.StatusBadGateway
	case credential.CodeCancel:
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		log.Println("request error:", err)
	}
	body := gin.H{"error": credential.UserMessage(err), "code": code}
	var inErr *credential.InvalidInputError
	if errors.As(err, &inErr) && len(inErr.Fields) > 0 {
		body["fields"] = inErr.Fields
	}
	c.JSON(status, body)
}
