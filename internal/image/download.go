package imagepkg

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/image/webp"

	"github.com/youruser/emsapp/internal/util"
)

const (
	defaultPhotoTimeout = 10 * time.Second
	defaultPhotoLimit   = 10 << 20
)

var (
	errUnsupportedRef = errors.New("unsupported photo reference")
	errOutsideRoot    = errors.New("photo path escapes the photo root")
)

// PhotoLoader resolves an employee's profile image reference into a decoded
// image. It understands data: URIs, http(s) URLs and, when Root is set,
// paths relative to Root. Every failure is a *CompositionError.
type PhotoLoader struct {
	Client   *http.Client
	Timeout  time.Duration
	Root     string
	MaxBytes int64
}

func NewPhotoLoader(timeout time.Duration, root string) *PhotoLoader {
	if timeout <= 0 {
		timeout = defaultPhotoTimeout
	}
	return &PhotoLoader{
		Client:   &http.Client{Timeout: timeout},
		Timeout:  timeout,
		Root:     root,
		MaxBytes: defaultPhotoLimit,
	}
}

func (l *PhotoLoader) Load(ctx context.Context, ref string) (image.Image, error) {
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}
	data, err := l.fetch(ctx, strings.TrimSpace(ref))
	if err != nil {
		return nil, &CompositionError{Stage: "photo", Ref: shortRef(ref), Err: err}
	}
	img, err := DecodeImage(data)
	if err != nil {
		return nil, &CompositionError{Stage: "photo", Ref: shortRef(ref), Err: err}
	}
	return img, nil
}

func (l *PhotoLoader) fetch(ctx context.Context, ref string) ([]byte, error) {
	switch {
	case strings.HasPrefix(ref, "data:"):
		return decodeDataURI(ref)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return util.GetBytes(ctx, l.Client, ref, l.MaxBytes)
	case l.Root != "":
		return l.readLocal(ref)
	default:
		return nil, errUnsupportedRef
	}
}

func (l *PhotoLoader) readLocal(ref string) ([]byte, error) {
	if u, err := url.Parse(ref); err == nil && u.Scheme == "file" {
		ref = u.Path
	} else if err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		return nil, errUnsupportedRef
	}
	root, err := filepath.Abs(l.Root)
	if err != nil {
		return nil, err
	}
	path := ref
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	path = filepath.Clean(path)
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, errOutsideRoot
	}
	return os.ReadFile(path)
}

// decodeDataURI accepts base64 data URIs such as
// "data:image/png;base64,iVBORw0...".
func decodeDataURI(ref string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return nil, errors.New("malformed data URI")
	}
	if !strings.HasSuffix(meta, ";base64") {
		return nil, errors.New("data URI is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("data URI: %w", err)
	}
	return data, nil
}

// DecodeImage decodes PNG, JPEG, GIF, BMP, TIFF (via imaging, honouring EXIF
// orientation) and WebP.
func DecodeImage(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err == nil {
		return img, nil
	}
	if decoded, webpErr := webp.Decode(bytes.NewReader(data)); webpErr == nil {
		return decoded, nil
	}
	return nil, fmt.Errorf("decode image: %w", err)
}

func shortRef(ref string) string {
	if strings.HasPrefix(ref, "data:") {
		if i := strings.IndexByte(ref, ','); i > 0 {
			return ref[:i] + ",..."
		}
	}
	return ref
}
