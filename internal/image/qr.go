package imagepkg

import (
	"image"

	qrcode "github.com/skip2/go-qrcode"
)

// GenerateQRImage returns a borderless QR symbol for text, size pixels
// square. Quiet zones are left to the caller's margins.
func GenerateQRImage(text string, size int) (image.Image, error) {
	q, err := qrcode.New(text, qrcode.Medium)
	if err != nil {
		return nil, err
	}
	q.DisableBorder = true
	return q.Image(size), nil
}
