package imagepkg

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

type fontStyle int

const (
	styleRegular fontStyle = iota
	styleBold
	styleMono
)

var (
	fontsOnce sync.Once
	fonts     map[fontStyle]*opentype.Font
	fontsErr  error
)

func loadFonts() (map[fontStyle]*opentype.Font, error) {
	fontsOnce.Do(func() {
		srcs := map[fontStyle][]byte{
			styleRegular: goregular.TTF,
			styleBold:    gobold.TTF,
			styleMono:    gomono.TTF,
		}
		fonts = make(map[fontStyle]*opentype.Font, len(srcs))
		for style, src := range srcs {
			f, err := opentype.Parse(src)
			if err != nil {
				fontsErr = fmt.Errorf("parse font: %w", err)
				return
			}
			fonts[style] = f
		}
	})
	return fonts, fontsErr
}

// newFace returns a face whose size is in pixels. Faces are not safe for
// concurrent use; callers close them when done.
func newFace(style fontStyle, px float64) (font.Face, error) {
	fs, err := loadFonts()
	if err != nil {
		return nil, err
	}
	return opentype.NewFace(fs[style], &opentype.FaceOptions{
		Size:    px,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// drawText draws s with its baseline starting at (x, y).
func drawText(dst draw.Image, face font.Face, c color.Color, x, y int, s string) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func textWidth(face font.Face, s string) int {
	return font.MeasureString(face, s).Ceil()
}
