package watermark

import (
	"fmt"
	"image"

	"github.com/fogleman/gg"
)

// Stamper draws a studio credit in the bottom-right corner of an image.
type Stamper struct {
	text     string
	fontPath string
	opacity  float64
}

// New creates a Stamper with the given credit text, font file and opacity
// in (0,1].
func New(text, fontPath string, opacity float64) *Stamper {
	if text == "" {
		text = "© Lumeshot Studio"
	}
	if opacity <= 0 || opacity > 1 {
		opacity = 0.6
	}

	return &Stamper{text: text, fontPath: fontPath, opacity: opacity}
}

// Stamp draws the credit text onto a copy of src and returns it.
func (s *Stamper) Stamp(src image.Image) (image.Image, error) {
	dc := gg.NewContextForImage(src)
	dc.SetRGBA(1, 1, 1, s.opacity)

	fontSize := float64(dc.Width()) * 0.03

	if err := dc.LoadFontFace(s.fontPath, fontSize); err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	tw, th := dc.MeasureString(s.text)

	margin := 16.0
	x := float64(dc.Width()) - tw - margin
	y := float64(dc.Height()) - th - margin

	dc.DrawStringAnchored(s.text, x, y, 1, 1)
	dc.Fill()

	return dc.Image(), nil
}
