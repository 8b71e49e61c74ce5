package optimizer

import (
	"image"
	"io"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/avif"
	"github.com/gen2brain/webp"
)

// encoder produces one output format from a resized raster.
type encoder interface {
	Name() string
	Ext() string
	ContentType() string
	Quality(base int) int
	Encode(w io.Writer, img image.Image, quality int) error
}

// defaultEncoders returns the production codecs in generation order.
func defaultEncoders(chroma image.YCbCrSubsampleRatio) []encoder {
	return []encoder{
		avifEncoder{chroma: chroma},
		webpEncoder{},
		jpegEncoder{},
	}
}

type avifEncoder struct {
	chroma image.YCbCrSubsampleRatio
}

func (avifEncoder) Name() string { return "AVIF" }

func (avifEncoder) Ext() string { return "avif" }

func (avifEncoder) ContentType() string { return "image/avif" }

func (avifEncoder) Quality(base int) int { return base }

func (e avifEncoder) Encode(w io.Writer, img image.Image, quality int) error {
	return avif.Encode(w, img, avif.Options{
		Quality:           quality,
		Speed:             avif.DefaultSpeed,
		ChromaSubsampling: e.chroma,
	})
}

type webpEncoder struct{}

func (webpEncoder) Name() string { return "WebP" }

func (webpEncoder) Ext() string { return "webp" }

func (webpEncoder) ContentType() string { return "image/webp" }

func (webpEncoder) Quality(base int) int { return base + webpQualityLift }

func (webpEncoder) Encode(w io.Writer, img image.Image, quality int) error {
	return webp.Encode(w, img, webp.Options{Quality: quality})
}

// jpegEncoder emits baseline JPEG; the stdlib encoder has no progressive
// scan support, and re-encoding drops source metadata.
type jpegEncoder struct{}

func (jpegEncoder) Name() string { return "JPEG" }

func (jpegEncoder) Ext() string { return "jpg" }

func (jpegEncoder) ContentType() string { return "image/jpeg" }

func (jpegEncoder) Quality(base int) int { return base }

func (jpegEncoder) Encode(w io.Writer, img image.Image, quality int) error {
	return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
}
