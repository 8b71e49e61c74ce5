package optimizer

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"time"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/lumeshot/hero-optimizer/internal/model"
)

// cacheControl is applied to every uploaded artifact. Keys are unique per
// invocation, so objects are effectively immutable.
const cacheControl = "max-age=31536000"

// webpQualityLift raises the WebP quality above the breakpoint base,
// compensating for perceptual differences between codecs at equal
// quality parameters.
const webpQualityLift = 5

// BreakpointConfig defines one responsive output: exact pixel dimensions
// and the base encode quality shared by AVIF and JPEG.
type BreakpointConfig struct {
	Name    string
	Width   int
	Height  int
	Quality int
}

// Config holds the variant matrix and encode policy for one Optimizer.
// Breakpoints are processed in slice order.
type Config struct {
	Breakpoints       []BreakpointConfig
	ChromaSubsampling image.YCbCrSubsampleRatio
}

// DefaultConfig returns the standard three-breakpoint matrix.
func DefaultConfig() Config {
	return Config{
		Breakpoints: []BreakpointConfig{
			{Name: model.BreakpointMobile, Width: 768, Height: 1024, Quality: 85},
			{Name: model.BreakpointTablet, Width: 1024, Height: 768, Quality: 85},
			{Name: model.BreakpointDesktop, Width: 1920, Height: 1080, Quality: 90},
		},
		ChromaSubsampling: image.YCbCrSubsampleRatio420,
	}
}

// ChromaRatio maps a config string like "4:2:0" to the image package ratio.
func ChromaRatio(s string) image.YCbCrSubsampleRatio {
	switch s {
	case "4:4:4":
		return image.YCbCrSubsampleRatio444
	case "4:2:2":
		return image.YCbCrSubsampleRatio422
	default:
		return image.YCbCrSubsampleRatio420
	}
}

// objectStore defines the storage operations the pipeline needs: append-only
// uploads and public URL retrieval.
type objectStore interface {
	Put(ctx context.Context, key, contentType, cacheControl string, data []byte) (int64, error)
	PublicURL(key string) string
}

// Stamper optionally marks a resized raster before encoding.
type Stamper interface {
	Stamp(src image.Image) (image.Image, error)
}

// Optimizer transforms one source image into a fixed set of resized,
// re-encoded derivatives, persists each one, and reports what was produced.
type Optimizer struct {
	cfg      Config
	store    objectStore
	stamper  Stamper
	encoders []encoder
}

// New creates an Optimizer with the given configuration and storage backend.
// stamper may be nil to disable watermarking.
func New(cfg Config, store objectStore, stamper Stamper) *Optimizer {
	return &Optimizer{
		cfg:      cfg,
		store:    store,
		stamper:  stamper,
		encoders: defaultEncoders(cfg.ChromaSubsampling),
	}
}

// OrphanedError reports a failed run that left already-uploaded objects in
// storage. The pipeline never rolls back; callers may schedule cleanup.
type OrphanedError struct {
	Keys []string // keys uploaded before the failure
	Err  error
}

func (e *OrphanedError) Error() string { return e.Err.Error() }

func (e *OrphanedError) Unwrap() error { return e.Err }

// ProcessHeroImage uploads the original buffer, then for every breakpoint
// cover-crops the source to the exact target size and encodes it into each
// configured format, uploading every result. All artifacts of one invocation
// share a millisecond timestamp in their keys.
//
// The operation is all-or-nothing: the first failure aborts it and no
// manifest is returned. Objects uploaded before the failure are not deleted.
func (o *Optimizer) ProcessHeroImage(ctx context.Context, fileBuffer []byte, originalName string) (model.ProcessedImages, error) {
	timestamp := time.Now().UnixMilli()

	uploaded := make([]string, 0, 1+len(o.cfg.Breakpoints)*len(o.encoders))

	originalKey := fmt.Sprintf("hero/original/hero-%d-%s", timestamp, originalName)
	originalSize, err := o.store.Put(ctx, originalKey, "image/jpeg", cacheControl, fileBuffer)
	if err != nil {
		return model.ProcessedImages{}, fmt.Errorf("failed to upload original: %w", err)
	}
	uploaded = append(uploaded, originalKey)

	original := model.OriginalMetadata{
		StorageMetadata: model.StorageMetadata{
			URL:  o.store.PublicURL(originalKey),
			Size: originalSize,
		},
		UploadedAt: time.Now().UTC(),
	}

	// Header-only probe for intrinsic dimensions; a full decode follows anyway.
	if probe, _, err := image.DecodeConfig(bytes.NewReader(fileBuffer)); err == nil {
		original.Width = probe.Width
		original.Height = probe.Height
	}

	src, err := imaging.Decode(bytes.NewReader(fileBuffer))
	if err != nil {
		return model.ProcessedImages{}, o.orphaned(uploaded, fmt.Errorf("failed to decode image: %w", err))
	}

	variants := make(map[string]model.FormatVariants, len(o.cfg.Breakpoints))

	for _, bp := range o.cfg.Breakpoints {
		// Cover fit: fill the target box exactly, cropping around the center.
		resized := imaging.Fill(src, bp.Width, bp.Height, imaging.Center, imaging.Lanczos)

		var raster image.Image = resized
		if o.stamper != nil {
			raster, err = o.stamper.Stamp(resized)
			if err != nil {
				return model.ProcessedImages{}, o.orphaned(uploaded, fmt.Errorf("failed to apply watermark: %w", err))
			}
		}

		var fv model.FormatVariants
		for _, enc := range o.encoders {
			var buf bytes.Buffer
			if err := enc.Encode(&buf, raster, enc.Quality(bp.Quality)); err != nil {
				return model.ProcessedImages{}, o.orphaned(uploaded, fmt.Errorf("failed to encode %s: %w", enc.Name(), err))
			}

			key := fmt.Sprintf("hero/%s/hero-%d-%dw.%s", bp.Name, timestamp, bp.Width, enc.Ext())
			size, err := o.store.Put(ctx, key, enc.ContentType(), cacheControl, buf.Bytes())
			if err != nil {
				return model.ProcessedImages{}, o.orphaned(uploaded, fmt.Errorf("failed to upload %s: %w", enc.Name(), err))
			}
			uploaded = append(uploaded, key)

			meta := model.StorageMetadata{
				URL:    o.store.PublicURL(key),
				Size:   size,
				Width:  bp.Width,
				Height: bp.Height,
			}

			switch enc.Ext() {
			case "avif":
				fv.AVIF = meta
			case "webp":
				fv.WebP = meta
			default:
				fv.JPG = meta
			}
		}

		variants[bp.Name] = fv
	}

	return model.ProcessedImages{Original: original, Variants: variants}, nil
}

// orphaned wraps err with the keys already uploaded in this run, if any.
func (o *Optimizer) orphaned(keys []string, err error) error {
	if len(keys) == 0 {
		return err
	}

	return &OrphanedError{Keys: keys, Err: err}
}
