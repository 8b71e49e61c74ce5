package model

import (
	"time"

	"github.com/google/uuid"
)

// Breakpoint names used as keys in ProcessedImages.Variants.
const (
	BreakpointMobile  = "mobile"
	BreakpointTablet  = "tablet"
	BreakpointDesktop = "desktop"
)

// StorageMetadata describes a single uploaded artifact.
type StorageMetadata struct {
	URL    string `json:"url"`
	Size   int64  `json:"size"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// OriginalMetadata describes the stored, unmodified source image.
type OriginalMetadata struct {
	StorageMetadata
	UploadedAt time.Time `json:"uploadedAt"`
}

// FormatVariants groups the three encodings produced for one breakpoint.
type FormatVariants struct {
	AVIF StorageMetadata `json:"avif"`
	WebP StorageMetadata `json:"webp"`
	JPG  StorageMetadata `json:"jpg"`
}

// ProcessedImages is the manifest returned for one hero upload:
// the stored original plus one FormatVariants entry per breakpoint.
// It is assembled once, after every upload has completed.
type ProcessedImages struct {
	Original OriginalMetadata          `json:"original"`
	Variants map[string]FormatVariants `json:"variants"`
}

// HeroRecord is the persisted settings row holding the current hero manifest.
// HeroURL is the preferred single-URL reference (desktop JPEG).
type HeroRecord struct {
	ID        uuid.UUID       `json:"id"`
	HeroURL   string          `json:"hero_url"`
	Manifest  ProcessedImages `json:"manifest"`
	CreatedAt time.Time       `json:"created_at"`
}

// HeroProcessedEvent is published after a manifest has been persisted.
type HeroProcessedEvent struct {
	RecordID    uuid.UUID       `json:"record_id"`
	HeroURL     string          `json:"hero_url"`
	Manifest    ProcessedImages `json:"manifest"`
	ProcessedAt time.Time       `json:"processed_at"`
}

// OrphanObjectsEvent lists storage keys stranded by a failed run.
// Consumers delete them on a best-effort basis.
type OrphanObjectsEvent struct {
	Keys     []string  `json:"keys"`
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failed_at"`
}
