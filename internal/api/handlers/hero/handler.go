package hero

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"path/filepath"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"
	_ "golang.org/x/image/webp"

	"github.com/lumeshot/hero-optimizer/internal/api/respond"
	"github.com/lumeshot/hero-optimizer/internal/config"
	"github.com/lumeshot/hero-optimizer/internal/model"
	"github.com/lumeshot/hero-optimizer/internal/repository/settings"
)

// service defines the interface for hero image operations.
type service interface {
	UploadHero(ctx context.Context, fileBuffer []byte, originalName string) (model.ProcessedImages, error)
	CurrentHero(ctx context.Context) (model.HeroRecord, error)
}

// Handler provides HTTP handlers for hero image endpoints. It enforces the
// upload input contract (MIME type, size, minimum dimensions) before the
// pipeline runs; the pipeline itself does not re-validate.
type Handler struct {
	service service
	limits  config.Upload
}

// NewHandler creates a new Handler with the given service and upload limits.
func NewHandler(s service, limits config.Upload) *Handler {
	return &Handler{service: s, limits: limits}
}

// Upload handles the HTTP request for uploading a new hero image.
// It validates the multipart file against the configured limits, runs the
// variant pipeline via the service, and responds with the full manifest.
func (h *Handler) Upload(c *ginext.Context) {
	if err := c.Request.ParseMultipartForm(h.limits.MaxBytes); err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("parse multipart form failed: %v", err))
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		zlog.Logger.Err(err).Msg("failed to retrieve the file")
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("failed to retrieve the file"))
		return
	}
	defer file.Close()

	if header.Size > h.limits.MaxBytes {
		respond.Fail(c, http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds %d bytes", h.limits.MaxBytes))
		return
	}

	buf, err := io.ReadAll(io.LimitReader(file, h.limits.MaxBytes+1))
	if err != nil {
		zlog.Logger.Err(err).Msg("failed to read the file")
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("failed to read the file"))
		return
	}
	if int64(len(buf)) > h.limits.MaxBytes {
		respond.Fail(c, http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds %d bytes", h.limits.MaxBytes))
		return
	}

	if err := h.validate(buf); err != nil {
		zlog.Logger.Warn().Err(err).Str("filename", header.Filename).Msg("rejected hero upload")
		respond.Fail(c, http.StatusBadRequest, err)
		return
	}

	manifest, err := h.service.UploadHero(c.Request.Context(), buf, filepath.Base(header.Filename))
	if err != nil {
		zlog.Logger.Err(err).Msg("failed to process hero image")
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("failed to process hero image: %v", err))
		return
	}

	respond.OK(c, manifest)
}

// Current returns the currently persisted hero record.
func (h *Handler) Current(c *ginext.Context) {
	rec, err := h.service.CurrentHero(c.Request.Context())
	if err != nil {
		if errors.Is(err, settings.ErrHeroNotFound) {
			respond.Fail(c, http.StatusNotFound, fmt.Errorf("no hero image configured"))
			return
		}

		zlog.Logger.Err(err).Msg("failed to get hero record")
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("failed to get hero record"))
		return
	}

	respond.OK(c, rec)
}

// validate checks the sniffed MIME type and minimum source dimensions.
func (h *Handler) validate(buf []byte) error {
	head := buf
	if len(head) > 512 {
		head = head[:512]
	}
	mime := http.DetectContentType(head)

	allowed := false
	for _, t := range h.limits.AllowedTypes {
		if t == mime {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("unsupported content type %s", mime)
	}

	probe, _, err := image.DecodeConfig(bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("not a decodable image: %v", err)
	}
	if probe.Width < h.limits.MinWidth || probe.Height < h.limits.MinHeight {
		return fmt.Errorf(
			"image %dx%d below minimum %dx%d",
			probe.Width, probe.Height, h.limits.MinWidth, h.limits.MinHeight,
		)
	}

	return nil
}
