package hero

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/ginext"

	"github.com/lumeshot/hero-optimizer/internal/config"
	"github.com/lumeshot/hero-optimizer/internal/model"
)

type fakeService struct {
	manifest model.ProcessedImages
	current  model.HeroRecord
	err      error
	calls    int
	lastName string
}

func (f *fakeService) UploadHero(_ context.Context, _ []byte, originalName string) (model.ProcessedImages, error) {
	f.calls++
	f.lastName = originalName
	if f.err != nil {
		return model.ProcessedImages{}, f.err
	}
	return f.manifest, nil
}

func (f *fakeService) CurrentHero(_ context.Context) (model.HeroRecord, error) {
	if f.err != nil {
		return model.HeroRecord{}, f.err
	}
	return f.current, nil
}

func testLimits() config.Upload {
	return config.Upload{
		AllowedTypes: []string{"image/jpeg", "image/png", "image/webp"},
		MaxBytes:     10 * 1024 * 1024,
		MinWidth:     1920,
		MinHeight:    1080,
	}
}

func testRouter(h *Handler) *ginext.Engine {
	r := ginext.New()
	r.POST("/api/hero", h.Upload)
	r.GET("/api/hero", h.Current)
	return r
}

func testJPEG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y += 8 {
		for x := 0; x < width; x += 8 {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}))

	return buf.Bytes()
}

func multipartBody(t *testing.T, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

func TestUpload_OK(t *testing.T) {
	svc := &fakeService{
		manifest: model.ProcessedImages{
			Original: model.OriginalMetadata{
				StorageMetadata: model.StorageMetadata{URL: "https://cdn.test/hero/original/hero-1-sunset.jpg", Size: 99},
				UploadedAt:      time.Now().UTC(),
			},
			Variants: map[string]model.FormatVariants{
				"desktop": {JPG: model.StorageMetadata{URL: "https://cdn.test/x.jpg", Size: 10, Width: 1920, Height: 1080}},
			},
		},
	}
	h := NewHandler(svc, testLimits())
	r := testRouter(h)

	body, contentType := multipartBody(t, "sunset.jpg", testJPEG(t, 3000, 2000))
	req := httptest.NewRequest(http.MethodPost, "/api/hero", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, svc.calls)
	assert.Equal(t, "sunset.jpg", svc.lastName)

	var resp struct {
		Result model.ProcessedImages `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, svc.manifest.Original.URL, resp.Result.Original.URL)
}

func TestUpload_RejectsNonImage(t *testing.T) {
	svc := &fakeService{}
	h := NewHandler(svc, testLimits())
	r := testRouter(h)

	body, contentType := multipartBody(t, "notes.jpg", []byte("plain text pretending to be a jpeg"))
	req := httptest.NewRequest(http.MethodPost, "/api/hero", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, svc.calls)
}

func TestUpload_RejectsUndersizedImage(t *testing.T) {
	svc := &fakeService{}
	h := NewHandler(svc, testLimits())
	r := testRouter(h)

	body, contentType := multipartBody(t, "small.jpg", testJPEG(t, 800, 600))
	req := httptest.NewRequest(http.MethodPost, "/api/hero", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "below minimum")
	assert.Zero(t, svc.calls)
}

func TestUpload_RejectsOversizedFile(t *testing.T) {
	limits := testLimits()
	limits.MaxBytes = 1024

	svc := &fakeService{}
	h := NewHandler(svc, limits)
	r := testRouter(h)

	body, contentType := multipartBody(t, "big.jpg", testJPEG(t, 2000, 1200))
	req := httptest.NewRequest(http.MethodPost, "/api/hero", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Zero(t, svc.calls)
}

func TestUpload_ServiceFailure(t *testing.T) {
	svc := &fakeService{err: errors.New("failed to upload AVIF: storage unavailable")}
	h := NewHandler(svc, testLimits())
	r := testRouter(h)

	body, contentType := multipartBody(t, "hero.jpg", testJPEG(t, 2000, 1200))
	req := httptest.NewRequest(http.MethodPost, "/api/hero", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCurrent_OK(t *testing.T) {
	svc := &fakeService{current: model.HeroRecord{HeroURL: "https://cdn.test/x.jpg"}}
	h := NewHandler(svc, testLimits())
	r := testRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/hero", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "https://cdn.test/x.jpg")
}
