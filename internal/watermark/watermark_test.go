package watermark

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_Defaults(t *testing.T) {
	s := New("", "fonts/studio.ttf", 0)
	assert.Equal(t, "© Lumeshot Studio", s.text)
	assert.InDelta(t, 0.6, s.opacity, 0.001)

	s = New("© Another Studio", "fonts/studio.ttf", 0.4)
	assert.Equal(t, "© Another Studio", s.text)
	assert.InDelta(t, 0.4, s.opacity, 0.001)
}

func TestStamp_MissingFont(t *testing.T) {
	s := New("credit", "testdata/does-not-exist.ttf", 0.5)

	img := image.NewRGBA(image.Rect(0, 0, 100, 80))
	_, err := s.Stamp(img)
	assert.ErrorContains(t, err, "failed to load font")
}
