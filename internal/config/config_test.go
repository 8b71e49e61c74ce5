package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Hero: Hero{
			Mobile:  Breakpoint{Width: 768, Height: 1024, Quality: 85},
			Tablet:  Breakpoint{Width: 1024, Height: 768, Quality: 85},
			Desktop: Breakpoint{Width: 1920, Height: 1080, Quality: 90},
		},
		Upload: Upload{
			AllowedTypes: []string{"image/jpeg", "image/png", "image/webp"},
			MaxBytes:     10 * 1024 * 1024,
			MinWidth:     1920,
			MinHeight:    1080,
		},
	}
}

func TestValidate_DefaultMatrix(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_QualityOutOfRange(t *testing.T) {
	cfg := validConfig()
	cfg.Hero.Tablet.Quality = 0
	assert.ErrorContains(t, cfg.Validate(), "outside [1,100]")

	cfg = validConfig()
	cfg.Hero.Mobile.Quality = 101
	assert.ErrorContains(t, cfg.Validate(), "outside [1,100]")
}

func TestValidate_WebPLiftHeadroom(t *testing.T) {
	// Base 96 would push the WebP quality past 100.
	cfg := validConfig()
	cfg.Hero.Desktop.Quality = 96
	assert.ErrorContains(t, cfg.Validate(), "headroom")

	// Base 95 is the highest allowed.
	cfg = validConfig()
	cfg.Hero.Desktop.Quality = 95
	assert.NoError(t, cfg.Validate())
}

func TestValidate_Dimensions(t *testing.T) {
	cfg := validConfig()
	cfg.Hero.Desktop.Width = 0
	assert.ErrorContains(t, cfg.Validate(), "must be positive")
}

func TestValidate_UploadLimits(t *testing.T) {
	cfg := validConfig()
	cfg.Upload.MaxBytes = 0
	assert.ErrorContains(t, cfg.Validate(), "max_bytes")

	cfg = validConfig()
	cfg.Upload.AllowedTypes = nil
	assert.ErrorContains(t, cfg.Validate(), "allowed MIME type")
}

func TestDatabaseNodeDSN(t *testing.T) {
	n := DatabaseNode{Host: "db", Port: "5432", User: "u", Pass: "p", Name: "studio", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/studio?sslmode=disable", n.DSN())
}
