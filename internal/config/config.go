package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"github.com/wb-go/wbf/zlog"
)

// Config holds the main configuration for the application.
type Config struct {
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	Storage  Storage  `mapstructure:"storage"`
	Kafka    Kafka    `mapstructure:"kafka"`
	Retry    Retry    `mapstructure:"retry"`
	Hero     Hero     `mapstructure:"hero"`
	Upload   Upload   `mapstructure:"upload"`
}

// Server holds HTTP server-related configuration.
type Server struct {
	HTTPPort string `mapstructure:"http_port"` // HTTP port to listen on
}

// Database holds database master and slave configuration.
type Database struct {
	Master DatabaseNode   `mapstructure:"master"`
	Slaves []DatabaseNode `mapstructure:"slaves"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DatabaseNode holds connection parameters for a single database node.
type DatabaseNode struct {
	Host    string `mapstructure:"host"`
	Port    string `mapstructure:"port"`
	User    string `mapstructure:"user"`
	Pass    string `mapstructure:"pass"`
	Name    string `mapstructure:"name"`
	SSLMode string `mapstructure:"ssl_mode"`
}

// Storage holds configuration for the object storage backend.
type Storage struct {
	Endpoint   string `mapstructure:"endpoint"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	BucketName string `mapstructure:"bucket_name"`
	UseSSL     bool   `mapstructure:"use_ssl"`
}

// Kafka holds configuration for the Kafka message queue.
type Kafka struct {
	GroupID        string   `mapstructure:"group_id"`        // Consumer group ID
	ProcessedTopic string   `mapstructure:"processed_topic"` // hero processed events
	OrphanTopic    string   `mapstructure:"orphan_topic"`    // stranded object cleanup events
	Brokers        []string `mapstructure:"brokers"`         // List of Kafka broker addresses
}

// Retry defines retry policy configuration.
type Retry struct {
	Attempts int           `mapstructure:"attempts"` // Number of retry attempts
	Delay    time.Duration `mapstructure:"delay"`    // Initial delay between retries
	Backoff  float64       `mapstructure:"backoff"`  // Backoff multiplier for delays
}

// Breakpoint defines one responsive output size and its base encode quality.
type Breakpoint struct {
	Width   int `mapstructure:"width"`
	Height  int `mapstructure:"height"`
	Quality int `mapstructure:"quality"`
}

// Watermark configures the optional studio credit drawn on variants.
type Watermark struct {
	Enabled  bool    `mapstructure:"enabled"`
	Text     string  `mapstructure:"text"`
	FontPath string  `mapstructure:"font_path"`
	Opacity  float64 `mapstructure:"opacity"`
}

// Hero holds the variant matrix and optimization policy for hero images.
type Hero struct {
	Mobile  Breakpoint `mapstructure:"mobile"`
	Tablet  Breakpoint `mapstructure:"tablet"`
	Desktop Breakpoint `mapstructure:"desktop"`

	Formats           []string  `mapstructure:"formats"`
	StripMetadata     bool      `mapstructure:"strip_metadata"`
	ProgressiveJPEG   bool      `mapstructure:"progressive_jpeg"`
	ChromaSubsampling string    `mapstructure:"chroma_subsampling"`
	Watermark         Watermark `mapstructure:"watermark"`
}

// Upload holds the input contract enforced at the HTTP boundary.
type Upload struct {
	AllowedTypes []string `mapstructure:"allowed_types"`
	MaxBytes     int64    `mapstructure:"max_bytes"`
	MinWidth     int      `mapstructure:"min_width"`
	MinHeight    int      `mapstructure:"min_height"`
}

// webpQualityLift mirrors the encode policy: WebP is encoded at base
// quality + 5, so the base must leave headroom for it.
const webpQualityLift = 5

// DSN returns the PostgreSQL DSN string for connecting to this database node.
func (n DatabaseNode) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		n.User, n.Pass, n.Host, n.Port, n.Name, n.SSLMode,
	)
}

// Validate checks the hero matrix and upload limits.
// A quality value whose WebP lift would leave the encoder's [1,100] range
// is a configuration error, not something to clamp at request time.
func (c *Config) Validate() error {
	named := map[string]Breakpoint{
		"mobile":  c.Hero.Mobile,
		"tablet":  c.Hero.Tablet,
		"desktop": c.Hero.Desktop,
	}

	for name, bp := range named {
		if bp.Width <= 0 || bp.Height <= 0 {
			return fmt.Errorf("breakpoint %s: width and height must be positive", name)
		}
		if bp.Quality < 1 || bp.Quality > 100 {
			return fmt.Errorf("breakpoint %s: quality %d outside [1,100]", name, bp.Quality)
		}
		if bp.Quality+webpQualityLift > 100 {
			return fmt.Errorf("breakpoint %s: quality %d leaves no headroom for the WebP lift (+%d)", name, bp.Quality, webpQualityLift)
		}
	}

	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload: max_bytes must be positive")
	}
	if c.Upload.MinWidth <= 0 || c.Upload.MinHeight <= 0 {
		return fmt.Errorf("upload: minimum dimensions must be positive")
	}
	if len(c.Upload.AllowedTypes) == 0 {
		return fmt.Errorf("upload: at least one allowed MIME type is required")
	}

	return nil
}

// mustBindEnv binds critical environment variables to Viper keys.
//
// It panics if any environment variable cannot be bound.
func mustBindEnv() {
	bindings := map[string]string{
		"database.master.host": "DB_HOST",
		"database.master.port": "DB_PORT",
		"database.master.user": "DB_USER",
		"database.master.pass": "DB_PASSWORD",
		"database.master.name": "DB_NAME",
		"storage.access_key":   "STORAGE_ACCESS_KEY",
		"storage.secret_key":   "STORAGE_SECRET_KEY",
	}

	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			zlog.Logger.Panic().Err(err).Msgf("failed to bind env %s", env)
		}
	}
}

// setDefaults seeds the hero matrix and upload limits so a minimal config
// file still yields the standard variant set.
func setDefaults() {
	viper.SetDefault("hero.mobile.width", 768)
	viper.SetDefault("hero.mobile.height", 1024)
	viper.SetDefault("hero.mobile.quality", 85)
	viper.SetDefault("hero.tablet.width", 1024)
	viper.SetDefault("hero.tablet.height", 768)
	viper.SetDefault("hero.tablet.quality", 85)
	viper.SetDefault("hero.desktop.width", 1920)
	viper.SetDefault("hero.desktop.height", 1080)
	viper.SetDefault("hero.desktop.quality", 90)
	viper.SetDefault("hero.formats", []string{"avif", "webp", "jpeg"})
	viper.SetDefault("hero.strip_metadata", true)
	viper.SetDefault("hero.progressive_jpeg", true)
	viper.SetDefault("hero.chroma_subsampling", "4:2:0")

	viper.SetDefault("upload.allowed_types", []string{"image/jpeg", "image/png", "image/webp"})
	viper.SetDefault("upload.max_bytes", 10*1024*1024)
	viper.SetDefault("upload.min_width", 1920)
	viper.SetDefault("upload.min_height", 1080)
}

// MustLoad loads the configuration from the specified file path.
// It panics if the configuration file cannot be loaded, unmarshaled,
// or fails validation.
func MustLoad(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(path)
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		zlog.Logger.Panic().Err(err).Msg("failed to read config")
	}

	mustBindEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		zlog.Logger.Panic().Err(err).Msgf("failed to unmarshal config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		zlog.Logger.Panic().Err(err).Msg("invalid config")
	}

	return &cfg
}
