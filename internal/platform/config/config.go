package config

import (
	"time"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Render   RenderConfig   `yaml:"render"`
	Security SecurityConfig `yaml:"security"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Handles  HandlesConfig  `yaml:"handles"`
	Jobs     JobsConfig     `yaml:"jobs"`
	Watch    WatchConfig    `yaml:"watch"`
	Obs      ObsConfig      `yaml:"observability"`
}

type ServerConfig struct {
	IP             string        `yaml:"ip"`
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	StaticDir      string        `yaml:"static_dir"`
	AllowOrigins   []string      `yaml:"allow_origins"`
}

// Timeout is the ceiling on one request, defaulting to 30s when unset.
func (s ServerConfig) Timeout() time.Duration {
	if s.RequestTimeout <= 0 {
		return 30 * time.Second
	}
	return s.RequestTimeout
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

// RenderConfig selects the resampler used by each substrate.
type RenderConfig struct {
	ServerResampler      string `yaml:"server_resampler"`
	InteractiveResampler string `yaml:"interactive_resampler"`
	// PNGCompression is one of default, speed, best, none.
	PNGCompression string `yaml:"png_compression"`
}

type SecurityConfig struct {
	MaxFileSize    int64    `yaml:"max_file_size"`
	MaxPixels      int64    `yaml:"max_pixels"`
	MaxWidth       int      `yaml:"max_width"`
	MaxHeight      int      `yaml:"max_height"`
	AllowedFormats []string `yaml:"allowed_formats"`
	EnableDeepScan bool     `yaml:"enable_deep_scan"`
}

// CatalogConfig points at an optional YAML preset file merged over the built-in catalog.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

type HandlesConfig struct {
	Driver  string              `yaml:"driver"`
	TTL     time.Duration       `yaml:"ttl"`
	Cleanup time.Duration       `yaml:"cleanup"`
	Redis   HandlesRedisConfig  `yaml:"redis"`
	SQLite  HandlesSQLiteConfig `yaml:"sqlite"`
}

type HandlesRedisConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

type HandlesSQLiteConfig struct {
	DSN string `yaml:"dsn"`
}

type JobsConfig struct {
	MaxActive int `yaml:"max_active"`
}

// WatchConfig drives the CLI inbox watcher.
type WatchConfig struct {
	Dir     string   `yaml:"dir"`
	OutDir  string   `yaml:"out_dir"`
	SizeIDs []string `yaml:"size_ids"`
}

type ObsConfig struct {
	Enabled bool `yaml:"enabled"`
}
