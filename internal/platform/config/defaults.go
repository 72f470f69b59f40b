package config

import "time"

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			IP:             "0.0.0.0",
			Port:           8080,
			RequestTimeout: 30 * time.Second,
			MaxUploadBytes: 20 << 20,
			AllowOrigins:   []string{"*"},
		},
		Log: LogConfig{
			Level: "INFO",
			Dir:   "data/logs",
			File:  "image-sizer.log",
		},
		Render: RenderConfig{
			ServerResampler:      "imaging",
			InteractiveResampler: "xdraw",
			PNGCompression:       "default",
		},
		Security: SecurityConfig{
			MaxFileSize:    20 << 20,
			MaxPixels:      64 * 1024 * 1024,
			MaxWidth:       16384,
			MaxHeight:      16384,
			AllowedFormats: []string{"png", "jpeg", "gif", "webp", "bmp", "tiff"},
			EnableDeepScan: true,
		},
		Handles: HandlesConfig{
			Driver:  "memory",
			TTL:     30 * time.Minute,
			Cleanup: time.Minute,
			Redis: HandlesRedisConfig{
				Addr:   "127.0.0.1:6379",
				Prefix: "image-sizer:handle:",
			},
			SQLite: HandlesSQLiteConfig{
				DSN: "data/handles.db",
			},
		},
		Jobs: JobsConfig{
			MaxActive: 16,
		},
		Watch: WatchConfig{
			Dir:     "inbox",
			OutDir:  "outbox",
			SizeIDs: []string{"favicon-ico", "apple-touch-icon", "android-192", "android-512"},
		},
	}
}
