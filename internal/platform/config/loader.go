package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath    = "IMAGE_SIZER_CONFIG"
	EnvPort          = "IMAGE_SIZER_PORT"
	EnvLogLevel      = "IMAGE_SIZER_LOG_LEVEL"
	EnvHandlesDriver = "IMAGE_SIZER_HANDLES_DRIVER"
	EnvRedisAddr     = "IMAGE_SIZER_REDIS_ADDR"

	defaultConfigPath = "config.yaml"
)

var validResamplers = map[string]bool{"imaging": true, "nfnt": true, "xdraw": true}

var validDrivers = map[string]bool{"memory": true, "redis": true, "sqlite": true}

// Loader reads config.yaml over DefaultConfig and applies environment overrides.
type Loader struct {
	useDotEnv bool
	path      string
}

func NewLoader() *Loader {
	return &Loader{useDotEnv: true}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPath overrides the config file location.
func (l *Loader) WithPath(path string) *Loader {
	l.path = path
	return l
}

// Result captures the loaded configuration and its origin path.
// Path is empty when defaults were used.
type Result struct {
	Config *Config
	Path   string
}

func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		// a missing .env is normal; the process environment is used as is
		_ = godotenv.Load()
	}

	path := l.path
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	explicit := path != ""
	if path == "" {
		path = defaultConfigPath
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		path = ""
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := l.validate(cfg); err != nil {
		return nil, err
	}

	return &Result{Config: cfg, Path: path}, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPort, err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(EnvHandlesDriver); v != "" {
		cfg.Handles.Driver = strings.ToLower(v)
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		cfg.Handles.Redis.Addr = v
	}
	return nil
}

// Validate checks the invariants the rest of the service relies on.
func Validate(cfg *Config) error {
	return (&Loader{}).validate(cfg)
}

func (l *Loader) validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout < 0 {
		return fmt.Errorf("invalid request timeout: %s", cfg.Server.RequestTimeout)
	}
	for _, name := range []string{cfg.Render.ServerResampler, cfg.Render.InteractiveResampler} {
		if name != "" && !validResamplers[name] {
			return fmt.Errorf("unknown resampler: %q", name)
		}
	}
	if cfg.Handles.Driver != "" && !validDrivers[cfg.Handles.Driver] {
		return fmt.Errorf("unknown handle store driver: %q", cfg.Handles.Driver)
	}
	if cfg.Handles.TTL < 0 {
		return fmt.Errorf("invalid handle ttl: %s", cfg.Handles.TTL)
	}
	if cfg.Jobs.MaxActive < 0 {
		return fmt.Errorf("invalid jobs.max_active: %d", cfg.Jobs.MaxActive)
	}
	return nil
}
