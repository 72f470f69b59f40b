package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoader_Load(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "config.yaml")

	configContent := `
server:
  ip: "127.0.0.1"
  port: 9090
  request_timeout: 10s
log:
  log_level: "DEBUG"
  log_dir: "/tmp/logs"
  log_file: "test.log"
render:
  server_resampler: nfnt
handles:
  driver: sqlite
`
	if err := os.WriteFile(configFile, []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	res, err := NewLoader().WithDotEnv(false).WithPath(configFile).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	cfg := res.Config

	if res.Path != configFile {
		t.Errorf("expected path %s, got %s", configFile, res.Path)
	}
	if cfg.Server.IP != "127.0.0.1" || cfg.Server.Port != 9090 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Server.RequestTimeout != 10*time.Second {
		t.Errorf("expected 10s timeout, got %s", cfg.Server.RequestTimeout)
	}
	if cfg.Render.ServerResampler != "nfnt" {
		t.Errorf("expected nfnt resampler, got %s", cfg.Render.ServerResampler)
	}
	// fields absent from the file keep their defaults
	if cfg.Render.InteractiveResampler != "xdraw" {
		t.Errorf("expected default interactive resampler, got %s", cfg.Render.InteractiveResampler)
	}
	if cfg.Handles.Driver != "sqlite" {
		t.Errorf("expected sqlite driver, got %s", cfg.Handles.Driver)
	}
}

func TestLoader_MissingDefaultFileUsesDefaults(t *testing.T) {
	oldWd, _ := os.Getwd()
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(oldWd)
	t.Setenv(EnvConfigPath, "")

	res, err := NewLoader().WithDotEnv(false).Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Path != "" {
		t.Errorf("expected empty path, got %q", res.Path)
	}
	if res.Config.Server.Port != DefaultConfig().Server.Port {
		t.Errorf("expected default port, got %d", res.Config.Server.Port)
	}
}

func TestLoader_ExplicitMissingFileFails(t *testing.T) {
	_, err := NewLoader().WithDotEnv(false).WithPath(filepath.Join(t.TempDir(), "nope.yaml")).Load()
	if err == nil {
		t.Fatal("expected error for explicit missing config file")
	}
}

func TestLoader_EnvOverrides(t *testing.T) {
	t.Setenv(EnvPort, "7070")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvHandlesDriver, "REDIS")
	t.Setenv(EnvRedisAddr, "redis:6379")

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 8081\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := NewLoader().WithDotEnv(false).WithPath(path).Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg := res.Config
	if cfg.Server.Port != 7070 {
		t.Errorf("expected env port 7070, got %d", cfg.Server.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected debug level, got %s", cfg.Log.Level)
	}
	if cfg.Handles.Driver != "redis" || cfg.Handles.Redis.Addr != "redis:6379" {
		t.Errorf("unexpected handles config: %+v", cfg.Handles)
	}
}

func TestLoader_Validate(t *testing.T) {
	loader := NewLoader()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}, wantErr: false},
		{name: "invalid server port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: true},
		{name: "unknown resampler", mutate: func(c *Config) { c.Render.ServerResampler = "bicubic" }, wantErr: true},
		{name: "unknown driver", mutate: func(c *Config) { c.Handles.Driver = "etcd" }, wantErr: true},
		{name: "negative ttl", mutate: func(c *Config) { c.Handles.TTL = -time.Second }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := loader.validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
