package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv(EnvPort, "")
	t.Setenv(EnvDatabaseURL, "")
	t.Setenv(EnvDataDir, "")

	cfg, info, err := LoadConfigFrom(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("LoadConfigFrom() error = %v", err)
	}
	if cfg.Server.Port != 20261 {
		t.Errorf("Port = %d, want 20261", cfg.Server.Port)
	}
	if cfg.Store.Backend != BackendSQLite {
		t.Errorf("Backend = %s, want sqlite", cfg.Store.Backend)
	}
	if cfg.Import.MaxReportDetails != 5 {
		t.Errorf("MaxReportDetails = %d, want 5", cfg.Import.MaxReportDetails)
	}
	if info.PortSpecified {
		t.Error("PortSpecified should be false without a config file")
	}
}

func TestLoadConfigFromToml(t *testing.T) {
	t.Setenv(EnvPort, "")
	t.Setenv(EnvDatabaseURL, "")
	t.Setenv(EnvDataDir, "")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, `
[server]
port = 8080

[import]
zero_coordinates = "valid"
replace_threshold = 100

[auth]
admin_emails = ["Admin@Arica.cl"]
`)

	cfg, info, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("LoadConfigFrom() error = %v", err)
	}
	if cfg.Server.Port != 8080 || !info.PortSpecified {
		t.Errorf("Port = %d (specified %v), want 8080", cfg.Server.Port, info.PortSpecified)
	}
	if cfg.Import.ZeroCoordinates != "valid" || cfg.Import.ReplaceThreshold != 100 {
		t.Errorf("Import = %+v", cfg.Import)
	}
	// 未写出的字段保持默认值
	if cfg.Data.DataDir != "data" {
		t.Errorf("DataDir = %s, want data", cfg.Data.DataDir)
	}
	if !cfg.IsAdminEmail("admin@arica.cl") {
		t.Error("IsAdminEmail should be case-insensitive")
	}
	if cfg.IsAdminEmail("otro@arica.cl") || cfg.IsAdminEmail("") {
		t.Error("IsAdminEmail should reject unknown emails")
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv(EnvPort, "9090")
	t.Setenv(EnvDatabaseURL, "postgres://u:p@localhost/rolmap")
	t.Setenv(EnvDataDir, "/tmp/rolmap-data")

	cfg, info, err := LoadConfigFrom(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("LoadConfigFrom() error = %v", err)
	}
	if cfg.Server.Port != 9090 || !info.PortSpecified {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Store.Backend != BackendPostgres || cfg.Store.PostgresURL == "" {
		t.Errorf("Store = %+v, want postgres", cfg.Store)
	}
	if cfg.Data.DataDir != "/tmp/rolmap-data" {
		t.Errorf("DataDir = %s", cfg.Data.DataDir)
	}
}

func TestLoadConfigDotEnv(t *testing.T) {
	t.Setenv(EnvPort, "")
	t.Setenv(EnvDatabaseURL, "")
	t.Setenv(EnvDataDir, "")
	// godotenv 不覆盖已存在的变量，先取消设置
	os.Unsetenv(EnvDataDir)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".env"), EnvDataDir+"=/srv/rolmap\n")

	cfg, _, err := LoadConfigFrom(filepath.Join(dir, "config.toml"))
	os.Unsetenv(EnvDataDir)
	if err != nil {
		t.Fatalf("LoadConfigFrom() error = %v", err)
	}
	if cfg.Data.DataDir != "/srv/rolmap" {
		t.Errorf("DataDir = %s, want /srv/rolmap", cfg.Data.DataDir)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	t.Setenv(EnvPort, "")
	t.Setenv(EnvDatabaseURL, "")
	t.Setenv(EnvDataDir, "")

	tests := []struct {
		name    string
		content string
	}{
		{"bad toml", "[server\nport = 1"},
		{"unknown backend", "[store]\nbackend = \"mysql\""},
		{"postgres without url", "[store]\nbackend = \"postgres\""},
		{"bad zero policy", "[import]\nzero_coordinates = \"maybe\""},
		{"negative threshold", "[import]\nreplace_threshold = -1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			writeFile(t, path, tt.content)
			if _, _, err := LoadConfigFrom(path); err == nil {
				t.Error("LoadConfigFrom() should fail")
			}
		})
	}

	t.Setenv(EnvPort, "not-a-port")
	if _, _, err := LoadConfigFrom(filepath.Join(t.TempDir(), "config.toml")); err == nil {
		t.Error("invalid ROLMAP_PORT should fail")
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	t.Setenv(EnvPort, "")
	t.Setenv(EnvDatabaseURL, "")
	t.Setenv(EnvDataDir, "")

	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := DefaultConfig()
	cfg.Auth.AdminEmails = []string{"a@b.cl"}
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}

	got, _, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("LoadConfigFrom() error = %v", err)
	}
	if len(got.Auth.AdminEmails) != 1 || got.Auth.AdminEmails[0] != "a@b.cl" {
		t.Errorf("AdminEmails = %v", got.Auth.AdminEmails)
	}
}

func TestEnsureDataDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Data.DataDir = filepath.Join(t.TempDir(), "data")

	dir, err := EnsureDataDir(cfg)
	if err != nil {
		t.Fatalf("EnsureDataDir() error = %v", err)
	}
	for _, sub := range []string{"cache"} {
		if _, err := os.Stat(filepath.Join(dir, sub)); err != nil {
			t.Errorf("missing subdir %s: %v", sub, err)
		}
	}
	if got := GetDataPath(cfg, "cache", "x.json"); got != filepath.Join(dir, "cache", "x.json") {
		t.Errorf("GetDataPath() = %s", got)
	}
}
