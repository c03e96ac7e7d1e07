package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FILEDROP_CONFIG_DIR", dir)
	t.Setenv("FILEDROP_LISTEN_ADDR", "")
	t.Setenv("FILEDROP_DB", "")
	t.Setenv("FILEDROP_STORAGE_ROOT", "")
	t.Setenv("FILEDROP_MAX_UPLOAD_BYTES", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != DefaultListenAddr {
		t.Errorf("listen addr: expected %q, got %q", DefaultListenAddr, cfg.ListenAddr)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("log level: expected %q, got %q", DefaultLogLevel, cfg.LogLevel)
	}
	if filepath.Base(cfg.DBPath) != DefaultDBFileName {
		t.Errorf("db path: expected %q basename, got %q", DefaultDBFileName, cfg.DBPath)
	}
	if cfg.StorageRoot != filepath.Join(filepath.Dir(cfg.DBPath), DefaultStorageDirName) {
		t.Errorf("storage root should default next to db, got %q", cfg.StorageRoot)
	}
	if cfg.Uploads.MaxUploadBytes != DefaultMaxUploadBytes {
		t.Errorf("max upload bytes: expected %d, got %d", DefaultMaxUploadBytes, cfg.Uploads.MaxUploadBytes)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := `
listen_addr = "0.0.0.0:9999"
db_path = "/data/drop.db"
log_level = "debug"

[uploads]
max_upload_bytes = 1024
`
	if err := os.WriteFile(filepath.Join(dir, "filedrop.toml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("FILEDROP_CONFIG_DIR", dir)
	t.Setenv("FILEDROP_LISTEN_ADDR", "")
	t.Setenv("FILEDROP_DB", "")
	t.Setenv("FILEDROP_STORAGE_ROOT", "")
	t.Setenv("FILEDROP_MAX_UPLOAD_BYTES", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != "0.0.0.0:9999" {
		t.Errorf("listen addr: got %q", cfg.ListenAddr)
	}
	if cfg.DBPath != "/data/drop.db" {
		t.Errorf("db path: got %q", cfg.DBPath)
	}
	if cfg.StorageRoot != filepath.Join("/data", "uploads") {
		t.Errorf("storage root: got %q", cfg.StorageRoot)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level: got %q", cfg.LogLevel)
	}
	if cfg.Uploads.MaxUploadBytes != 1024 {
		t.Errorf("max upload bytes: got %d", cfg.Uploads.MaxUploadBytes)
	}
	if cfg.Uploads.MultipartMaxMemory != DefaultMultipartMaxMemory {
		t.Errorf("multipart max memory should keep default, got %d", cfg.Uploads.MultipartMaxMemory)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	content := `listen_addr = "127.0.0.1:1111"` + "\n" + `db_path = "/file/drop.db"` + "\n"
	if err := os.WriteFile(filepath.Join(dir, "filedrop.toml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("FILEDROP_CONFIG_DIR", dir)
	t.Setenv("FILEDROP_LISTEN_ADDR", "127.0.0.1:2222")
	t.Setenv("FILEDROP_DB", "/env/drop.db")
	t.Setenv("FILEDROP_STORAGE_ROOT", "/env/blobs")
	t.Setenv("FILEDROP_MAX_UPLOAD_BYTES", "2048")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:2222" {
		t.Errorf("env should win over file, got %q", cfg.ListenAddr)
	}
	if cfg.DBPath != "/env/drop.db" {
		t.Errorf("db path: got %q", cfg.DBPath)
	}
	if cfg.StorageRoot != "/env/blobs" {
		t.Errorf("storage root: got %q", cfg.StorageRoot)
	}
	if cfg.Uploads.MaxUploadBytes != 2048 {
		t.Errorf("max upload bytes: got %d", cfg.Uploads.MaxUploadBytes)
	}
}

func TestPathUsesConfigDirOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FILEDROP_CONFIG_DIR", dir)

	path, err := Path()
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	if path != filepath.Join(dir, "filedrop.toml") {
		t.Fatalf("unexpected path %q", path)
	}
}

func TestSetKeyRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filedrop.toml")

	if err := SetKey(path, "listen_addr", "127.0.0.1:7777"); err != nil {
		t.Fatalf("set listen_addr: %v", err)
	}
	if err := SetKey(path, "uploads.max_upload_bytes", "4096"); err != nil {
		t.Fatalf("set uploads.max_upload_bytes: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load file: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:7777" {
		t.Errorf("listen addr: got %q", cfg.ListenAddr)
	}
	if cfg.Uploads.MaxUploadBytes != 4096 {
		t.Errorf("max upload bytes: got %d", cfg.Uploads.MaxUploadBytes)
	}

	got, err := cfg.Get("uploads.max_upload_bytes")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "4096" {
		t.Errorf("get returned %q", got)
	}
}

func TestSetKeyRejectsUnknownAndBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filedrop.toml")

	if err := SetKey(path, "nope", "x"); err == nil {
		t.Error("expected error for unknown key")
	}
	if err := SetKey(path, "uploads.max_upload_bytes", "-5"); err == nil {
		t.Error("expected error for non-positive size")
	}
	if err := SetKey(path, "uploads.max_upload_bytes", "lots"); err == nil {
		t.Error("expected error for non-numeric size")
	}
}
