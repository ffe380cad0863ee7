package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileBackend_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	b := openFileBackend(path)
	if err := b.SetString("backend.url", "http://kb:8000"); err != nil {
		t.Fatalf("SetString: %v", err)
	}
	if err := b.SetInt("server.port", 4100); err != nil {
		t.Fatalf("SetInt: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}

	reopened := openFileBackend(path)
	if v, ok, err := reopened.GetString("backend.url"); err != nil || !ok || v != "http://kb:8000" {
		t.Errorf("GetString = %q, %v, %v", v, ok, err)
	}
	if v, ok, err := reopened.GetInt("server.port"); err != nil || !ok || v != 4100 {
		t.Errorf("GetInt = %d, %v, %v", v, ok, err)
	}

	if err := reopened.Delete("server.port"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := openFileBackend(path).GetInt("server.port"); ok {
		t.Error("expected server.port to be deleted")
	}
}

func TestFileBackend_GetIntRejectsFractions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte(`{"server.port": 4000.5, "cache.ttl": "5m", "backend.search_score_threshold": 0.75}`), 0o600)

	b := openFileBackend(path)
	if _, ok, err := b.GetInt("server.port"); !ok || err == nil {
		t.Errorf("expected error for fractional port, got ok=%v err=%v", ok, err)
	}
	if v, _, _ := b.GetString("backend.search_score_threshold"); v != "0.75" {
		t.Errorf("float as string = %q, want 0.75", v)
	}
}

func TestFileBackend_CorruptFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte(`{not json`), 0o600)

	b := openFileBackend(path)
	if _, ok, _ := b.GetString("backend.url"); ok {
		t.Error("corrupt file should read as empty")
	}
}

func TestConfigDirOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ARVOCHAT_CONFIG_DIR", dir)

	if got := configFilePath(); got != filepath.Join(dir, "config.json") {
		t.Errorf("configFilePath = %q", got)
	}
	if got := secretsFilePath(); got != filepath.Join(dir, "secrets.json") {
		t.Errorf("secretsFilePath = %q", got)
	}
}
