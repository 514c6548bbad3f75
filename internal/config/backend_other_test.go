//go:build !darwin

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileBackendRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	b := newPlatformBackend()
	if err := b.SetString("runner.base_model", "gpt2"); err != nil {
		t.Fatalf("SetString: %v", err)
	}
	if err := b.SetInt("server.port", 9999); err != nil {
		t.Fatalf("SetInt: %v", err)
	}

	// A fresh backend re-reads the file from disk.
	fresh := newPlatformBackend()

	s, ok, err := fresh.GetString("runner.base_model")
	if err != nil || !ok {
		t.Fatalf("GetString: ok=%v err=%v", ok, err)
	}
	if s != "gpt2" {
		t.Errorf("runner.base_model = %q, want %q", s, "gpt2")
	}

	i, ok, err := fresh.GetInt("server.port")
	if err != nil || !ok {
		t.Fatalf("GetInt: ok=%v err=%v", ok, err)
	}
	if i != 9999 {
		t.Errorf("server.port = %d, want 9999", i)
	}

	if err := fresh.Delete("server.port"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := newPlatformBackend().GetInt("server.port"); ok {
		t.Error("server.port still present after Delete")
	}
}

func TestFileBackendIntFromString(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	b := newPlatformBackend()
	if err := b.SetString("server.port", "1234"); err != nil {
		t.Fatalf("SetString: %v", err)
	}

	i, ok, err := b.GetInt("server.port")
	if err != nil || !ok {
		t.Fatalf("GetInt: ok=%v err=%v", ok, err)
	}
	if i != 1234 {
		t.Errorf("server.port = %d, want 1234", i)
	}
}

func TestSetKeyRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if err := SetKey("server.port", "9999"); err != nil {
		t.Fatalf("SetKey int: %v", err)
	}
	if err := SetKey("generate.top_p", "0.42"); err != nil {
		t.Fatalf("SetKey float: %v", err)
	}

	b := newPlatformBackend()
	if i, ok, _ := b.GetInt("server.port"); !ok || i != 9999 {
		t.Errorf("server.port = %d (ok=%v), want 9999", i, ok)
	}
	if s, ok, _ := b.GetString("generate.top_p"); !ok || s != "0.42" {
		t.Errorf("generate.top_p = %q (ok=%v), want %q", s, ok, "0.42")
	}
}

func TestDefaultDataDirXDG(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")

	got := defaultDataDir()
	want := filepath.Join("/tmp/xdg-data", "faqforge")
	if got != want {
		t.Errorf("defaultDataDir() = %q, want %q", got, want)
	}
}

func TestKeychainExecReadsSecretsFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)

	secretsDir := filepath.Join(dir, "faqforge")
	if err := os.MkdirAll(secretsDir, 0o700); err != nil {
		t.Fatal(err)
	}
	content := `{"faqforge": {"api_token": "s3cret"}}`
	if err := os.WriteFile(filepath.Join(secretsDir, "secrets.json"), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := keychainExec("faqforge", "api_token")
	if err != nil {
		t.Fatalf("keychainExec: %v", err)
	}
	if string(out) != "s3cret" {
		t.Errorf("keychainExec = %q, want %q", out, "s3cret")
	}

	if _, err := keychainExec("faqforge", "missing"); err == nil {
		t.Error("expected error for missing account")
	}
}
