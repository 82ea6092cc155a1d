package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnvSetsVariables(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\nTEST_ENV_A=hello\nTEST_ENV_B=\"quoted value\"\n\nbroken-line\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("TEST_ENV_A", "")
	os.Unsetenv("TEST_ENV_A")
	t.Setenv("TEST_ENV_B", "")
	os.Unsetenv("TEST_ENV_B")

	if err := LoadEnv(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv("TEST_ENV_A"); got != "hello" {
		t.Fatalf("expected hello, got %q", got)
	}
	if got := os.Getenv("TEST_ENV_B"); got != "quoted value" {
		t.Fatalf("expected quotes stripped, got %q", got)
	}
}

func TestLoadEnvDoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("TEST_ENV_C=file\n"), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("TEST_ENV_C", "environment")

	if err := LoadEnv(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv("TEST_ENV_C"); got != "environment" {
		t.Fatalf("expected existing value to win, got %q", got)
	}
}

func TestLoadEnvMissingFile(t *testing.T) {
	if err := LoadEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("expected missing file to be ignored, got %v", err)
	}
}
