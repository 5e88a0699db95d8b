package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ExplicitFileMissing(t *testing.T) {
	t.Setenv("MINDMESH_ENV", filepath.Join(t.TempDir(), "missing.env"))

	if err := Load(); err == nil {
		t.Fatal("expected error for a named env file that does not exist")
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(envFile, []byte("MINDMESH_TEST_SENTINEL=loaded\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MINDMESH_ENV", envFile)

	if err := Load(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := os.Getenv("MINDMESH_TEST_SENTINEL"); got != "loaded" {
		t.Errorf("MINDMESH_TEST_SENTINEL = %q, want loaded", got)
	}
	t.Cleanup(func() { _ = os.Unsetenv("MINDMESH_TEST_SENTINEL") })
}

func TestLoad_DefaultFilesOptional(t *testing.T) {
	t.Setenv("MINDMESH_ENV", "")

	if err := Load(); err != nil {
		t.Fatalf("expected missing default .env to be fine, got %v", err)
	}
}
