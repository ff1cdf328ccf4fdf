package home

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("with explicit path", func(t *testing.T) {
		dir, err := New("/tmp/test-messiahx")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dir.Path() != "/tmp/test-messiahx" {
			t.Errorf("expected path /tmp/test-messiahx, got %s", dir.Path())
		}
	})

	t.Run("with empty path uses default", func(t *testing.T) {
		dir, err := New("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, DefaultDirName)
		if dir.Path() != expected {
			t.Errorf("expected path %s, got %s", expected, dir.Path())
		}
	})
}

func TestDir_Paths(t *testing.T) {
	dir, _ := New("/tmp/test-messiahx")

	t.Run("ConfigPath", func(t *testing.T) {
		expected := "/tmp/test-messiahx/config.yaml"
		if dir.ConfigPath() != expected {
			t.Errorf("expected %s, got %s", expected, dir.ConfigPath())
		}
	})

	t.Run("PromptsPath", func(t *testing.T) {
		expected := "/tmp/test-messiahx/prompts.json"
		if dir.PromptsPath() != expected {
			t.Errorf("expected %s, got %s", expected, dir.PromptsPath())
		}
	})
}

func TestDir_EnsureExists(t *testing.T) {
	dir, err := New(filepath.Join(t.TempDir(), "messiahx-test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dir.Exists() {
		t.Error("directory should not exist before EnsureExists")
	}
	if err := dir.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists failed: %v", err)
	}
	if !dir.Exists() {
		t.Error("directory should exist after EnsureExists")
	}
	// Idempotent
	if err := dir.EnsureExists(); err != nil {
		t.Fatalf("second EnsureExists failed: %v", err)
	}
}

func TestDir_FilesExist(t *testing.T) {
	dir, _ := New(t.TempDir())

	if dir.ConfigExists() || dir.PromptsExists() {
		t.Error("files should not exist initially")
	}

	if err := os.WriteFile(dir.ConfigPath(), []byte("test: true\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}
	if err := os.WriteFile(dir.PromptsPath(), []byte("{}"), 0644); err != nil {
		t.Fatalf("failed to create test prompts: %v", err)
	}

	if !dir.ConfigExists() {
		t.Error("config should exist after creation")
	}
	if !dir.PromptsExists() {
		t.Error("prompts should exist after creation")
	}
}
