package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadFromValue(t *testing.T) {
	secret, err := Load(Source{Name: "gemini api key", Value: "  key-123  "})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if secret != "key-123" {
		t.Errorf("got %q, want trimmed key-123", secret)
	}
}

func TestLoadFilePrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte("file-key\n"), 0o600); err != nil {
		t.Fatalf("writing key file: %v", err)
	}

	secret, err := Load(Source{Name: "gemini api key", Value: "inline-key", File: path})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if secret != "file-key" {
		t.Errorf("got %q, want file contents to win over inline value", secret)
	}
}

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent")

	_, err := Load(Source{Name: "gemini api key", File: path})
	if err == nil {
		t.Fatal("Load returned nil error for missing file")
	}

	if !strings.Contains(err.Error(), "gemini api key") {
		t.Errorf("error %q does not name the secret", err)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte("   \n"), 0o600); err != nil {
		t.Fatalf("writing key file: %v", err)
	}

	_, err := Load(Source{Name: "gemini api key", File: path})
	if err == nil {
		t.Fatal("Load returned nil error for empty file")
	}

	if !strings.Contains(err.Error(), "is empty") {
		t.Errorf("got error %q, want empty file error", err)
	}
}

func TestLoadNotConfigured(t *testing.T) {
	_, err := Load(Source{Name: "gemini api key"})
	if err == nil {
		t.Fatal("Load returned nil error for empty source")
	}

	if !strings.Contains(err.Error(), "not configured") {
		t.Errorf("got error %q, want not configured error", err)
	}
}
