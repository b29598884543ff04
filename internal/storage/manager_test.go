// manager_test.go - Tests for storage layer
package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func createTestStore(t *testing.T) *LocalStore {
	store, err := NewLocalStore(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return store
}

func TestNewLocalStore(t *testing.T) {
	t.Run("creates upload directory", func(t *testing.T) {
		uploadDir := filepath.Join(t.TempDir(), "uploads")

		store, err := NewLocalStore(uploadDir, 0)
		if err != nil {
			t.Fatalf("Failed to create store: %v", err)
		}

		if _, err := os.Stat(uploadDir); os.IsNotExist(err) {
			t.Error("Expected upload directory to be created")
		}
		if store.uploadDir != uploadDir {
			t.Errorf("Expected uploadDir %s, got %s", uploadDir, store.uploadDir)
		}
	})
}

func TestLocalStore_Save(t *testing.T) {
	t.Run("saves file from reader", func(t *testing.T) {
		store := createTestStore(t)

		content := "%PDF-1.4 fake"
		info, err := store.Save("invoice.pdf", "application/pdf", strings.NewReader(content))
		if err != nil {
			t.Fatalf("Failed to save file: %v", err)
		}

		if info.ID == "" {
			t.Error("Expected ID to be set")
		}
		if info.Name != "invoice.pdf" {
			t.Errorf("Expected name 'invoice.pdf', got %v", info.Name)
		}
		if info.MimeType != "application/pdf" {
			t.Errorf("Expected mime type 'application/pdf', got %v", info.MimeType)
		}
		if info.Size != int64(len(content)) {
			t.Errorf("Expected size %d, got %d", len(content), info.Size)
		}

		data, err := os.ReadFile(filepath.Join(store.uploadDir, info.ID))
		if err != nil {
			t.Fatalf("Failed to read saved file: %v", err)
		}
		if string(data) != content {
			t.Errorf("Expected content '%s', got '%s'", content, string(data))
		}
	})

	t.Run("saves empty file", func(t *testing.T) {
		store := createTestStore(t)

		info, err := store.Save("empty.pdf", "", strings.NewReader(""))
		if err != nil {
			t.Fatalf("Failed to save empty file: %v", err)
		}
		if info.Size != 0 {
			t.Errorf("Expected size 0, got %d", info.Size)
		}
	})

	t.Run("rejects content over the limit", func(t *testing.T) {
		store, err := NewLocalStore(t.TempDir(), 4)
		if err != nil {
			t.Fatalf("Failed to create store: %v", err)
		}

		_, err = store.Save("big.pdf", "application/pdf", strings.NewReader("12345"))
		if !errors.Is(err, ErrTooLarge) {
			t.Fatalf("Expected ErrTooLarge, got %v", err)
		}

		entries, _ := os.ReadDir(store.uploadDir)
		if len(entries) != 0 {
			t.Errorf("Expected oversized file to be removed, found %d entries", len(entries))
		}

		if _, err := store.Save("ok.pdf", "application/pdf", strings.NewReader("1234")); err != nil {
			t.Errorf("Expected file at the limit to be saved, got %v", err)
		}
	})
}

func TestLocalStore_Open(t *testing.T) {
	store := createTestStore(t)

	info, err := store.Save("a.pdf", "application/pdf", strings.NewReader("content"))
	if err != nil {
		t.Fatalf("Failed to save file: %v", err)
	}

	t.Run("resolves path", func(t *testing.T) {
		path, err := store.GetFilePath(info.ID)
		if err != nil {
			t.Fatalf("Failed to get file path: %v", err)
		}
		if filepath.Base(path) != info.ID {
			t.Errorf("Expected path named %s, got %s", info.ID, path)
		}
	})

	t.Run("opens content", func(t *testing.T) {
		rc, err := store.Open(info.ID)
		if err != nil {
			t.Fatalf("Failed to open file: %v", err)
		}
		defer rc.Close()

		data, _ := io.ReadAll(rc)
		if string(data) != "content" {
			t.Errorf("Expected 'content', got %q", data)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		if _, err := store.Open("missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
		if _, err := store.GetFilePath("missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestLocalStore_Delete(t *testing.T) {
	store := createTestStore(t)

	info, err := store.Save("a.pdf", "application/pdf", strings.NewReader("content"))
	if err != nil {
		t.Fatalf("Failed to save file: %v", err)
	}
	path, _ := store.GetFilePath(info.ID)

	if err := store.Delete(info.ID); err != nil {
		t.Fatalf("Failed to delete file: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected physical file to be removed")
	}
	if _, err := store.GetFilePath(info.ID); !errors.Is(err, ErrNotFound) {
		t.Error("Expected metadata to be removed")
	}
	if err := store.Delete(info.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}
