package pdfinfo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageCount_NotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.pdf")
	if err := os.WriteFile(path, []byte("this is not a pdf"), 0644); err != nil {
		t.Fatal(err)
	}

	n, err := PageCount(path)
	assert.Error(t, err)
	assert.Zero(t, n)
}

func TestPageCount_MissingFile(t *testing.T) {
	_, err := PageCount(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}

func TestExtractPages_NotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4\ngarbage"), 0644); err != nil {
		t.Fatal(err)
	}

	pages, err := ExtractPages(path)
	assert.Error(t, err)
	assert.Empty(t, pages)
}
