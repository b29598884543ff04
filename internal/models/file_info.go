// Package models contains domain types for the PDF to JSON demo.
package models

import (
	"fmt"
	"strings"
	"time"
)

// PDFMimeType is the content type accepted by the demo upload.
const PDFMimeType = "application/pdf"

// FileInfo represents a file selected into a demo session.
type FileInfo struct {
	ID         string    `json:"id" msgpack:"id"`
	Name       string    `json:"name" msgpack:"name"`
	Size       int64     `json:"sizeBytes" msgpack:"sizeBytes"`
	MimeType   string    `json:"mimeType" msgpack:"mimeType"`
	Pages      int       `json:"pages,omitempty" msgpack:"pages,omitempty"` // 0 when unknown
	UploadedAt time.Time `json:"uploadedAt" msgpack:"uploadedAt"`
}

// SizeLabel formats the size the way the review header shows it, e.g. "12.3 KB".
func (f *FileInfo) SizeLabel() string {
	if f == nil {
		return "0.0 KB"
	}
	return fmt.Sprintf("%.1f KB", float64(f.Size)/1024)
}

// AcceptsPDF reports whether a chosen file passes the upload filter: a PDF
// content type or a ".pdf" name in any letter case.
func AcceptsPDF(name, mimeType string) bool {
	return mimeType == PDFMimeType || strings.HasSuffix(strings.ToLower(name), ".pdf")
}
