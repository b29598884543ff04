// Package pdfinfo reads page metadata and the text layer of PDF files.
//
// Uses github.com/ledongthuc/pdf. Only the embedded text layer is read; scanned
// PDFs yield empty pages.
package pdfinfo

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Page is the plain text of one page, numbered from 1.
type Page struct {
	Number int    `json:"page"`
	Text   string `json:"text"`
}

// PageCount returns the number of pages in the PDF at path.
func PageCount(path string) (n int, err error) {
	// The reader panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read pdf %s: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return r.NumPage(), nil
}

// ExtractPages returns the trimmed plain text of every non-null page.
func ExtractPages(path string) (pages []Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read pdf %s: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}

		for _, name := range p.Fonts() {
			if _, ok := fonts[name]; !ok {
				font := p.Font(name)
				fonts[name] = &font
			}
		}

		text, pageErr := p.GetPlainText(fonts)
		if pageErr != nil {
			return nil, fmt.Errorf("read pdf page %d: %w", i, pageErr)
		}
		pages = append(pages, Page{Number: i, Text: strings.TrimSpace(text)})
	}

	return pages, nil
}
