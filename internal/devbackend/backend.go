// Package devbackend is a local stand-in for the PDF parsing service.
//
// It answers POST /parse with the text layer of the uploaded PDF and the
// requested schema fields set to null. The reply format is selected by Mode so
// every branch of response normalization can be exercised by hand.
package devbackend

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pdf2json/landing/internal/logger"
	"github.com/pdf2json/landing/internal/parseclient"
	"github.com/pdf2json/landing/internal/pdfinfo"
)

// Mode selects how the document is written back.
type Mode string

const (
	ModeJSON   Mode = "json"   // plain JSON body
	ModeFenced Mode = "fenced" // JSON inside a markdown code fence
	ModeProse  Mode = "prose"  // JSON surrounded by chatter
	ModeFail   Mode = "fail"   // HTTP 500
)

// ParseMode maps a name to a Mode, defaulting to ModeJSON.
func ParseMode(name string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(name))); m {
	case "":
		return ModeJSON, nil
	case ModeJSON, ModeFenced, ModeProse, ModeFail:
		return m, nil
	default:
		return "", fmt.Errorf("unknown mode %q", name)
	}
}

// Document is the parse result returned to the caller.
type Document struct {
	FileName string         `json:"fileName"`
	Pages    int            `json:"pages"`
	Fields   map[string]any `json:"fields,omitempty"`
	Content  []pdfinfo.Page `json:"content"`
	Warning  string         `json:"warning,omitempty"`
}

// Backend serves the parse endpoint.
type Backend struct {
	mode    Mode
	tempDir string
}

// New creates a backend answering in mode. Uploads are spooled to tempDir,
// or the system temp dir when empty.
func New(mode Mode, tempDir string) *Backend {
	return &Backend{mode: mode, tempDir: tempDir}
}

// Register adds the parse route.
func (b *Backend) Register(e *echo.Echo) {
	e.POST(parseclient.ParsePath, b.HandleParse)
}

// HandleParse reads the multipart "file" and optional "schema" fields.
func (b *Backend) HandleParse(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing file field")
	}

	if b.mode == ModeFail {
		logger.Info("dev backend failing on purpose", "file", fh.Filename)
		return c.String(http.StatusInternalServerError, "parser unavailable")
	}

	doc := Document{
		FileName: fh.Filename,
		Content:  []pdfinfo.Page{},
	}
	if fields := SchemaFields(c.FormValue("schema")); len(fields) > 0 {
		doc.Fields = make(map[string]any, len(fields))
		for _, f := range fields {
			doc.Fields[f] = nil
		}
	}

	pages, err := b.extract(fh.Open)
	if err != nil {
		logger.Warn("dev backend could not read pdf", "file", fh.Filename, "error", err)
		doc.Warning = "no readable text layer"
	} else {
		doc.Pages = len(pages)
		if pages != nil {
			doc.Content = pages
		}
	}

	body, err := Render(b.mode, doc)
	if err != nil {
		return err
	}
	return c.String(http.StatusOK, body)
}

// extract spools the upload to disk since the PDF reader needs a path.
func (b *Backend) extract(open func() (multipart.File, error)) ([]pdfinfo.Page, error) {
	src, err := open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	tmp, err := os.CreateTemp(b.tempDir, "devbackend-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("spool upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}

	return pdfinfo.ExtractPages(tmp.Name())
}

// Render writes doc in the given mode.
func Render(mode Mode, doc Document) (string, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}

	switch mode {
	case ModeFenced:
		return "```json\n" + string(data) + "\n```", nil
	case ModeProse:
		return "Sure! Here is the data I extracted:\n\n" + string(data) + "\n\nLet me know if you need anything else.", nil
	default:
		return string(data), nil
	}
}

// SchemaFields returns the field names of a schema: the keys of a JSON object,
// or otherwise the comma separated names. Keys are sorted.
func SchemaFields(schema string) []string {
	schema = strings.TrimSpace(schema)
	if schema == "" {
		return nil
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(schema), &obj); err == nil {
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return keys
	}

	var fields []string
	seen := make(map[string]bool)
	for _, f := range strings.Split(schema, ",") {
		f = strings.TrimSpace(f)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		fields = append(fields, f)
	}
	return fields
}
