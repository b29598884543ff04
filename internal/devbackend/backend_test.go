package devbackend

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pdf2json/landing/internal/normalize"
	"github.com/pdf2json/landing/internal/parseclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeJSON, false},
		{"json", ModeJSON, false},
		{" Fenced ", ModeFenced, false},
		{"PROSE", ModeProse, false},
		{"fail", ModeFail, false},
		{"yaml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSchemaFields(t *testing.T) {
	tests := []struct {
		name   string
		schema string
		want   []string
	}{
		{"empty", "   ", nil},
		{"json object", `{"total": "number", "date": "string"}`, []string{"date", "total"}},
		{"comma list", "name, application_no,, contact_no", []string{"name", "application_no", "contact_no"}},
		{"duplicates", "a, b, a", []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SchemaFields(tt.schema))
		})
	}
}

// Every mode except fail must normalize back to the same document.
func TestRender_NormalizesToDocument(t *testing.T) {
	doc := Document{
		FileName: "a.pdf",
		Pages:    1,
		Fields:   map[string]any{"total": nil},
	}
	want, err := Render(ModeJSON, doc)
	require.NoError(t, err)
	wantValue := normalize.Normalize(want)
	require.IsType(t, map[string]any{}, wantValue)

	for _, mode := range []Mode{ModeFenced, ModeProse} {
		t.Run(string(mode), func(t *testing.T) {
			body, err := Render(mode, doc)
			require.NoError(t, err)
			assert.NotEqual(t, want, body)
			assert.Equal(t, wantValue, normalize.Normalize(body))
		})
	}
}

func newBackendServer(t *testing.T, mode Mode) *parseclient.Client {
	t.Helper()
	e := echo.New()
	New(mode, t.TempDir()).Register(e)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return parseclient.New(srv.URL, 5*time.Second)
}

func TestHandleParse_ThroughClient(t *testing.T) {
	client := newBackendServer(t, ModeFenced)

	text, err := client.Parse(context.Background(), parseclient.Request{
		FileName: "scan.pdf",
		MimeType: "application/pdf",
		Body:     bytes.NewReader([]byte("%PDF-1.4 not really")),
		Schema:   "invoice_no, total",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "```json"))

	v, ok := normalize.Normalize(text).(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "scan.pdf", v["fileName"])
	assert.Equal(t, map[string]any{"invoice_no": nil, "total": nil}, v["fields"])
	assert.Equal(t, "no readable text layer", v["warning"])
	assert.Equal(t, []any{}, v["content"])
}

func TestHandleParse_FailMode(t *testing.T) {
	client := newBackendServer(t, ModeFail)

	_, err := client.Parse(context.Background(), parseclient.Request{
		FileName: "scan.pdf",
		Body:     strings.NewReader("%PDF"),
	})
	require.Error(t, err)

	var statusErr *parseclient.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
}

func TestHandleParse_MissingFile(t *testing.T) {
	e := echo.New()
	b := New(ModeJSON, t.TempDir())
	req := httptest.NewRequest(http.MethodPost, parseclient.ParsePath, strings.NewReader(""))
	req.Header.Set(echo.HeaderContentType, echo.MIMEMultipartForm+"; boundary=x")
	rec := httptest.NewRecorder()

	err := b.HandleParse(e.NewContext(req, rec))
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}
