// Package parseclient calls the external PDF parsing backend.
package parseclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/pdf2json/landing/internal/models"
	"github.com/pdf2json/landing/internal/normalize"
)

// ParsePath is appended to the backend base URL.
const ParsePath = "/parse"

// Request is one file submission.
type Request struct {
	FileName string
	MimeType string
	Body     io.Reader
	Schema   string // forwarded verbatim when non-empty after trimming
}

// Parser is the backend call used by the demo sessions.
type Parser interface {
	Parse(ctx context.Context, req Request) (string, error)
}

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend: %d", e.StatusCode)
}

// Client posts multipart requests to <baseURL>/parse.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client. A zero timeout leaves requests unbounded.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// NewWithHTTPClient creates a client around an existing http.Client.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: hc,
	}
}

// Endpoint returns the full URL requests are sent to.
func (c *Client) Endpoint() string {
	return c.baseURL + ParsePath
}

// Parse sends the file and optional schema and returns the full response body.
func (c *Client) Parse(ctx context.Context, req Request) (string, error) {
	body, contentType, err := encodeForm(req)
	if err != nil {
		return "", fmt.Errorf("encoding form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	return string(data), nil
}

// encodeForm builds the multipart body: "file" always, "schema" only when set.
func encodeForm(req Request) (*bytes.Buffer, string, error) {
	buf := new(bytes.Buffer)
	w := multipart.NewWriter(buf)

	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = models.PDFMimeType
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(req.FileName)))
	h.Set("Content-Type", mimeType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if req.Body != nil {
		if _, err := io.Copy(part, req.Body); err != nil {
			return nil, "", err
		}
	}

	if normalize.HasSchema(req.Schema) {
		if err := w.WriteField("schema", req.Schema); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
