// routes_test.go - End-to-end tests through the full middleware stack
package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pdf2json/landing/internal/config"
	"github.com/pdf2json/landing/internal/content"
	"github.com/pdf2json/landing/internal/models"
	"github.com/pdf2json/landing/internal/parseclient"
	"github.com/pdf2json/landing/internal/session"
	"github.com/pdf2json/landing/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	URL string
	mgr *session.Manager
}

func newTestServer(t *testing.T, maxFileSize int64, backend http.HandlerFunc) *testServer {
	t.Helper()
	return startTestServer(t, maxFileSize, 0, backend)
}

func startTestServer(t *testing.T, maxFileSize int64, writeTimeout time.Duration, backend http.HandlerFunc) *testServer {
	t.Helper()

	backendSrv := httptest.NewServer(backend)
	t.Cleanup(backendSrv.Close)

	store, err := storage.NewLocalStore(t.TempDir(), maxFileSize)
	require.NoError(t, err)

	mgr := session.NewManager(store, parseclient.New(backendSrv.URL+"/", 5*time.Second), session.Options{
		RequestTimeout:      5 * time.Second,
		DiscardStaleResults: true,
	})
	t.Cleanup(mgr.Wait)

	site, err := content.Default()
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.Advanced.EnableRequestLogging = false

	e := echo.New()
	SetupMiddleware(e, cfg, true)
	RegisterRoutes(e, NewHandlers(&Dependencies{
		Sessions:           mgr,
		Site:               site,
		Version:            "test",
		WSMaxMessageSizeKB: 4,
	}))

	srv := httptest.NewUnstartedServer(e)
	srv.Config.WriteTimeout = writeTimeout
	srv.Start()
	t.Cleanup(srv.Close)

	return &testServer{URL: srv.URL, mgr: mgr}
}

func (s *testServer) do(t *testing.T, method, path string, body io.Reader, contentType string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, s.URL+path, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (s *testServer) createSession(t *testing.T) string {
	t.Helper()
	resp, data := s.do(t, http.MethodPost, "/api/demo/sessions", nil, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var snap models.DemoSession
	require.NoError(t, json.Unmarshal(data, &snap))
	return snap.ID
}

func (s *testServer) uploadPDF(t *testing.T, id string, data []byte) (*http.Response, []byte) {
	t.Helper()
	body, ct := multipartFile(t, "invoice.pdf", "application/pdf", data)
	return s.do(t, http.MethodPost, "/api/demo/sessions/"+id+"/file", body, ct)
}

func (s *testServer) submitAndWait(t *testing.T, id string) {
	t.Helper()
	resp, _ := s.do(t, http.MethodPost, "/api/demo/sessions/"+id+"/submit", nil, "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	s.mgr.Wait()
}

func TestServer_HealthAndSite(t *testing.T) {
	srv := newTestServer(t, 1<<20, func(w http.ResponseWriter, r *http.Request) {})

	resp, data := srv.do(t, http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), `"status":"ok"`)

	resp, data = srv.do(t, http.MethodGet, "/api/site", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var site content.Site
	require.NoError(t, json.Unmarshal(data, &site))
	assert.NotEmpty(t, site.Brand)
	assert.Equal(t, models.ProgressLabels, site.Demo.Progress)
}

func TestServer_BackendFailureProducesDiagnostic(t *testing.T) {
	srv := newTestServer(t, 1<<20, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
	})

	id := srv.createSession(t)
	pdf := []byte("%PDF-1.4 minimal")
	resp, _ := srv.uploadPDF(t, id, pdf)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	srv.submitAndWait(t, id)

	resp, data := srv.do(t, http.MethodGet, "/api/demo/sessions/"+id+"/result", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res struct {
		Kind  string            `json:"kind"`
		Value models.Diagnostic `json:"value"`
	}
	require.NoError(t, json.Unmarshal(data, &res))
	assert.Equal(t, "diagnostic", res.Kind)
	assert.Equal(t, models.Diagnostic{
		File:      "invoice.pdf",
		SizeBytes: int64(len(pdf)),
		Error:     models.BackendFailedMessage,
	}, res.Value)
}

func TestServer_FencedResponseIsNormalized(t *testing.T) {
	type received struct{ name, schema string }
	seen := make(chan received, 1)
	srv := newTestServer(t, 1<<20, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != parseclient.ParsePath {
			http.NotFound(w, r)
			return
		}
		var got received
		if _, fh, err := r.FormFile("file"); err == nil {
			got.name = fh.Filename
		}
		got.schema = r.FormValue("schema")
		seen <- got
		io.WriteString(w, "```json\n{\"a\":1}\n```")
	})

	id := srv.createSession(t)
	srv.uploadPDF(t, id, []byte("%PDF-1.4"))

	resp, _ := srv.do(t, http.MethodPut, "/api/demo/sessions/"+id+"/schema",
		strings.NewReader(`{"schema":"{\"a\":\"number\"}"}`), echo.MIMEApplicationJSON)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	srv.submitAndWait(t, id)

	resp, data := srv.do(t, http.MethodGet, "/api/demo/sessions/"+id+"/result", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"kind":"json","value":{"a":1}}`, string(data))
	got := <-seen
	assert.Equal(t, "invoice.pdf", got.name)
	assert.Equal(t, `{"a":"number"}`, got.schema)

	resp, data = srv.do(t, http.MethodGet, "/api/demo/sessions/"+id+"/result/copy", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "{\n  \"a\": 1\n}", string(data))
}

func TestServer_ResultKeepsBackendKeyOrder(t *testing.T) {
	srv := newTestServer(t, 1<<20, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"zeta":"<b>A & B</b>","alpha":1}`)
	})

	id := srv.createSession(t)
	srv.uploadPDF(t, id, []byte("%PDF-1.4"))
	srv.submitAndWait(t, id)

	resp, data := srv.do(t, http.MethodGet, "/api/demo/sessions/"+id+"/result", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"kind":"json","value":{"zeta":"<b>A & B</b>","alpha":1}}`, string(data))
	assert.Less(t, bytes.Index(data, []byte(`"zeta"`)), bytes.Index(data, []byte(`"alpha"`)))

	resp, data = srv.do(t, http.MethodGet, "/api/demo/sessions/"+id+"/result/copy", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "{\n  \"zeta\": \"<b>A & B</b>\",\n  \"alpha\": 1\n}", string(data))
}

func TestServer_EventsOutliveWriteTimeout(t *testing.T) {
	srv := startTestServer(t, 1<<20, 200*time.Millisecond, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(600 * time.Millisecond)
		io.WriteString(w, `{"ok":true}`)
	})

	id := srv.createSession(t)
	srv.uploadPDF(t, id, []byte("%PDF-1.4"))
	resp, _ := srv.do(t, http.MethodPost, "/api/demo/sessions/"+id+"/submit", nil, "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp, data := srv.do(t, http.MethodGet, "/api/demo/sessions/"+id+"/events", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), `"state":"parsing"`)
	assert.Contains(t, string(data), `"state":"review"`)
	srv.mgr.Wait()
}

func TestServer_ResetClearsSession(t *testing.T) {
	srv := newTestServer(t, 1<<20, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"ok":true}`)
	})

	id := srv.createSession(t)
	srv.uploadPDF(t, id, []byte("%PDF-1.4"))
	srv.do(t, http.MethodPut, "/api/demo/sessions/"+id+"/schema",
		strings.NewReader(`{"schema":"name, date"}`), echo.MIMEApplicationJSON)
	srv.submitAndWait(t, id)

	resp, data := srv.do(t, http.MethodPost, "/api/demo/sessions/"+id+"/reset", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap models.DemoSession
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, models.DemoStateUpload, snap.State)
	assert.Equal(t, 0, snap.Step)
	assert.Nil(t, snap.File)
	assert.Nil(t, snap.Result)
	assert.Equal(t, "name, date", snap.Schema)

	resp, _ = srv.do(t, http.MethodGet, "/api/demo/sessions/"+id+"/result", nil, "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodPost, "/api/demo/sessions/"+id+"/submit", nil, "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestServer_FileTooLarge(t *testing.T) {
	srv := newTestServer(t, 16, func(w http.ResponseWriter, r *http.Request) {})

	id := srv.createSession(t)
	resp, data := srv.uploadPDF(t, id, bytes.Repeat([]byte("x"), 64))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Contains(t, string(data), "PAYLOAD_TOO_LARGE")

	resp, data = srv.do(t, http.MethodGet, "/api/demo/sessions/"+id, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, string(data), `"file"`)
}

func TestServer_UnknownSession(t *testing.T) {
	srv := newTestServer(t, 1<<20, func(w http.ResponseWriter, r *http.Request) {})

	resp, data := srv.do(t, http.MethodGet, "/api/demo/sessions/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(data), `"code":"NOT_FOUND"`)
}

func TestServer_WebSocket(t *testing.T) {
	srv := newTestServer(t, 1<<20, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"done":true}`)
	})
	id := srv.createSession(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/demo/sessions/" + id + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	readUntil := func(msgType string) WSMessage {
		t.Helper()
		for {
			var msg WSMessage
			require.NoError(t, conn.ReadJSON(&msg))
			if msg.Type == msgType {
				return msg
			}
		}
	}

	readUntil(MsgTypeConnected)
	first := readUntil(MsgTypeSession)
	var snap models.DemoSession
	require.NoError(t, json.Unmarshal(first.Payload, &snap))
	assert.Equal(t, models.DemoStateUpload, snap.State)

	require.NoError(t, conn.WriteJSON(WSMessage{Type: MsgTypePing}))
	readUntil(MsgTypePong)

	srv.uploadPDF(t, id, []byte("%PDF-1.4"))
	srv.submitAndWait(t, id)

	for {
		msg := readUntil(MsgTypeSession)
		require.NoError(t, json.Unmarshal(msg.Payload, &snap))
		if snap.State == models.DemoStateReview {
			break
		}
	}
	require.NotNil(t, snap.Result)
	assert.Equal(t, models.ResultKindJSON, snap.Result.Kind)
}
