package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pdf2json/landing/internal/logger"
	"github.com/pdf2json/landing/internal/models"
	"github.com/pdf2json/landing/internal/normalize"
	"github.com/pdf2json/landing/internal/parseclient"
)

// submission is everything a backend request needs, copied out of the
// session when it enters the parsing step.
type submission struct {
	sessionID  string
	generation uint64
	file       models.FileInfo
	schema     string
	body       io.ReadCloser
	openErr    error
}

// run performs one backend request and resolves the session exactly once.
func (m *Manager) run(sub submission) {
	defer m.inflight.Done()

	resolved := false
	defer func() {
		if r := recover(); r != nil {
			logger.Error("backend request panicked", "session", shortID(sub.sessionID), "panic", r)
			if !resolved {
				m.resolve(sub, failedResult(sub.file))
			}
		}
	}()

	start := time.Now()
	result := m.request(sub)
	logger.Info("backend request resolved",
		"session", shortID(sub.sessionID),
		"kind", result.Kind,
		"elapsed", time.Since(start).Round(time.Millisecond))

	resolved = true
	m.resolve(sub, result)
}

func (m *Manager) request(sub submission) *models.Result {
	if sub.openErr != nil {
		logger.Error("failed to open stored file", "session", shortID(sub.sessionID), "error", sub.openErr)
		return failedResult(sub.file)
	}
	defer sub.body.Close()

	ctx := context.Background()
	if m.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.opts.RequestTimeout)
		defer cancel()
	}

	text, err := m.parser.Parse(ctx, parseclient.Request{
		FileName: sub.file.Name,
		MimeType: sub.file.MimeType,
		Body:     sub.body,
		Schema:   sub.schema,
	})
	if err != nil {
		logger.Warn("backend request failed", "session", shortID(sub.sessionID), "error", err)
		return failedResult(sub.file)
	}

	return normalizedResult(text)
}

// resolve moves the session from parsing to review with the result.
func (m *Manager) resolve(sub submission, result *models.Result) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sub.sessionID]
	if !ok {
		logger.Debug("dropping response for removed session", "session", shortID(sub.sessionID))
		return
	}
	if s.generation != sub.generation && m.opts.DiscardStaleResults {
		logger.Info("dropping stale response",
			"session", shortID(sub.sessionID),
			"generation", sub.generation,
			"current", s.generation)
		return
	}

	s.result = result
	s.state = models.DemoStateReview
	s.changed()
}

func failedResult(f models.FileInfo) *models.Result {
	return &models.Result{
		Kind:  models.ResultKindDiagnostic,
		Value: models.NewDiagnostic(&f),
	}
}

// normalizedResult keeps parsed JSON as raw text so the viewer and the
// clipboard see the backend's key order.
func normalizedResult(text string) *models.Result {
	msg, ok := normalize.Extract(text)
	if !ok {
		return &models.Result{Kind: models.ResultKindText, Value: text}
	}
	var s string
	if msg[0] == '"' && json.Unmarshal(msg, &s) == nil {
		return &models.Result{Kind: models.ResultKindText, Value: s}
	}
	return &models.Result{Kind: models.ResultKindJSON, Value: msg}
}

// ClipboardText returns the copy payload of a session's result.
func (m *Manager) ClipboardText(id string) (string, error) {
	res, err := m.Result(id)
	if err != nil {
		return "", err
	}
	text, err := normalize.ClipboardText(res.Value)
	if err != nil {
		return "", fmt.Errorf("serializing result: %w", err)
	}
	return text, nil
}
