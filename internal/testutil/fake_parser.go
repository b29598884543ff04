package testutil

import (
	"context"
	"io"
	"sync"

	"github.com/pdf2json/landing/internal/parseclient"
)

// ParseCall records one request seen by FakeParser.
type ParseCall struct {
	FileName string
	MimeType string
	Data     []byte
	Schema   string
}

// FakeParser is an in-process stand-in for the parsing backend.
type FakeParser struct {
	mu    sync.Mutex
	calls []ParseCall

	// Response and Err are returned by every call.
	Response string
	Err      error
	// Gate, when set, blocks each call until a value is received; the value
	// overrides Response.
	Gate chan string
	// Started, when set, receives a signal as each call begins.
	Started chan struct{}
	// Panic makes calls panic with this value.
	Panic any
}

// Parse implements parseclient.Parser.
func (f *FakeParser) Parse(ctx context.Context, req parseclient.Request) (string, error) {
	var data []byte
	if req.Body != nil {
		data, _ = io.ReadAll(req.Body)
	}

	f.mu.Lock()
	f.calls = append(f.calls, ParseCall{
		FileName: req.FileName,
		MimeType: req.MimeType,
		Data:     data,
		Schema:   req.Schema,
	})
	f.mu.Unlock()

	if f.Started != nil {
		f.Started <- struct{}{}
	}
	if f.Panic != nil {
		panic(f.Panic)
	}

	resp := f.Response
	if f.Gate != nil {
		select {
		case resp = <-f.Gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.Err != nil {
		return "", f.Err
	}
	return resp, nil
}

// Calls returns a copy of the recorded requests.
func (f *FakeParser) Calls() []ParseCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ParseCall(nil), f.calls...)
}

var _ parseclient.Parser = (*FakeParser)(nil)
