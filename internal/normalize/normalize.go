// Package normalize turns parser backend responses into displayable values.
package normalize

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

// fencePattern matches a whole-text markdown code block, optionally tagged json.
var fencePattern = regexp.MustCompile("(?is)^```(?:json)?\\s*(.*?)\\s*```$")

// Normalize returns the best-effort JSON value carried by raw.
//
// The trimmed text (or the body of a ```json fence wrapping all of it) is parsed
// as JSON first. Failing that, the span from the first '{' to the last '}' is
// parsed. If neither parses, raw is returned unchanged, untrimmed.
//
// Parsed values use encoding/json's generic types: map[string]any, []any,
// float64, string, bool and nil. Numbers outside float64 range decode as
// json.Number.
func Normalize(raw string) any {
	msg, ok := Extract(raw)
	if !ok {
		return raw
	}
	v, err := Decode(msg)
	if err != nil {
		return raw
	}
	return v
}

// Extract returns the compacted JSON text Normalize would decode, or false
// when raw carries none. Key order and number spelling are kept as sent.
func Extract(raw string) (json.RawMessage, bool) {
	candidate := Candidate(raw)

	if msg, ok := compact(candidate); ok {
		return msg, true
	}

	if span, ok := objectSpan(candidate); ok {
		if msg, ok := compact(span); ok {
			return msg, true
		}
	}

	return nil, false
}

// Decode unmarshals msg into generic values. Numbers float64 cannot hold are
// kept as json.Number rather than failing the whole document.
func Decode(msg json.RawMessage) (any, error) {
	var v any
	err := json.Unmarshal(msg, &v)
	if err == nil {
		return v, nil
	}

	dec := json.NewDecoder(bytes.NewReader(msg))
	dec.UseNumber()
	v = nil
	if derr := dec.Decode(&v); derr != nil {
		return nil, err
	}
	return v, nil
}

// Candidate returns the text Normalize evaluates: raw trimmed, with a
// surrounding code fence removed.
func Candidate(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if m := fencePattern.FindStringSubmatch(trimmed); m != nil {
		return m[1]
	}
	return trimmed
}

// objectSpan returns the text between the first '{' and the last '}' inclusive.
// Sibling objects produce a span that does not parse; that case falls back to raw.
func objectSpan(s string) (string, bool) {
	first := strings.Index(s, "{")
	last := strings.LastIndex(s, "}")
	if first == -1 || last == -1 || last <= first {
		return "", false
	}
	return s[first : last+1], true
}

func compact(s string) (json.RawMessage, bool) {
	if !json.Valid([]byte(s)) {
		return nil, false
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(s)); err != nil {
		return nil, false
	}
	return json.RawMessage(buf.Bytes()), true
}

// ClipboardText renders a result for copying: strings verbatim, anything else
// as indented JSON. Raw JSON keeps its key order. '<', '>' and '&' are not
// escaped.
func ClipboardText(v any) (string, error) {
	var buf bytes.Buffer
	switch t := v.(type) {
	case string:
		return t, nil
	case json.RawMessage:
		if err := json.Indent(&buf, t, "", "  "); err != nil {
			return "", err
		}
		return buf.String(), nil
	}

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
