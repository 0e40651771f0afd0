// Package sanitize neutralizes markup in free-text fields that are stored and
// later rendered by the storefront and the kitchen dashboard.
package sanitize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

var markupEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

// EscapeMarkup encodes &, <, > and " as HTML entities. Text without those
// characters is returned unchanged.
func EscapeMarkup(s string) string {
	return markupEscaper.Replace(s)
}

// OrderBody escapes the top-level "notes" field and every "items[].notes"
// field of a JSON order payload and returns the re-encoded payload. Other
// fields are preserved; numbers keep their original representation.
func OrderBody(body []byte) ([]byte, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return body, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode order payload: %w", err)
	}

	escapeNotes(payload)
	if items, ok := payload["items"].([]any); ok {
		for _, item := range items {
			if m, ok := item.(map[string]any); ok {
				escapeNotes(m)
			}
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return nil, fmt.Errorf("encode order payload: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func escapeNotes(m map[string]any) {
	if notes, ok := m["notes"].(string); ok {
		m["notes"] = EscapeMarkup(notes)
	}
}
