package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// ErrJSON produces a standard JSON error response body.
func ErrJSON(msg string) map[string]any {
	return map[string]any{
		"success": false,
		"error":   msg,
	}
}

// CleanJSON removes markdown code fences from a string to extract raw JSON.
func CleanJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		lines := strings.Split(s, "\n")
		if len(lines) >= 2 {
			if strings.HasPrefix(lines[0], "```") {
				lines = lines[1:]
			}
			if len(lines) > 0 && strings.HasPrefix(lines[len(lines)-1], "```") {
				lines = lines[:len(lines)-1]
			}
			s = strings.Join(lines, "\n")
		}
	}
	return strings.TrimSpace(s)
}

// LimitStr returns a string truncated to n bytes with "..." appended if longer.
func LimitStr(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

type SSEWriter struct {
	w    *echo.Response
	fl   http.Flusher
	done bool
}

// NewSSEWriter initializes SSE headers and returns a writer. It errors
// rather than panics when the underlying writer cannot flush, so handlers
// can fall back to a plain error response.
func NewSSEWriter(c echo.Context) (*SSEWriter, error) {
	w := c.Response()
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fl, ok := w.Writer.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming unsupported: response writer is not flushable")
	}
	w.WriteHeader(http.StatusOK)
	fl.Flush()
	return &SSEWriter{w: w, fl: fl}, nil
}

// Data sends one unnamed SSE event carrying data serialized as JSON
// (strings pass through verbatim).
func (s *SSEWriter) Data(data any) error {
	if s.done {
		return nil
	}
	var payload string
	switch v := data.(type) {
	case string:
		payload = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		payload = string(b)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	s.fl.Flush()
	return nil
}

// Close finalizes the stream. Safe to call more than once.
func (s *SSEWriter) Close() {
	if s.done {
		return
	}
	s.done = true
	s.fl.Flush()
}
