package sse

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/compasshq/compass-backend/internal/platform/apierr"
)

// Stream writes one assistant reply to the client as a text/event-stream:
// a sequence of {"chunk": ...} data events in generation order, closed by
// a [DONE] marker, or an {"error": ...} event on failure.
type Stream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func NewStream(w http.ResponseWriter) (*Stream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming unsupported by response writer")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	return &Stream{w: w, flusher: flusher}, nil
}

func (s *Stream) Chunk(text string) error {
	if text == "" {
		return nil
	}
	payload, err := json.Marshal(map[string]string{"chunk": text})
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Error writes the failure as its own data event. Internal causes are
// masked the same way the JSON error envelope masks them.
func (s *Stream) Error(streamErr error) {
	msg := "stream failed"
	if streamErr != nil {
		msg = streamErr.Error()
		if apierr.StatusOf(streamErr) >= http.StatusInternalServerError {
			msg = "internal server error"
		}
	}
	payload, err := json.Marshal(map[string]string{"error": msg})
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(s.w, "data: %s\n\n", payload)
	s.flusher.Flush()
}

// Event writes a named signal (e.g. an interview phase change) as its
// own data event.
func (s *Stream) Event(name string) {
	payload, err := json.Marshal(map[string]string{"event": name})
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(s.w, "data: %s\n\n", payload)
	s.flusher.Flush()
}

func (s *Stream) Done() {
	_, _ = fmt.Fprint(s.w, "data: [DONE]\n\n")
	s.flusher.Flush()
}
