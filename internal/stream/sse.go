package stream

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rickgao/market-data/internal/model"
)

// ErrStreamingUnsupported is returned when the ResponseWriter cannot flush.
var ErrStreamingUnsupported = errors.New("streaming unsupported")

// SSEWriter writes quote maps as text/event-stream frames. Headers are sent
// with the first frame so that a failure before it can still produce an
// ordinary error response.
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

// NewSSEWriter wraps w.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}
	return &SSEWriter{w: w, flusher: f}, nil
}

// Started reports whether any frame has been written.
func (s *SSEWriter) Started() bool { return s.started }

// WriteFrame implements FrameWriter.
func (s *SSEWriter) WriteFrame(q model.Quotes) error {
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	if !s.started {
		h := s.w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		s.w.WriteHeader(http.StatusOK)
		s.started = true
	}

	var buf bytes.Buffer
	buf.Grow(len(data) + 8)
	buf.WriteString("data: ")
	buf.Write(data)
	buf.WriteString("\n\n")

	if _, err := s.w.Write(buf.Bytes()); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// ReadFrame reads the next event from an event stream and decodes its data
// as a quote map. Comment lines and other fields are ignored.
func ReadFrame(r *bufio.Reader) (model.Quotes, error) {
	var data strings.Builder

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return nil, err
			}
			if data.Len() == 0 && line == "" {
				return nil, io.EOF
			}
			return nil, io.ErrUnexpectedEOF
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if data.Len() == 0 {
				continue
			}
			break
		}

		if v, ok := strings.CutPrefix(line, "data:"); ok {
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(v, " "))
		}
	}

	var q model.Quotes
	if err := json.Unmarshal([]byte(data.String()), &q); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return q, nil
}
