package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/docgate/docgate/internal/event"
	"github.com/docgate/docgate/internal/logging"
)

const (
	// SSEHeartbeatInterval is the interval for SSE heartbeats.
	SSEHeartbeatInterval = 30 * time.Second

	// SSEWriteTimeout bounds a single SSE write, so a client that stopped
	// reading is disconnected instead of holding the event stream.
	SSEWriteTimeout = 10 * time.Second
)

// sseWriter wraps http.ResponseWriter for SSE.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	rc      *http.ResponseController
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}
	return &sseWriter{w: w, flusher: flusher, rc: http.NewResponseController(w)}, nil
}

// start writes the SSE headers and flushes them.
func (s *sseWriter) start() {
	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	s.w.WriteHeader(http.StatusOK)
	s.flush()
}

// writeEvent marshals data and writes one SSE record.
func (s *sseWriter) writeEvent(eventType string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return s.writeRaw(eventType, jsonData)
}

// writeRaw writes one SSE record with an already encoded JSON payload.
func (s *sseWriter) writeRaw(eventType string, jsonData []byte) error {
	return s.write(func() error {
		_, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", eventType, jsonData)
		return err
	})
}

func (s *sseWriter) writeHeartbeat() error {
	return s.write(func() error {
		_, err := fmt.Fprintf(s.w, ": heartbeat\n\n")
		return err
	})
}

// write runs fn and flushes under SSEWriteTimeout. Writers without
// deadline support, such as test recorders, write without one.
func (s *sseWriter) write(fn func() error) error {
	_ = s.rc.SetWriteDeadline(time.Now().Add(SSEWriteTimeout))
	defer s.rc.SetWriteDeadline(time.Time{})

	if err := fn(); err != nil {
		return err
	}
	s.flush()
	return nil
}

func (s *sseWriter) flush() {
	if err := s.rc.Flush(); err != nil {
		s.flusher.Flush()
	}
}

// allEvents handles GET /event: every bus event as an SSE record named
// after its type.
func (s *Server) allEvents(w http.ResponseWriter, r *http.Request) {
	bus := s.gateway.Bus()
	if bus == nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "event stream is disabled")
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	msgs, err := bus.Messages(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	sse.start()
	if err := sse.writeEvent("server.connected", map[string]any{}); err != nil {
		return
	}

	ticker := time.NewTicker(SSEHeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			msg.Ack()
			if err := sse.writeRaw(msg.Metadata.Get(event.MetadataType), msg.Payload); err != nil {
				logging.Debug().Err(err).Msg("SSE client gone")
				return
			}
		case <-ticker.C:
			if err := sse.writeHeartbeat(); err != nil {
				return
			}
		}
	}
}
