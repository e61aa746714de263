package sessiongate

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

// AuditEvent records one login, verification rejection or revocation.
type AuditEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	Subject   string            `json:"subject,omitempty"`
	TokenID   string            `json:"token_id,omitempty"`
	IP        string            `json:"ip,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AuditSink consumes audit events. Emit is called from a single dispatcher
// goroutine.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// NoOpSink discards events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, AuditEvent) {}

// ChannelSink forwards events to a buffered channel for in-process consumers.
type ChannelSink struct {
	events chan AuditEvent
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{events: make(chan AuditEvent, buffer)}
}

func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan AuditEvent {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	mu     sync.Mutex
	writer io.Writer
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{writer: w}
}

func (s *JSONWriterSink) Emit(_ context.Context, event AuditEvent) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	data = append(data, '\n')

	s.mu.Lock()
	_, _ = s.writer.Write(data)
	s.mu.Unlock()
}

// LogrSink writes events as structured log lines at the given verbosity.
type LogrSink struct {
	log logr.Logger
}

func NewLogrSink(log logr.Logger, verbosity int) *LogrSink {
	return &LogrSink{log: log.WithName("audit").V(verbosity)}
}

func (s *LogrSink) Emit(_ context.Context, event AuditEvent) {
	kv := []any{
		"event", event.EventType,
		"success", event.Success,
	}
	if event.Subject != "" {
		kv = append(kv, "subject", event.Subject)
	}
	if event.TokenID != "" {
		kv = append(kv, "tokenID", event.TokenID)
	}
	if event.IP != "" {
		kv = append(kv, "ip", event.IP)
	}
	if event.Error != "" {
		kv = append(kv, "error", event.Error)
	}
	for k, v := range event.Metadata {
		kv = append(kv, k, v)
	}
	s.log.Info("audit event", kv...)
}
