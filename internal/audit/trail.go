// Package audit keeps a per-call audit trail. Every dispatched command is
// recorded twice: as a structured log line for external collection, and in
// a bounded in-memory ring for live inspection.
package audit

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"gridnet.org/internal/ids"
	"gridnet.org/internal/obs"
)

// Entry is one audited invocation.
type Entry struct {
	ID            string `json:"id"`
	Timestamp     string `json:"timestamp"`
	Service       string `json:"service"`
	Command       string `json:"command"`
	SourceAddress string `json:"source_address"`
	UserID        string `json:"user_id,omitempty"`
	SessionID     string `json:"session_id,omitempty"`
	OK            bool   `json:"ok"`
	Message       string `json:"message,omitempty"`
	ProcessingMS  int64  `json:"processing_ms"`
}

// Trail records entries into a fixed-size ring. Safe for concurrent use.
type Trail struct {
	logger zerolog.Logger
	now    func() time.Time

	mu      sync.Mutex
	entries []Entry
	next    int
	filled  bool
}

// Option configures a Trail.
type Option func(*Trail)

// WithClock overrides the time source, for tests.
func WithClock(fn func() time.Time) Option {
	return func(t *Trail) {
		if fn != nil {
			t.now = fn
		}
	}
}

// NewTrail returns a trail retaining the last capacity entries.
func NewTrail(capacity int, opts ...Option) *Trail {
	if capacity <= 0 {
		capacity = 1024
	}
	t := &Trail{
		logger:  obs.Component("audit"),
		now:     time.Now,
		entries: make([]Entry, capacity),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Record stamps the entry with an id and timestamp, logs it, and retains it
// in the ring.
func (t *Trail) Record(entry Entry) Entry {
	if t == nil {
		return entry
	}
	entry.ID = ids.New()
	entry.Timestamp = t.now().UTC().Format(time.RFC3339Nano)

	t.logger.Info().
		Str("audit_id", entry.ID).
		Str("service", entry.Service).
		Str("command", entry.Command).
		Str("source_address", entry.SourceAddress).
		Str("user_id", entry.UserID).
		Bool("ok", entry.OK).
		Int64("processing_ms", entry.ProcessingMS).
		Str("message", entry.Message).
		Msg("audit")

	t.mu.Lock()
	t.entries[t.next] = entry
	t.next++
	if t.next == len(t.entries) {
		t.next = 0
		t.filled = true
	}
	t.mu.Unlock()
	return entry
}

// Recent returns up to n entries, newest first.
func (t *Trail) Recent(n int) []Entry {
	if t == nil || n <= 0 {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	total := t.next
	if t.filled {
		total = len(t.entries)
	}
	if n > total {
		n = total
	}
	out := make([]Entry, 0, n)
	for i := 1; i <= n; i++ {
		idx := t.next - i
		if idx < 0 {
			idx += len(t.entries)
		}
		out = append(out, t.entries[idx])
	}
	return out
}
