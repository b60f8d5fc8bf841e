// Package tracing provides lightweight span trees carried through contexts.
// Finished root spans are written to slog, one record per span.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

type contextKey struct{}

// Span is a timed operation within a trace.
type Span struct {
	Name      string
	TraceID   string
	StartTime time.Time
	Duration  time.Duration

	parent   *Span
	mu       sync.Mutex
	children []*Span
	attrs    []any
}

// Start opens a span. It becomes a child of the span already in ctx, or a
// new root with a fresh trace ID.
func Start(ctx context.Context, name string) (context.Context, *Span) {
	s := &Span{Name: name, StartTime: time.Now()}
	if parent := FromContext(ctx); parent != nil {
		s.TraceID = parent.TraceID
		s.parent = parent
		parent.mu.Lock()
		parent.children = append(parent.children, s)
		parent.mu.Unlock()
	} else {
		s.TraceID = uuid.NewString()
	}
	return context.WithValue(ctx, contextKey{}, s), s
}

// FromContext returns the current span, or nil.
func FromContext(ctx context.Context) *Span {
	s, _ := ctx.Value(contextKey{}).(*Span)
	return s
}

// Set attaches a key/value attribute.
func (s *Span) Set(key string, value any) {
	s.mu.Lock()
	s.attrs = append(s.attrs, key, value)
	s.mu.Unlock()
}

// IsRoot reports whether the span started a new trace.
func (s *Span) IsRoot() bool {
	return s.parent == nil
}

// End stops the clock.
func (s *Span) End() {
	s.Duration = time.Since(s.StartTime)
}

// Children returns a copy of the child spans.
func (s *Span) Children() []*Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Span, len(s.children))
	copy(out, s.children)
	return out
}

// Log writes the span tree at debug level.
func (s *Span) Log(logger *slog.Logger) {
	s.log(logger, 0)
}

func (s *Span) log(logger *slog.Logger, depth int) {
	s.mu.Lock()
	attrs := append([]any{
		"trace_id", s.TraceID,
		"span", s.Name,
		"duration_ms", s.Duration.Milliseconds(),
		"depth", depth,
	}, s.attrs...)
	s.mu.Unlock()
	logger.Debug("span", attrs...)

	for _, child := range s.Children() {
		child.log(logger, depth+1)
	}
}
