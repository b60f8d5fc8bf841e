package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChildSpansShareTraceID(t *testing.T) {
	ctx, root := Start(context.Background(), "crawl")
	_, child := Start(ctx, "fetch")
	child.End()
	root.End()

	require.Len(t, root.Children(), 1)
	assert.Equal(t, root.TraceID, child.TraceID)
	assert.NotEmpty(t, root.TraceID)
	assert.Same(t, root, FromContext(ctx))
	assert.True(t, root.IsRoot())
	assert.False(t, child.IsRoot())
}

func TestLogWritesWholeTree(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx, root := Start(context.Background(), "query")
	root.Set("mode", "phrase")
	_, child := Start(ctx, "verify")
	child.End()
	root.End()
	root.Log(logger)

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "msg=span"))
	assert.Contains(t, out, "mode=phrase")
	assert.Contains(t, out, "span=verify")
}
