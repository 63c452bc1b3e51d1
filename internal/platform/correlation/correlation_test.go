package correlation

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	inner := slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(NewHandler(inner))
}

func TestNewID(t *testing.T) {
	ids := make(map[string]struct{}, 100)
	for n := 0; n < 100; n++ {
		id := NewID()
		assert.Len(t, id, 8)
		ids[id] = struct{}{}
	}
	assert.Len(t, ids, 100)
}

func TestContextValues(t *testing.T) {
	ctx := WithClient(WithID(context.Background(), "abc12345"), "alice")

	id, ok := ID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "abc12345", id)

	name, ok := Client(ctx)
	assert.True(t, ok)
	assert.Equal(t, "alice", name)

	_, ok = ID(context.Background())
	assert.False(t, ok)
	_, ok = Client(WithClient(context.Background(), ""))
	assert.False(t, ok)
}

func TestHandler_AddsConnectionAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	ctx := WithClient(WithID(context.Background(), "test1234"), "bob")
	logger.InfoContext(ctx, "client subscribed", "channel", "room1")

	output := buf.String()
	assert.Contains(t, output, "correlation_id=test1234")
	assert.Contains(t, output, "client=bob")
	assert.Contains(t, output, "channel=room1")
}

func TestHandler_NoAttrsWhenMissing(t *testing.T) {
	var buf bytes.Buffer
	newTestLogger(&buf).InfoContext(context.Background(), "no correlation")

	assert.NotContains(t, buf.String(), "correlation_id")
	assert.NotContains(t, buf.String(), "client=")
}

func TestHandler_WithAttrs_PreservesCorrelation(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf).With("component", "dispatch")

	logger.InfoContext(WithID(context.Background(), "attr1234"), "with attrs")

	assert.Contains(t, buf.String(), "correlation_id=attr1234")
	assert.Contains(t, buf.String(), "component=dispatch")
}

func TestHandler_ExplicitClientWins(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	ctx := WithClient(context.Background(), "bob")
	logger.InfoContext(ctx, "delivery dropped", "client", "carol")

	output := buf.String()
	assert.Contains(t, output, "client=carol")
	assert.NotContains(t, output, "client=bob")
}
