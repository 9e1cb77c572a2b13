package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_AddsContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "debug", "json")

	ctx := WithUserID(WithCorrelationID(context.Background(), "corr-1"), 42)
	logger.InfoContext(ctx, "toggled")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "toggled", entry["msg"])
	assert.Equal(t, "corr-1", entry["correlation_id"])
	assert.EqualValues(t, 42, entry["user_id"])
}

func TestLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn", "text")
	logger.Info("hidden")
	assert.Empty(t, buf.String())
	logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestEnsureCorrelationID(t *testing.T) {
	ctx := EnsureCorrelationID(context.Background())
	id := ExtractCorrelationID(ctx)
	assert.Len(t, id, 36)
	assert.Equal(t, id, ExtractCorrelationID(EnsureCorrelationID(ctx)))
}
