package service

import (
	"context"
	"testing"

	"viktor/internal/models"
	"viktor/internal/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestFinishSpan_TagsErrorCode(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	shutdown, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:  "viktor-test",
		Enabled:      true,
		SamplerRatio: 1,
		Processor:    rec,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = shutdown(context.Background())
		observability.Tracer = otel.Tracer("viktor")
	})

	svc := NewChatService(newChatStub(), nil, nil)
	_, err = svc.SendMessage(context.Background(), 11, 1, "hi")
	assertCode(t, err, models.CodeNotFound)

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "chat.send_message", ended[0].Name())
	assert.Contains(t, ended[0].Attributes(), attribute.String("error.code", models.CodeNotFound))
}

func TestRequireText(t *testing.T) {
	got, err := requireText("  hello  ", "Comment", 10)
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	_, err = requireText(" \n ", "Comment", 10)
	assertCode(t, err, models.CodeValidation)

	_, err = requireText("ééééééééééé", "Comment", 10)
	assertCode(t, err, models.CodeValidation)
}
