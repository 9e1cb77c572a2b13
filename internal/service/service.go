// Package service provides application business logic (posts, chat, feeds, users).
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"viktor/internal/models"
	"viktor/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	maxTitleLen   = 300
	maxBodyLen    = 50000
	maxCommentLen = 10000
	maxMessageLen = 5000
)

// finishSpan records err on the span, logs store failures and ends the span.
// Domain errors (validation, not found, forbidden) are expected outcomes and
// are not logged.
func finishSpan(ctx context.Context, span *observability.Span, op string, err error) {
	defer span.End()
	if err == nil {
		return
	}
	span.SetError(err)
	if code := models.CodeOf(err); code != "" {
		span.AddAttributes(attribute.String("error.code", code))
	}
	if errors.Is(err, models.ErrStoreUnavailable) {
		observability.GlobalLogger.ErrorContext(ctx, "operation failed",
			slog.String("operation", op),
			slog.String("trace_id", span.TraceID()),
			slog.String("error", err.Error()),
		)
	}
}

// requireText trims s and rejects it when empty or longer than max runes.
func requireText(s, field string, max int) (string, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", models.NewValidationError(field + " is required")
	}
	if len([]rune(trimmed)) > max {
		return "", models.NewValidationError(field + " is too long")
	}
	return trimmed, nil
}
