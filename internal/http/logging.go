package http

import (
	"context"
	"log/slog"

	"github.com/olgakorsuk5-lang/stonelibrary-bot/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func requestLogger(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	return logging.FromContext(ctx, defaultLogger(fallback))
}

func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	logger := requestLogger(ctx, fallback)

	pairs := []any{"handler", handlerName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}
