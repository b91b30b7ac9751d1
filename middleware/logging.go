package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/opcall/opcall"
)

// Logging creates an interceptor that logs operation invocations using
// slog. It logs the start and end of each call, including duration and
// error status.
func Logging(logger *slog.Logger) opcall.Interceptor {
	if logger == nil {
		logger = slog.Default()
	}

	return func(ctx context.Context, operation string, next opcall.HandlerFunc) (any, error) {
		start := time.Now()

		logger.InfoContext(ctx, "operation started",
			slog.String("operation", operation),
		)

		res, err := next(ctx)
		duration := time.Since(start)

		if err != nil {
			logger.ErrorContext(ctx, "operation failed",
				slog.String("operation", operation),
				slog.Duration("duration", duration),
				slog.Any("error", err),
			)
		} else {
			logger.InfoContext(ctx, "operation completed",
				slog.String("operation", operation),
				slog.Duration("duration", duration),
			)
		}

		return res, err
	}
}
