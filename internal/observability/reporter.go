package observability

import (
	"context"

	"go.uber.org/zap"
)

// ErrorReporter receives (error, context) pairs from the submission pipeline
// and the delivery strategy. Fire-and-forget: implementations must not block
// or influence the caller's control flow.
type ErrorReporter interface {
	Report(ctx context.Context, err error, fields map[string]string)
}

// ZapReporter reports errors to the structured log.
type ZapReporter struct {
	logger *zap.Logger
}

func NewZapReporter(logger *zap.Logger) *ZapReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapReporter{logger: logger}
}

func (r *ZapReporter) Report(ctx context.Context, err error, fields map[string]string) {
	if r == nil || r.logger == nil || err == nil {
		return
	}

	zapFields := make([]zap.Field, 0, len(fields)+2)
	zapFields = append(zapFields, zap.Error(err))
	for key, value := range fields {
		zapFields = append(zapFields, zap.String(key, value))
	}
	if requestID, ok := RequestIDFromContext(ctx); ok {
		zapFields = append(zapFields, zap.String("requestId", requestID))
	}

	r.logger.Error("reported error", zapFields...)
}

// NopReporter discards all reports.
type NopReporter struct{}

func (NopReporter) Report(ctx context.Context, err error, fields map[string]string) {}
