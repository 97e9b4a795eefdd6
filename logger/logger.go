package logger

import "context"

// Logger defines the interface for structured logging with context support.
type Logger interface {
	// Debug logs a debug-level message with optional fields
	Debug(ctx context.Context, msg string, fields map[string]interface{})

	// Info logs an info-level message with optional fields
	Info(ctx context.Context, msg string, fields map[string]interface{})

	// Warn logs a warning-level message with optional fields
	Warn(ctx context.Context, msg string, fields map[string]interface{})

	// Error logs an error-level message with optional fields
	Error(ctx context.Context, msg string, fields map[string]interface{})

	// WithField returns a new logger with the given field added to all subsequent log entries
	WithField(key string, value interface{}) Logger

	// WithFields returns a new logger with the given fields added to all subsequent log entries
	WithFields(fields map[string]interface{}) Logger
}

type ctxFieldsKey struct{}

// ContextWithFields attaches fields to ctx. Every entry logged with the
// returned context carries them, e.g. the widget session or request URL.
func ContextWithFields(ctx context.Context, fields map[string]interface{}) context.Context {
	merged := make(map[string]interface{}, len(fields))
	for k, v := range FieldsFromContext(ctx) {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return context.WithValue(ctx, ctxFieldsKey{}, merged)
}

// FieldsFromContext returns the fields attached with ContextWithFields.
func FieldsFromContext(ctx context.Context) map[string]interface{} {
	if ctx == nil {
		return nil
	}
	fields, _ := ctx.Value(ctxFieldsKey{}).(map[string]interface{})
	return fields
}

// mergeFields combines logger-level, context and call fields. Call fields win.
func mergeFields(base map[string]interface{}, ctx context.Context, fields map[string]interface{}) map[string]interface{} {
	ctxFields := FieldsFromContext(ctx)
	if len(base) == 0 && len(ctxFields) == 0 {
		return fields
	}
	all := make(map[string]interface{}, len(base)+len(ctxFields)+len(fields))
	for k, v := range base {
		all[k] = v
	}
	for k, v := range ctxFields {
		all[k] = v
	}
	for k, v := range fields {
		all[k] = v
	}
	return all
}
