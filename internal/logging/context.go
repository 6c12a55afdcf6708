package logging

import (
	"context"
	"fmt"
	"regexp"
	"unicode/utf8"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 7)

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
		if sc.IsSampled() {
			fields = append(fields, zap.Bool("trace_sampled", true))
		}
	}

	if tenant := TenantFromContext(ctx); tenant != "" {
		fields = append(fields, zap.String("tenant", tenant))
	}
	if userID := UserIDFromContext(ctx); userID != "" {
		fields = append(fields, zap.String("user.id", userID))
	}
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request.id", requestID))
	}
	if entityID := EntityIDFromContext(ctx); entityID != "" {
		fields = append(fields, zap.String("entity.id", entityID))
	}

	return fields
}

type tenantCtxKey struct{}
type userCtxKey struct{}
type requestCtxKey struct{}
type entityCtxKey struct{}
type loggerCtxKey struct{}

const maxIDLen = 128

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_.:-]+$`)

// ValidateID checks that an identifier is safe to place in a log field.
func ValidateID(id, name string) error {
	if id == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	if !utf8.ValidString(id) {
		return fmt.Errorf("%s contains invalid UTF-8", name)
	}
	if len(id) > maxIDLen {
		return fmt.Errorf("%s exceeds max length %d", name, maxIDLen)
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%s contains invalid characters", name)
	}
	return nil
}

func withID(ctx context.Context, key any, id, name string) context.Context {
	// Values come from user input and server responses; drop what would
	// corrupt the log line.
	if ValidateID(id, name) != nil {
		return ctx
	}
	return context.WithValue(ctx, key, id)
}

func idFromContext(ctx context.Context, key any) string {
	if s, ok := ctx.Value(key).(string); ok {
		return s
	}
	return ""
}

// WithTenant records the tenant subdomain. Invalid values are ignored.
func WithTenant(ctx context.Context, subdomain string) context.Context {
	return withID(ctx, tenantCtxKey{}, subdomain, "tenant")
}

// TenantFromContext returns the tenant subdomain, or "".
func TenantFromContext(ctx context.Context) string {
	return idFromContext(ctx, tenantCtxKey{})
}

// WithUserID records the signed-in user's id. Invalid values are ignored.
func WithUserID(ctx context.Context, userID string) context.Context {
	return withID(ctx, userCtxKey{}, userID, "userID")
}

// UserIDFromContext returns the user id, or "".
func UserIDFromContext(ctx context.Context) string {
	return idFromContext(ctx, userCtxKey{})
}

// WithRequestID records the outbound request id. Invalid values are ignored.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withID(ctx, requestCtxKey{}, requestID, "requestID")
}

// RequestIDFromContext returns the request id, or "".
func RequestIDFromContext(ctx context.Context) string {
	return idFromContext(ctx, requestCtxKey{})
}

// WithEntityID records the id of the entity being mutated.
func WithEntityID(ctx context.Context, entityID string) context.Context {
	return withID(ctx, entityCtxKey{}, entityID, "entityID")
}

// EntityIDFromContext returns the entity id, or "".
func EntityIDFromContext(ctx context.Context) string {
	return idFromContext(ctx, entityCtxKey{})
}

// WithLogger stores logger in context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext retrieves logger from context, or a nop logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok {
		return l
	}
	return NewNop()
}
