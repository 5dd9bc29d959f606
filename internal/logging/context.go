package logging

import (
	"context"

	"go.uber.org/zap"
)

type requestCtxKey struct{}
type scheduleCtxKey struct{}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestCtxKey{}, requestID)
}

// RequestIDFromContext extracts the request ID, or "" when absent.
func RequestIDFromContext(ctx context.Context) string {
	if r, ok := ctx.Value(requestCtxKey{}).(string); ok {
		return r
	}
	return ""
}

// WithScheduleID adds the schedule being processed to the context.
func WithScheduleID(ctx context.Context, scheduleID uint) context.Context {
	return context.WithValue(ctx, scheduleCtxKey{}, scheduleID)
}

// ScheduleIDFromContext extracts the schedule ID; ok is false when absent.
func ScheduleIDFromContext(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(scheduleCtxKey{}).(uint)
	return id, ok
}

// ContextFields extracts correlation data from the context as zap fields.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 2)
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request.id", requestID))
	}
	if scheduleID, ok := ScheduleIDFromContext(ctx); ok {
		fields = append(fields, zap.Uint("schedule.id", scheduleID))
	}
	return fields
}
