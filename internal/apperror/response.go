package apperror

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"
)

type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Body is the JSON envelope of every failed response
type Body struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

// ToResponse maps err to a status and a client safe body. Anything outside the
// taxonomy becomes a generic 500.
func ToResponse(err error) (int, Body) {
	appErr, ok := As(err)
	if !ok {
		return KindInternal.Status(), Body{
			Success: false,
			Error:   ErrorBody{Message: KindInternal.DefaultMessage()},
		}
	}

	message := appErr.Message
	if appErr.Kind == KindInternal {
		// Internal messages may have been built from driver errors
		message = KindInternal.DefaultMessage()
	}
	if message == "" {
		message = appErr.Kind.DefaultMessage()
	}

	return appErr.Kind.Status(), Body{
		Success: false,
		Error:   ErrorBody{Message: message, Code: appErr.Code},
	}
}

// LogContext describes the request an error was raised in
type LogContext struct {
	RequestID string
	Method    string
	Route     string
	ClientIP  string
}

// Logger records errors before they are externalized
type Logger struct {
	log *slog.Logger
	now func() time.Time
}

func NewLogger(l *slog.Logger) *Logger {
	if l == nil {
		l = slog.Default()
	}
	return &Logger{log: l, now: time.Now}
}

// Log writes err to the sink. Taxonomy errors log at WARN, everything else at
// ERROR with a stack trace. A failing sink never propagates.
func (l *Logger) Log(ctx context.Context, err error, lc LogContext) {
	if l == nil || err == nil {
		return
	}
	defer func() {
		_ = recover()
	}()

	attrs := []any{
		slog.Time("timestamp", l.now().UTC()),
		slog.String("method", lc.Method),
		slog.String("route", lc.Route),
		slog.String("request_id", lc.RequestID),
		slog.String("client_ip", lc.ClientIP),
	}

	appErr, ok := As(err)
	if ok && appErr.Kind != KindInternal {
		attrs = append(attrs,
			slog.String("kind", appErr.Kind.String()),
			slog.Int("status", appErr.Kind.Status()),
			slog.String("message", appErr.Message),
			slog.String("code", appErr.Code),
		)
		if appErr.Err != nil {
			attrs = append(attrs, slog.String("cause", appErr.Err.Error()))
		}
		l.log.WarnContext(ctx, "request failed", attrs...)
		return
	}

	attrs = append(attrs,
		slog.String("kind", KindInternal.String()),
		slog.Int("status", KindInternal.Status()),
		slog.String("error", err.Error()),
		slog.String("stack", string(debug.Stack())),
	)
	l.log.ErrorContext(ctx, "unexpected error", attrs...)
}
