// Package audit writes security events to the structured log. It is the
// default AuditSink when no database-backed sink is configured.
package audit

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/waisgo/authcore/internal/auth"
	"github.com/waisgo/authcore/internal/obs"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit
// correlation.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// LogSink emits audit events as JSON log lines through the shared logger.
type LogSink struct {
	log func() *zerolog.Logger
}

var _ auth.AuditSink = (*LogSink)(nil)

func NewLogSink() *LogSink {
	return &LogSink{log: obs.Logger}
}

// Record writes one audit line. It never blocks on anything but the log
// writer and its error is advisory; callers treat the sink as
// fire-and-forget.
func (s *LogSink) Record(ctx context.Context, ev auth.Event) error {
	e := s.log().Info().
		Str("type", "audit").
		Str("action", ev.Action).
		Str("result", ev.Result)
	if rid := requestIDFromContext(ctx); rid != "" {
		e = e.Str("request_id", rid)
	}
	if ev.IdentityID != "" {
		e = e.Str("identity_id", ev.IdentityID)
	}
	if ev.Email != "" {
		e = e.Str("email", ev.Email)
	}
	if ev.IP != "" {
		e = e.Str("ip", ev.IP)
	}
	if ev.UserAgent != "" {
		e = e.Str("user_agent", ev.UserAgent)
	}
	e.Msg("audit")
	return nil
}
