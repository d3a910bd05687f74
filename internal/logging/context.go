package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// RequestContext identifies the request being handled. It is attached to
// the request's context.Context at middleware entry and travels with it;
// every log call made through Ctx during that request carries these
// fields. Because the values live on the per-request context rather than
// any shared variable, concurrent requests can never observe each other's
// identifiers, and release is structural: the derived context dies with
// the request.
type RequestContext struct {
	RequestID string
	UserID    string
}

type requestContextKey struct{}

// WithRequestContext returns a context carrying rc and a request-scoped
// logger derived from l.
func (l *Logger) WithRequestContext(ctx context.Context, rc RequestContext) context.Context {
	lc := l.base.With().Str("request_id", rc.RequestID)
	if rc.UserID != "" {
		lc = lc.Str("user_id", rc.UserID)
	}
	logger := lc.Logger()
	ctx = context.WithValue(ctx, requestContextKey{}, rc)
	return logger.WithContext(ctx)
}

// WithUserID returns a context whose request context and logger also carry
// the authenticated user's id. Used once authentication has resolved the
// caller, partway through a request.
func WithUserID(ctx context.Context, userID string) context.Context {
	rc, _ := RequestContextFrom(ctx)
	rc.UserID = userID
	logger := zerolog.Ctx(ctx).With().Str("user_id", userID).Logger()
	ctx = context.WithValue(ctx, requestContextKey{}, rc)
	return logger.WithContext(ctx)
}

// RequestContextFrom returns the request context attached to ctx, if any.
func RequestContextFrom(ctx context.Context) (RequestContext, bool) {
	rc, ok := ctx.Value(requestContextKey{}).(RequestContext)
	return rc, ok
}

// Ctx returns the request-scoped logger attached to ctx, or the base
// logger when none is attached. Logging without a request context (for
// example at startup) simply omits the request fields.
func (l *Logger) Ctx(ctx context.Context) *zerolog.Logger {
	if lg := zerolog.Ctx(ctx); lg.GetLevel() != zerolog.Disabled {
		return lg
	}
	return &l.base
}
