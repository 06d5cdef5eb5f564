package trace

import "context"

type ctxKey struct{}

// scope is what a context carries: the tracer and the span new work nests under.
type scope struct {
	tracer Tracer
	parent uint64
}

func scopeOf(ctx context.Context) scope {
	if ctx != nil {
		if s, ok := ctx.Value(ctxKey{}).(scope); ok {
			return s
		}
	}
	return scope{tracer: Nop}
}

// WithTracer attaches t, keeping the current parent span.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	s := scopeOf(ctx)
	s.tracer = t
	return context.WithValue(ctx, ctxKey{}, s)
}

// WithSpan makes span the parent of spans begun from the returned context.
func WithSpan(ctx context.Context, span *Span) context.Context {
	s := scopeOf(ctx)
	s.parent = span.ID()
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the attached tracer, or Nop.
func FromContext(ctx context.Context) Tracer { return scopeOf(ctx).tracer }

// ParentFrom returns the span id set by WithSpan, or 0.
func ParentFrom(ctx context.Context) uint64 { return scopeOf(ctx).parent }
