// Package trace provides the leveled span tracer that serves as the logging
// layer of the papyrus tools.
//
// The loader opens one span per document and one per table. Each section
// span records its byte offset, the bytes it consumed and, at debug level,
// every finding with its offset, so a trace shows where a damaged section
// stops making sense and how long each table took.
//
//	papyrus info --trace=- --trace-level=detail save.pap
//
// Two storage modes exist. Stream writes every event as it happens. Ring is a
// flight recorder: it keeps the recent events in memory and writes out the
// span tree of a document only when that document fails to load, so batch
// runs stay quiet unless something breaks.
//
//	papyrus info --trace=- --trace-mode=ring --trace-level=detail saves/*.pap
//
// Spans nest through the context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopeCommand, "batch", trace.ParentFrom(ctx))
//	ctx = trace.WithSpan(ctx, span)
package trace
