package otelhelper

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SetError marks the span as failed, records the error and emits a
// "run_failed" event carrying the given run attributes (run id, worker id)
// so trace backends can group failures per scan run.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	span.RecordError(err, trace.WithAttributes(attrs...))
	span.SetStatus(codes.Error, err.Error())
	span.AddEvent("run_failed", trace.WithAttributes(
		append(attrs, attribute.String("error.message", err.Error()))...,
	))
}
