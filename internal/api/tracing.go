package api

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// NewLogTracerProvider returns a tracer provider that writes every finished span as one
// "api.span" log entry. Spans are exported synchronously, so nothing is lost on exit.
func NewLogTracerProvider(log logrus.FieldLogger) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(sdktrace.WithSyncer(logExporter{log: log}))
}

type logExporter struct {
	log logrus.FieldLogger
}

func (e logExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, s := range spans {
		fields := logrus.Fields{
			"span":        s.Name(),
			"trace_id":    s.SpanContext().TraceID().String(),
			"duration_ms": s.EndTime().Sub(s.StartTime()).Milliseconds(),
		}
		for _, kv := range s.Attributes() {
			fields[string(kv.Key)] = kv.Value.AsInterface()
		}
		entry := e.log.WithFields(fields)
		if st := s.Status(); st.Code == codes.Error {
			entry.WithField("error", st.Description).Warn("api.span")
			continue
		}
		entry.Info("api.span")
	}
	return nil
}

func (logExporter) Shutdown(ctx context.Context) error { return nil }
