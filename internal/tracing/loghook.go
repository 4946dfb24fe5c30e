package tracing

import (
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

// LogHook добавляет trace_id и span_id к записям logrus, у которых задан контекст.
type LogHook struct{}

// Levels возвращает все уровни.
func (LogHook) Levels() []log.Level {
	return log.AllLevels
}

// Fire дописывает идентификаторы span в поля записи.
func (LogHook) Fire(entry *log.Entry) error {
	if entry.Context == nil {
		return nil
	}
	sc := trace.SpanContextFromContext(entry.Context)
	if sc.HasTraceID() {
		entry.Data["trace_id"] = sc.TraceID().String()
	}
	if sc.HasSpanID() {
		entry.Data["span_id"] = sc.SpanID().String()
	}
	return nil
}
