package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// WithSpan выполняет body внутри дочернего span с именем name.
// Span открывается до вызова body и закрывается ровно один раз на любом пути выхода:
// успех, ошибка или panic. Ошибка body записывается в span и возвращается без изменений,
// panic пробрасывается дальше уже после закрытия span.
func WithSpan[T any](
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	body func(ctx context.Context) (T, error),
	opts ...trace.SpanStartOption,
) (result T, err error) {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}

	spanCtx, span := tracer.Start(ctx, name, opts...)
	defer func() {
		if r := recover(); r != nil {
			span.RecordError(fmt.Errorf("panic: %v", r), trace.WithStackTrace(true))
			span.SetStatus(codes.Error, "panic")
			span.End()
			panic(r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	return body(spanCtx)
}

// Annotate добавляет атрибуты к активному span из ctx, если он есть.
func Annotate(ctx context.Context, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(attrs...)
}
