package log

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/stepfree/access-planner/pkg/requestid"
)

// StructuredLogger traces named operations. Every record carries the logger
// name, the operation and the request id found in the context, so a single
// evaluation can be followed from the HTTP handler down to the pipeline.
//
//	tracer := log.NewDebugLogger("evaluation_service").
//		WithContext(ctx).
//		Operation("create_evaluation").
//		WithString("subject", subject).
//		Build()
//	tracer.Step("record_created").WithUUID("evaluation_id", id).Log()
//	tracer.Success().Log()
type StructuredLogger struct {
	name  string
	level zapcore.Level
	ctx   context.Context
}

// NewDebugLogger returns a logger whose steps and successes are logged at debug level.
func NewDebugLogger(name string) *StructuredLogger {
	return &StructuredLogger{name: name, level: zapcore.DebugLevel, ctx: context.Background()}
}

// NewInfoLogger returns a logger whose steps and successes are logged at info level.
func NewInfoLogger(name string) *StructuredLogger {
	return &StructuredLogger{name: name, level: zapcore.InfoLevel, ctx: context.Background()}
}

func (l *StructuredLogger) WithContext(ctx context.Context) *StructuredLogger {
	return &StructuredLogger{name: l.name, level: l.level, ctx: ctx}
}

func (l *StructuredLogger) Operation(name string) *OperationBuilder {
	fields := []zap.Field{zap.String("operation", name)}
	if id := requestid.FromContext(l.ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	return &OperationBuilder{logger: l, fields: fields}
}

func (l *StructuredLogger) base() *zap.Logger {
	return zap.L().Named(l.name).WithOptions(zap.AddCallerSkip(1))
}

type OperationBuilder struct {
	logger *StructuredLogger
	fields []zap.Field
}

func (b *OperationBuilder) WithString(key, value string) *OperationBuilder {
	b.fields = append(b.fields, zap.String(key, value))
	return b
}

func (b *OperationBuilder) WithInt(key string, value int) *OperationBuilder {
	b.fields = append(b.fields, zap.Int(key, value))
	return b
}

func (b *OperationBuilder) WithBool(key string, value bool) *OperationBuilder {
	b.fields = append(b.fields, zap.Bool(key, value))
	return b
}

func (b *OperationBuilder) WithUUID(key string, value uuid.UUID) *OperationBuilder {
	b.fields = append(b.fields, zap.String(key, value.String()))
	return b
}

func (b *OperationBuilder) WithParam(key string, value any) *OperationBuilder {
	b.fields = append(b.fields, zap.Any(key, value))
	return b
}

func (b *OperationBuilder) Build() *OperationTracer {
	return &OperationTracer{logger: b.logger, fields: b.fields, start: time.Now()}
}

// OperationTracer emits the records of one operation.
type OperationTracer struct {
	logger *StructuredLogger
	fields []zap.Field
	start  time.Time
}

func (t *OperationTracer) Step(name string) *Event {
	return t.event(t.logger.level, fmt.Sprintf("step: %s", name), zap.String("step", name))
}

func (t *OperationTracer) Success() *Event {
	return t.event(t.logger.level, "operation succeeded", zap.Duration("elapsed", time.Since(t.start)))
}

// Warn records a contained failure: the operation goes on.
func (t *OperationTracer) Warn(err error) *Event {
	return t.event(zapcore.WarnLevel, "operation degraded", zap.Error(err))
}

func (t *OperationTracer) Error(err error) *Event {
	return t.event(zapcore.ErrorLevel, "operation failed", zap.Error(err), zap.Duration("elapsed", time.Since(t.start)))
}

func (t *OperationTracer) event(level zapcore.Level, msg string, extra ...zap.Field) *Event {
	fields := make([]zap.Field, 0, len(t.fields)+len(extra))
	fields = append(fields, t.fields...)
	fields = append(fields, extra...)
	return &Event{logger: t.logger, level: level, msg: msg, fields: fields}
}

type Event struct {
	logger *StructuredLogger
	level  zapcore.Level
	msg    string
	fields []zap.Field
}

func (e *Event) WithString(key, value string) *Event {
	e.fields = append(e.fields, zap.String(key, value))
	return e
}

func (e *Event) WithInt(key string, value int) *Event {
	e.fields = append(e.fields, zap.Int(key, value))
	return e
}

func (e *Event) WithBool(key string, value bool) *Event {
	e.fields = append(e.fields, zap.Bool(key, value))
	return e
}

func (e *Event) WithUUID(key string, value uuid.UUID) *Event {
	e.fields = append(e.fields, zap.String(key, value.String()))
	return e
}

func (e *Event) WithParam(key string, value any) *Event {
	e.fields = append(e.fields, zap.Any(key, value))
	return e
}

func (e *Event) Log() {
	if ce := e.logger.base().Check(e.level, e.msg); ce != nil {
		ce.Write(e.fields...)
	}
}
