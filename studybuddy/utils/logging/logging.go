package logging

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	AppLogger     = zap.NewNop()
	RequestLogger = zap.NewNop()
	TimerLogger   = zap.NewNop()
	ErrorLogger   = zap.NewNop()
)

type traceKey struct{}

// WithTraceID tags ctx so LogDuration can correlate timings with a request.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

// ensureLogsDir makes sure the log folder exists
func ensureLogsDir(dir string) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		panic("Failed to create logs directory: " + err.Error())
	}
}

func newCore(encoder zapcore.Encoder, dir, name string, maxSize, maxAge int, level zapcore.Level) zapcore.Core {
	return zapcore.NewCore(encoder,
		zapcore.AddSync(&lumberjack.Logger{
			Filename: filepath.Join(dir, name), MaxSize: maxSize, MaxAge: maxAge, Compress: true,
		}),
		level,
	)
}

func InitLogger(dir string) {
	ensureLogsDir(dir)
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderConfig)

	// app.log also mirrors to stderr so startup failures are visible
	appCore := zapcore.NewTee(
		newCore(encoder, dir, "app.log", 100, 28, zap.InfoLevel),
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), zap.WarnLevel),
	)
	AppLogger = zap.New(appCore)
	RequestLogger = zap.New(newCore(encoder, dir, "request.log", 50, 7, zap.InfoLevel))
	TimerLogger = zap.New(newCore(encoder, dir, "timer.log", 50, 7, zap.InfoLevel))
	ErrorLogger = zap.New(newCore(encoder, dir, "error.log", 100, 30, zap.ErrorLevel))
}

// InitNopLogger discards everything. Used by tests and the CLI.
func InitNopLogger() {
	AppLogger = zap.NewNop()
	RequestLogger = zap.NewNop()
	TimerLogger = zap.NewNop()
	ErrorLogger = zap.NewNop()
}

func Sync() {
	for _, l := range []*zap.Logger{AppLogger, RequestLogger, TimerLogger, ErrorLogger} {
		_ = l.Sync()
	}
}

// LogDuration lets you do: defer logging.LogDuration(ctx, "FuncName")()
func LogDuration(ctx context.Context, name string) func() {
	start := time.Now()
	traceID, _ := ctx.Value(traceKey{}).(string)

	return func() {
		fields := []zap.Field{
			zap.String("func", name),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		}
		if traceID != "" {
			fields = append(fields, zap.String("trace_id", traceID))
		}

		// write ONLY to timer.log
		TimerLogger.Info("Function timed", fields...)
	}
}
