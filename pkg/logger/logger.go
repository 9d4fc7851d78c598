package logger

import (
	"context"
	"olp_backend/internal/config"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is a no-op logger until InitLogger runs.
var Log = zap.NewNop()

type requestIDKey struct{}

// InitLogger builds the global logger: JSON lines to a rotated file and a console copy.
// An empty file name disables the file sink.
func InitLogger(cfg *config.Config) {
	Log = New(cfg.Log, cfg.Server.Mode, zapcore.AddSync(os.Stdout))
}

// New builds a logger from the log settings, writing the console encoding to console.
func New(cfg config.LogConfig, mode string, console zapcore.WriteSyncer) *zap.Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	level := levelFor(cfg.Level, mode)
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), console, level),
	}
	if cfg.File != "" {
		fileWriter := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), fileWriter, level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel)).
		Named("olp").
		With(zap.String("service", "quiz-engine"))
}

// levelFor honors an explicit level; otherwise debug mode logs at debug and everything else at info.
func levelFor(name, mode string) zapcore.Level {
	if name != "" {
		var l zapcore.Level
		if err := l.UnmarshalText([]byte(name)); err == nil {
			return l
		}
	}
	if mode == "debug" {
		return zap.DebugLevel
	}
	return zap.InfoLevel
}

// WithRequestID tags ctx so that FromContext loggers carry the request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// FromContext returns the global logger with the request id of ctx attached, if any.
func FromContext(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return Log
	}
	if id := RequestIDFrom(ctx); id != "" {
		return Log.With(zap.String("requestId", id))
	}
	return Log
}
