package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger interface {
	Info(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	Debug(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
}

type Field = zap.Field

func StringField(key, value string) Field      { return zap.String(key, value) }
func Int64Field(key string, value int64) Field { return zap.Int64(key, value) }
func IntField(key string, value int) Field     { return zap.Int(key, value) }
func ErrorField(key string, err error) Field   { return zap.NamedError(key, err) }
func AnyField(key string, value any) Field     { return zap.Any(key, value) }

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// NewLogger writes info-level records to logs/info.log and warnings and above
// to logs/error.log. When the log files cannot be opened it falls back to a
// single stderr core so the process still starts.
func NewLogger() (*zap.Logger, func()) {
	infoFile, infoErr := os.OpenFile("logs/info.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	errorFile, errorErr := os.OpenFile("logs/error.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)

	if infoErr != nil || errorErr != nil {
		core := zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig()),
			zapcore.AddSync(os.Stderr),
			zapcore.InfoLevel,
		)
		log := zap.New(core, zap.AddCaller())
		return log, func() { log.Sync() }
	}

	infoCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig()),
		zapcore.AddSync(infoFile),
		zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return lvl <= zapcore.InfoLevel
		}),
	)

	errorCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig()),
		zapcore.AddSync(errorFile),
		zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return lvl >= zapcore.WarnLevel
		}),
	)

	log := zap.New(zapcore.NewTee(infoCore, errorCore), zap.AddCaller())

	cleanup := func() {
		log.Sync()
		infoFile.Close()
		errorFile.Close()
	}

	return log, cleanup
}

// NewNop returns a logger that discards everything. Used in tests.
func NewNop() Logger {
	return zap.NewNop()
}
