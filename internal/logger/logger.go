package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field is a structured log field.
type Field = zapcore.Field

var (
	String   = zap.String
	Int      = zap.Int
	Int64    = zap.Int64
	Float64  = zap.Float64
	Bool     = zap.Bool
	Duration = zap.Duration
	Error    = zap.Error
	Any      = zap.Any
	Uintptr  = zap.Uintptr
)

// Logger wraps zap.Logger.
type Logger struct {
	*zap.Logger
}

// Config selects level and encoding.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // console, json
	Output io.Writer
}

func coloredLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch level {
	case zapcore.ErrorLevel:
		enc.AppendString("\033[1;31m" + level.CapitalString() + "\033[0m")
	case zapcore.WarnLevel:
		enc.AppendString("\033[1;33m" + level.CapitalString() + "\033[0m")
	case zapcore.InfoLevel:
		enc.AppendString("\033[1;36m" + level.CapitalString() + "\033[0m")
	default:
		enc.AppendString(level.CapitalString())
	}
}

// bracketNameEncoder renders the component as "[hotkey]" padded to a fixed width.
func bracketNameEncoder(name string, enc zapcore.PrimitiveArrayEncoder) {
	parts := strings.Split(name, ".")
	display := "[" + parts[len(parts)-1] + "]"
	if len(display) < 12 {
		display += strings.Repeat(" ", 12-len(display))
	}
	enc.AppendString(display)
}

// New creates a logger with the given configuration.
func New(cfg Config) (*Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      zapcore.OmitKey,
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.TimeEncoderOfLayout("15:04:05.000"),
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	var encoder zapcore.Encoder
	switch cfg.Format {
	case "", "console":
		encCfg.EncodeLevel = coloredLevelEncoder
		encCfg.EncodeName = bracketNameEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	case "json":
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encCfg.EncodeLevel = zapcore.LowercaseLevelEncoder
		encCfg.EncodeName = zapcore.FullNameEncoder
		encoder = zapcore.NewJSONEncoder(encCfg)
	default:
		return nil, fmt.Errorf("unsupported log format: %s", cfg.Format)
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	core := zapcore.NewCore(encoder, zapcore.AddSync(out), level)
	return &Logger{Logger: zap.New(core, zap.AddStacktrace(zapcore.ErrorLevel))}, nil
}

// Nop returns a logger that discards everything. Used by tests and by
// components constructed without a logger.
func Nop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// ParseLevel maps a config level to a zap level.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unsupported log level: %s", level)
	}
}

// Named returns a child logger for a component.
func (l *Logger) Named(name string) *Logger {
	return &Logger{Logger: l.Logger.Named(name)}
}

// With returns a logger with the given fields attached.
func (l *Logger) With(fields ...Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...)}
}

// WithRun tags every entry with the pipeline run id.
func (l *Logger) WithRun(runID string) *Logger {
	return l.With(zap.String("run", runID))
}
