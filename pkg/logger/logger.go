package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a nil-safe wrapper over zerolog with typed fields.
type Logger struct {
	zl zerolog.Logger
}

type Config struct {
	Level   string `yaml:"level" default:"info"`     // debug, info, warn, error
	Format  string `yaml:"format" default:"console"` // json or console
	Output  string `yaml:"output" default:"stdout"`  // stdout, stderr, or file path
	Service string `yaml:"service"`
}

func New(cfg *Config) (*Logger, error) {
	out, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}
	return newLogger(out, cfg)
}

func openOutput(output string) (io.Writer, error) {
	switch output {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("could not open log file: %w", err)
	}
	return f, nil
}

func newLogger(out io.Writer, cfg *Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	switch cfg.Format {
	case "", "json":
	case "console":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}

	ctx := zerolog.New(out).Level(level).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str("service", cfg.Service)
	}
	return &Logger{zl: ctx.Logger()}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With returns a child logger that carries fields on every entry.
func (l *Logger) With(fields ...Field) *Logger {
	if l == nil {
		return Nop()
	}
	ctx := l.zl.With()
	for _, f := range fields {
		ctx = f.ctx(ctx)
	}
	return &Logger{zl: ctx.Logger()}
}

func (l *Logger) Debug(msg string, fields ...Field) { l.emit(zerolog.DebugLevel, msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { l.emit(zerolog.InfoLevel, msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.emit(zerolog.WarnLevel, msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { l.emit(zerolog.ErrorLevel, msg, fields) }

func (l *Logger) emit(level zerolog.Level, msg string, fields []Field) {
	if l == nil {
		return
	}
	ev := l.zl.WithLevel(level)
	if ev == nil {
		return
	}
	for _, f := range fields {
		f.event(ev)
	}
	ev.Msg(msg)
}

// Field is a typed key/value attached to one entry or to a child logger.
type Field struct {
	event func(*zerolog.Event)
	ctx   func(zerolog.Context) zerolog.Context
}

func String(key, value string) Field {
	return Field{
		event: func(e *zerolog.Event) { e.Str(key, value) },
		ctx:   func(c zerolog.Context) zerolog.Context { return c.Str(key, value) },
	}
}

func Int(key string, value int) Field {
	return Field{
		event: func(e *zerolog.Event) { e.Int(key, value) },
		ctx:   func(c zerolog.Context) zerolog.Context { return c.Int(key, value) },
	}
}

func Int64(key string, value int64) Field {
	return Field{
		event: func(e *zerolog.Event) { e.Int64(key, value) },
		ctx:   func(c zerolog.Context) zerolog.Context { return c.Int64(key, value) },
	}
}

func Float64(key string, value float64) Field {
	return Field{
		event: func(e *zerolog.Event) { e.Float64(key, value) },
		ctx:   func(c zerolog.Context) zerolog.Context { return c.Float64(key, value) },
	}
}

func Bool(key string, value bool) Field {
	return Field{
		event: func(e *zerolog.Event) { e.Bool(key, value) },
		ctx:   func(c zerolog.Context) zerolog.Context { return c.Bool(key, value) },
	}
}

func Time(key string, value time.Time) Field {
	return Field{
		event: func(e *zerolog.Event) { e.Time(key, value) },
		ctx:   func(c zerolog.Context) zerolog.Context { return c.Time(key, value) },
	}
}

// Duration logs d in milliseconds.
func Duration(key string, d time.Duration) Field {
	return Int64(key, d.Milliseconds())
}

func Strings(key string, values []string) Field {
	return Field{
		event: func(e *zerolog.Event) { e.Strs(key, values) },
		ctx:   func(c zerolog.Context) zerolog.Context { return c.Strs(key, values) },
	}
}

func Error(err error) Field {
	return Field{
		event: func(e *zerolog.Event) { e.Err(err) },
		ctx:   func(c zerolog.Context) zerolog.Context { return c.Err(err) },
	}
}

func Any(key string, value any) Field {
	return Field{
		event: func(e *zerolog.Event) { e.Interface(key, value) },
		ctx:   func(c zerolog.Context) zerolog.Context { return c.Interface(key, value) },
	}
}
