// Package log wraps zap behind a small facade. Commands build a logger
// once at startup and install it via ResetDefault; everything else uses
// the package-level functions or derives named sub-loggers.
package log

import (
	"context"
	"io"
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"moul.io/zapfilter"
)

// Level is an alias for zapcore.Level so call sites don't need to import
// zap themselves.
type Level = zapcore.Level

const (
	DebugLevel = zapcore.DebugLevel
	InfoLevel  = zapcore.InfoLevel
	WarnLevel  = zapcore.WarnLevel
	ErrorLevel = zapcore.ErrorLevel
	FatalLevel = zapcore.FatalLevel
)

type (
	Field  = zap.Field
	Option = zap.Option
)

// field and option constructors re-exported from zap
var (
	Skip       = zap.Skip
	Binary     = zap.Binary
	Bool       = zap.Bool
	Duration   = zap.Duration
	Float32    = zap.Float32
	Float64    = zap.Float64
	Int        = zap.Int
	Int32      = zap.Int32
	Int64      = zap.Int64
	Uint       = zap.Uint
	Uint32     = zap.Uint32
	Uint64     = zap.Uint64
	String     = zap.String
	Stringer   = zap.Stringer
	Time       = zap.Time
	Any        = zap.Any
	ErrorField = zap.Error

	WithCaller    = zap.WithCaller
	AddStacktrace = zap.AddStacktrace
	AddCallerSkip = zap.AddCallerSkip
)

// ParseLevel converts a level name as used on the command line.
func ParseLevel(text string) (Level, error) {
	return zapcore.ParseLevel(text)
}

// Logger is a thin wrapper around zap.Logger. The level can be adjusted
// at runtime; filter rules exist only on loggers built from a Config.
// Named sub-loggers share level and rules with their parent.
type Logger struct {
	l     *zap.Logger
	level zap.AtomicLevel
	rules *atomic.Pointer[zapfilter.FilterFunc]
}

func (l *Logger) Debug(msg string, fields ...Field) { l.l.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...Field)  { l.l.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.l.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...Field) { l.l.Error(msg, fields...) }
func (l *Logger) Fatal(msg string, fields ...Field) { l.l.Fatal(msg, fields...) }

// Named derives a sub-logger; names chain with dots in the output.
func (l *Logger) Named(name string) *Logger {
	return &Logger{l: l.l.Named(name), level: l.level, rules: l.rules}
}

func (l *Logger) WithOptions(opts ...Option) *Logger {
	return &Logger{l: l.l.WithOptions(opts...), level: l.level, rules: l.rules}
}

// SetLevel adjusts the level of this logger and all loggers derived from
// it. On loggers with filter rules the rules take precedence.
func (l *Logger) SetLevel(level Level) {
	l.level.SetLevel(level)
}

func (l *Logger) Sugar() *zap.SugaredLogger { return l.l.Sugar() }

func (l *Logger) Sync() error { return l.l.Sync() }

// New builds a JSON logger writing to writer.
func New(writer io.Writer, level Level, opts ...Option) *Logger {
	if writer == nil {
		writer = os.Stderr
	}
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return newLogger(zapcore.NewJSONEncoder(cfg), writer, level, opts...)
}

// DevLogger builds a colored console logger for interactive use.
func DevLogger(writer io.Writer, level Level, opts ...Option) *Logger {
	if writer == nil {
		writer = os.Stderr
	}
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return newLogger(zapcore.NewConsoleEncoder(cfg), writer, level, opts...)
}

func newLogger(enc zapcore.Encoder, w io.Writer, level Level, opts ...Option) *Logger {
	lg := &Logger{
		level: zap.NewAtomicLevelAt(level),
		rules: &atomic.Pointer[zapfilter.FilterFunc]{},
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(w), lg.level)
	lg.l = zap.New(filteredCore(core, lg.level, lg.rules), opts...)
	return lg
}

// filteredCore wraps core so that filter rules can be swapped while the
// logger is in use. The filtering core decides on its own, ignoring the
// wrapped core's level, so without rules the closure has to enforce the
// atomic level itself. With rules installed the rules decide everything,
// which lets a rule like "debug:lap.*" pass entries below the default
// level.
func filteredCore(
	core zapcore.Core,
	level zap.AtomicLevel,
	rules *atomic.Pointer[zapfilter.FilterFunc],
) zapcore.Core {
	return zapfilter.NewFilteringCore(core,
		func(entry zapcore.Entry, fields []zapcore.Field) bool {
			if fn := rules.Load(); fn != nil {
				return (*fn)(entry, fields)
			}
			return level.Enabled(entry.Level)
		})
}

var std = New(os.Stderr, InfoLevel)

// Default is the logger behind the package-level functions.
func Default() *Logger { return std }

// ResetDefault replaces the default logger and rebinds the package-level
// functions. Not safe for concurrent use; call it during startup.
func ResetDefault(l *Logger) {
	std = l
	Debug = std.Debug
	Info = std.Info
	Warn = std.Warn
	Error = std.Error
	Fatal = std.Fatal

	sugar := std.l.Sugar()
	Debugf = sugar.Debugf
	Infof = sugar.Infof
	Warnf = sugar.Warnf
	Errorf = sugar.Errorf
	Fatalf = sugar.Fatalf
	Debugw = sugar.Debugw
	Infow = sugar.Infow
	Errorw = sugar.Errorw
}

// package-level logging via the default logger
var (
	Debug = std.Debug
	Info  = std.Info
	Warn  = std.Warn
	Error = std.Error
	Fatal = std.Fatal

	Debugf = std.l.Sugar().Debugf
	Infof  = std.l.Sugar().Infof
	Warnf  = std.l.Sugar().Warnf
	Errorf = std.l.Sugar().Errorf
	Fatalf = std.l.Sugar().Fatalf
	Debugw = std.l.Sugar().Debugw
	Infow  = std.l.Sugar().Infow
	Errorw = std.l.Sugar().Errorw
)

type ctxKey struct{}

// NewContext stores l for retrieval via GetFromContext.
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// GetFromContext returns the logger stored in ctx, falling back to the
// default logger.
func GetFromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return std
}
