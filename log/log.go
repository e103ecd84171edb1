//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.
// All rights reserved.
//
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the  Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.
//
//

// Package log provides the structured logger shared by the textbook RAG packages.
package log

import (
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log level constants.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
	LevelFatal = "fatal"
)

// Output format constants.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

var zapLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)

var activeCore = func() *atomic.Pointer[zapcore.Core] {
	p := &atomic.Pointer[zapcore.Core]{}
	core := newCore(FormatConsole)
	p.Store(&core)
	return p
}()

// Default borrows logging utilities from zap.
// It can be replaced by anything that implements Logger.
var Default Logger = zap.New(
	swapCore{active: activeCore},
	zap.AddCaller(),
	zap.AddCallerSkip(1),
).Sugar()

func newCore(format string) zapcore.Core {
	var enc zapcore.Encoder
	if format == FormatJSON {
		cfg := encoderConfig
		cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
		enc = zapcore.NewJSONEncoder(cfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encoderConfig)
	}
	return zapcore.NewCore(enc, zapcore.AddSync(os.Stdout), zapLevel)
}

// swapCore forwards to the core installed by SetFormat.
type swapCore struct {
	active *atomic.Pointer[zapcore.Core]
}

func (c swapCore) current() zapcore.Core { return *c.active.Load() }

func (c swapCore) Enabled(l zapcore.Level) bool { return c.current().Enabled(l) }

func (c swapCore) With(fields []zapcore.Field) zapcore.Core { return c.current().With(fields) }

func (c swapCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	return c.current().Check(e, ce)
}

func (c swapCore) Write(e zapcore.Entry, fields []zapcore.Field) error {
	return c.current().Write(e, fields)
}

func (c swapCore) Sync() error { return c.current().Sync() }

// SetLevel sets the log level to the specified level.
// Unknown levels fall back to info.
func SetLevel(level string) {
	switch level {
	case LevelDebug:
		zapLevel.SetLevel(zapcore.DebugLevel)
	case LevelInfo:
		zapLevel.SetLevel(zapcore.InfoLevel)
	case LevelWarn:
		zapLevel.SetLevel(zapcore.WarnLevel)
	case LevelError:
		zapLevel.SetLevel(zapcore.ErrorLevel)
	case LevelFatal:
		zapLevel.SetLevel(zapcore.FatalLevel)
	default:
		zapLevel.SetLevel(zapcore.InfoLevel)
	}
}

// SetFormat switches the encoder behind Default between console and json.
// It is safe to call while other goroutines log.
func SetFormat(format string) {
	core := newCore(format)
	activeCore.Store(&core)
}

var encoderConfig = zapcore.EncoderConfig{
	TimeKey:        "ts",
	LevelKey:       "lvl",
	NameKey:        "name",
	CallerKey:      "caller",
	MessageKey:     "message",
	StacktraceKey:  "stacktrace",
	LineEnding:     zapcore.DefaultLineEnding,
	EncodeLevel:    zapcore.CapitalColorLevelEncoder,
	EncodeTime:     zapcore.RFC3339TimeEncoder,
	EncodeDuration: zapcore.SecondsDurationEncoder,
	EncodeCaller:   zapcore.ShortCallerEncoder,
}

// Logger defines the logging interface used across the module.
type Logger interface {
	// Debug logs to DEBUG log. Arguments are handled in the manner of fmt.Print.
	Debug(args ...any)
	// Debugf logs to DEBUG log. Arguments are handled in the manner of fmt.Printf.
	Debugf(format string, args ...any)
	// Info logs to INFO log. Arguments are handled in the manner of fmt.Print.
	Info(args ...any)
	// Infof logs to INFO log. Arguments are handled in the manner of fmt.Printf.
	Infof(format string, args ...any)
	// Warn logs to WARNING log. Arguments are handled in the manner of fmt.Print.
	Warn(args ...any)
	// Warnf logs to WARNING log. Arguments are handled in the manner of fmt.Printf.
	Warnf(format string, args ...any)
	// Error logs to ERROR log. Arguments are handled in the manner of fmt.Print.
	Error(args ...any)
	// Errorf logs to ERROR log. Arguments are handled in the manner of fmt.Printf.
	Errorf(format string, args ...any)
	// Fatal logs to FATAL log and exits. Arguments are handled in the manner of fmt.Print.
	Fatal(args ...any)
	// Fatalf logs to FATAL log and exits. Arguments are handled in the manner of fmt.Printf.
	Fatalf(format string, args ...any)
}

// Debug logs to DEBUG log.
func Debug(args ...any) { Default.Debug(args...) }

// Debugf logs to DEBUG log.
func Debugf(format string, args ...any) { Default.Debugf(format, args...) }

// Info logs to INFO log.
func Info(args ...any) { Default.Info(args...) }

// Infof logs to INFO log.
func Infof(format string, args ...any) { Default.Infof(format, args...) }

// Warn logs to WARNING log.
func Warn(args ...any) { Default.Warn(args...) }

// Warnf logs to WARNING log.
func Warnf(format string, args ...any) { Default.Warnf(format, args...) }

// Error logs to ERROR log.
func Error(args ...any) { Default.Error(args...) }

// Errorf logs to ERROR log.
func Errorf(format string, args ...any) { Default.Errorf(format, args...) }

// Fatal logs to FATAL log and exits.
func Fatal(args ...any) { Default.Fatal(args...) }

// Fatalf logs to FATAL log and exits.
func Fatalf(format string, args ...any) { Default.Fatalf(format, args...) }

// Truncate shortens s to at most n runes for log lines, appending "..." when cut.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
