package logging

import (
	"context"

	"go.uber.org/zap"
)

// Logger is the logging interface handed to every client. It mirrors the sugared zap API with
// the additions used throughout this module.
type Logger interface {
	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Debugw(msg string, keysAndValues ...interface{})
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	Errorw(msg string, keysAndValues ...interface{})

	// CDebugf logs at debug level, or at info level when the context was created with
	// EnableDebugMode.
	CDebugf(ctx context.Context, template string, args ...interface{})
	// CDebugw is the structured variant of CDebugf.
	CDebugw(ctx context.Context, msg string, keysAndValues ...interface{})

	Sublogger(subname string) Logger
	Desugar() *zap.Logger
	Sync() error
}

type impl struct {
	*zap.SugaredLogger
}

// FromZapCompatible wraps a sugared zap logger.
func FromZapCompatible(logger *zap.SugaredLogger) Logger {
	return &impl{logger}
}

func (imp *impl) Sublogger(subname string) Logger {
	return &impl{imp.SugaredLogger.Named(subname)}
}

func (imp *impl) CDebugf(ctx context.Context, template string, args ...interface{}) {
	if IsDebugMode(ctx) {
		imp.With("debug_key", GetName(ctx)).Infof(template, args...)
		return
	}
	imp.Debugf(template, args...)
}

func (imp *impl) CDebugw(ctx context.Context, msg string, keysAndValues ...interface{}) {
	if IsDebugMode(ctx) {
		imp.Infow(msg, append(keysAndValues, "debug_key", GetName(ctx))...)
		return
	}
	imp.Debugw(msg, keysAndValues...)
}
