package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerAdapter hands out per-category loggers. Every category also writes
// to the base logger; the category files are only added when a MultiLogger
// is configured.
type LoggerAdapter struct {
	base        *zap.Logger
	multiLogger *MultiLogger
}

// NewLoggerAdapter creates an adapter over base and an optional multi-logger
func NewLoggerAdapter(base *zap.Logger, multiLogger *MultiLogger) *LoggerAdapter {
	if base == nil {
		base = zap.NewNop()
	}
	return &LoggerAdapter{base: base, multiLogger: multiLogger}
}

// NewSingleLoggerAdapter creates an adapter for a single logger
func NewSingleLoggerAdapter(logger *zap.Logger) *LoggerAdapter {
	return NewLoggerAdapter(logger, nil)
}

func (la *LoggerAdapter) category(category LogCategory) *zap.Logger {
	if la.multiLogger == nil {
		return la.base
	}
	cores := []zapcore.Core{la.multiLogger.GetLogger(category).Core()}
	if category != CategoryError {
		// The error file only accepts error level, so this copies failures.
		cores = append(cores, la.multiLogger.Error().Core())
	}
	return la.base.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(append([]zapcore.Core{core}, cores...)...)
	}))
}

// Access returns the HTTP access logger
func (la *LoggerAdapter) Access() *zap.Logger {
	return la.category(CategoryAccess)
}

// Transfer returns the transfer lifecycle logger
func (la *LoggerAdapter) Transfer() *zap.Logger {
	return la.category(CategoryTransfer)
}

// Error returns the error logger
func (la *LoggerAdapter) Error() *zap.Logger {
	return la.category(CategoryError)
}

// General returns the base logger
func (la *LoggerAdapter) General() *zap.Logger {
	return la.base
}

// Sync flushes all loggers
func (la *LoggerAdapter) Sync() error {
	err := la.base.Sync()
	if la.multiLogger != nil {
		if multiErr := la.multiLogger.Sync(); multiErr != nil {
			err = multiErr
		}
	}
	return err
}

// Close flushes the base logger and closes the category files
func (la *LoggerAdapter) Close() error {
	_ = la.base.Sync()
	if la.multiLogger != nil {
		return la.multiLogger.Close()
	}
	return nil
}
