/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package log

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// singleton interface
var (
	instMu sync.RWMutex
	inst   *zap.SugaredLogger
)

// Initialize initializes the default log subsystem.
func Initialize(cfg *Config) {
	instMu.Lock()
	defer instMu.Unlock()
	if inst != nil {
		return
	}
	if cfg.Level == OffLevel {
		inst = zap.NewNop().Sugar()
		return
	}
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(zapLevel(cfg.Level))
	zapCfg.DisableCaller = true
	zapCfg.DisableStacktrace = true
	zapCfg.Encoding = "console"
	zapCfg.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder

	outputPaths := []string{"/dev/stdout"}
	if len(cfg.LogPath) > 0 {
		outputPaths = append(outputPaths, cfg.LogPath)
	}
	zapCfg.OutputPaths = outputPaths

	lg, err := zapCfg.Build()
	if err != nil {
		panic(err)
	}
	inst = lg.Sugar()
}

// Shutdown flushes any buffered log entry and disables the subsystem.
// This method should be used only for testing purposes.
func Shutdown() {
	instMu.Lock()
	defer instMu.Unlock()
	if inst != nil {
		_ = inst.Sync()
		inst = nil
	}
}

func instance() *zap.SugaredLogger {
	instMu.RLock()
	defer instMu.RUnlock()
	return inst
}

// Debugf uses fmt.Sprintf to log a 'debug' templated message.
func Debugf(format string, args ...interface{}) {
	if lg := instance(); lg != nil {
		lg.Debugf(format, args...)
	}
}

// Infof uses fmt.Sprintf to log an 'info' templated message.
func Infof(format string, args ...interface{}) {
	if lg := instance(); lg != nil {
		lg.Infof(format, args...)
	}
}

// Warnf uses fmt.Sprintf to log a 'warning' templated message.
func Warnf(format string, args ...interface{}) {
	if lg := instance(); lg != nil {
		lg.Warnf(format, args...)
	}
}

// Errorf uses fmt.Sprintf to log an 'error' templated message.
func Errorf(format string, args ...interface{}) {
	if lg := instance(); lg != nil {
		lg.Errorf(format, args...)
	}
}

// Error logs an 'error' value.
func Error(err error) {
	if lg := instance(); lg != nil {
		lg.Errorf("%v", err)
	}
}

// Fatalf uses fmt.Sprintf to log a 'fatal' templated message.
// Application will terminate after logging.
func Fatalf(format string, args ...interface{}) {
	if lg := instance(); lg != nil {
		lg.Fatalf(format, args...)
	}
}

func zapLevel(level Level) zapcore.Level {
	switch level {
	case DebugLevel:
		return zapcore.DebugLevel
	case InfoLevel:
		return zapcore.InfoLevel
	case WarningLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	case FatalLevel:
		return zapcore.FatalLevel
	}
	return zapcore.InfoLevel
}
