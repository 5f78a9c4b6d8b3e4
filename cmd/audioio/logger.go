// SPDX-License-Identifier: EPL-2.0

package main

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ik5/audioio/internal/config"
)

// newLogger builds the process logger. Console output goes to stderr; when
// cfg.File is set, JSON lines go to a rotated file instead. The returned
// function flushes and closes the sink.
func newLogger(cfg config.LogConfig, stderr io.Writer) (*zap.Logger, func()) {
	level := cfg.Level.ZapLevel()

	if cfg.File == "" {
		enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		core := zapcore.NewCore(enc, zapcore.AddSync(stderr), level)
		log := zap.New(core)
		return log, func() { _ = log.Sync() }
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}

	enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	core := zapcore.NewCore(enc, zapcore.AddSync(rotator), level)
	log := zap.New(core, zap.AddCaller())

	return log, func() {
		_ = log.Sync()
		_ = rotator.Close()
	}
}
