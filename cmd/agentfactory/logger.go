package main

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hupe1980/agentfactory/config"
	"github.com/hupe1980/agentfactory/logging"
)

// newLogger builds the configured backend and returns its flush function.
func newLogger(cfg config.LoggerConfig) (logging.Logger, func() error, error) {
	level := logging.ParseLevel(cfg.Level)

	if cfg.Backend != "zap" {
		return logging.NewSlogLogger(level, cfg.Format, cfg.AddSource), func() error { return nil }, nil
	}

	var zcfg zap.Config
	if cfg.Format == "json" {
		zcfg = zap.NewProductionConfig()
		zcfg.EncoderConfig.TimeKey = "timestamp"
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zcfg.Level = zap.NewAtomicLevelAt(zapLevel(level))
	zcfg.DisableCaller = !cfg.AddSource

	zl, err := zcfg.Build()
	if err != nil {
		return nil, nil, err
	}

	adapter := logging.NewZapAdapter(zl)

	return adapter, adapter.(*logging.ZapAdapter).Sync, nil
}

func zapLevel(l logging.LogLevel) zapcore.Level {
	switch l {
	case logging.LogLevelDebug:
		return zapcore.DebugLevel
	case logging.LogLevelWarn:
		return zapcore.WarnLevel
	case logging.LogLevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
