// Package logger builds the service logger: structured calls flow through
// ectologger and are emitted by zap.
package logger

import (
	"fmt"
	"strings"

	"github.com/Gobusters/ectologger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns the service logger and a flush func for shutdown.
func New(level string, pretty bool) (ectologger.Logger, func(), error) {
	cfg := zap.NewProductionConfig()
	if pretty {
		cfg = zap.NewDevelopmentConfig()
	}
	if parsed, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(parsed)
	}

	zl, err := cfg.Build()
	if err != nil {
		return nil, nil, err
	}
	sugar := zl.Sugar()

	log := ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {
		args := make([]any, 0, len(msg.Fields)*2)
		for key, value := range msg.Fields {
			args = append(args, key, value)
		}

		switch strings.ToLower(fmt.Sprintf("%v", msg.Level)) {
		case "debug":
			sugar.Debugw(msg.Message, args...)
		case "warn", "warning":
			sugar.Warnw(msg.Message, args...)
		case "error", "fatal":
			sugar.Errorw(msg.Message, args...)
		default:
			sugar.Infow(msg.Message, args...)
		}
	})

	return log, func() { _ = zl.Sync() }, nil
}
