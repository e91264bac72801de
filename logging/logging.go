package logging

import (
	"fmt"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger writing to stderr. format is "console" or "json".
func New(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	var config zap.Config
	switch format {
	case "json":
		config = zap.NewProductionConfig()
	case "console", "":
		config = zap.NewDevelopmentConfig()
		config.DisableStacktrace = true
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// Retryable routes retryablehttp client logging through zap. Per-attempt
// chatter goes to debug.
type Retryable struct {
	L *zap.Logger
}

var _ retryablehttp.LeveledLogger = Retryable{}

func (l Retryable) Error(msg string, kv ...interface{}) { l.L.Sugar().Errorw(msg, kv...) }
func (l Retryable) Info(msg string, kv ...interface{})  { l.L.Sugar().Debugw(msg, kv...) }
func (l Retryable) Debug(msg string, kv ...interface{}) { l.L.Sugar().Debugw(msg, kv...) }
func (l Retryable) Warn(msg string, kv ...interface{})  { l.L.Sugar().Warnw(msg, kv...) }
