package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var globalLogger *zap.SugaredLogger

// Init builds the process logger. Output is always JSON; production
// additionally raises the level to info.
func Init(appEnv string) error {
	var config zap.Config

	if appEnv == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
	}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.Encoding = "json"

	logger, err := config.Build()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	globalLogger = logger.Sugar()
	return nil
}

// L returns the process logger, falling back to a no-op logger when Init
// was never called (tests).
func L() *zap.SugaredLogger {
	if globalLogger == nil {
		return zap.NewNop().Sugar()
	}
	return globalLogger
}

// Sync flushes buffered entries.
func Sync() error {
	if globalLogger != nil {
		return globalLogger.Sync()
	}
	return nil
}

// WithRequest scopes the logger to one HTTP request.
func WithRequest(requestID, userID, endpoint string) *zap.SugaredLogger {
	return L().With(
		"req_id", requestID,
		"user_id", userID,
		"endpoint", endpoint,
	)
}
