package env

import (
	zap "go.uber.org/zap"
)

// MakeLogger builds the process logger. The quiet default keeps log
// noise off the interactive terminal, debug switches to a human
// readable console encoding for protocol troubleshooting.
func MakeLogger(debug bool) (*zap.Logger, error) {
	if debug {
		logConfig := zap.NewDevelopmentConfig()
		logConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		return logConfig.Build()
	}

	logConfig := zap.NewProductionConfig()
	logConfig.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	logConfig.Encoding = "json"

	return logConfig.Build()
}
