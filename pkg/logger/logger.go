package logger

import (
	"fmt"

	"go.uber.org/zap"
)

// New builds the process-wide zap logger. Production JSON output by default;
// "debug" switches to the development config for local runs.
func New(level string) (*zap.Logger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if level == "debug" {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return l, nil
}
