package logger

import (
	"go.uber.org/zap"
)

// New builds the process-wide logger. Production config in production,
// human-readable everywhere else.
func New(env string) *zap.Logger {
	var l *zap.Logger
	var err error
	if env == "production" {
		l, err = zap.NewProduction()
	} else {
		l, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	return l
}
