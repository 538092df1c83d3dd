package logging

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu     sync.Mutex
	logger = zap.NewNop().Sugar()
)

// Init builds the process-wide logger. JSON output in production mode,
// console output otherwise.
func Init(production bool) error {
	var (
		l   *zap.Logger
		err error
	)
	if production {
		l, err = zap.NewProduction()
	} else {
		l, err = zap.NewDevelopment()
	}
	if err != nil {
		return err
	}
	mu.Lock()
	logger = l.Sugar()
	mu.Unlock()
	return nil
}

// L returns the process-wide sugared logger.
func L() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// Sync flushes buffered log entries; call on shutdown.
func Sync() { _ = L().Sync() }
