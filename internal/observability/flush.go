package observability

import (
	"fmt"

	"go.uber.org/zap"
)

// Flush syncs buffered log output before exit. Prometheus is pull-based, so
// there is nothing else to push.
func Flush(logger *zap.Logger) error {
	if logger == nil {
		return nil
	}
	if err := logger.Sync(); err != nil {
		return fmt.Errorf("flush logs: %w", err)
	}
	return nil
}
