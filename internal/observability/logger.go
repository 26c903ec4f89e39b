package observability

import "github.com/churnlab/churnprep/internal/logger"

// GetLogger returns the module logger of the metrics layer.
func GetLogger() logger.Logger {
	return logger.Global().Module("metrics")
}
