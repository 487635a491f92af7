package utils

import (
	"io"

	"github.com/MrSnakeDoc/clipflow/internal/logger"
)

// CloseLogged closes c and logs a failure as a warning. what names the
// resource in the log line.
func CloseLogged(c io.Closer, what string, log logger.Logger) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		log.Warn("failed to close "+what, logger.Error(err))
		return
	}
	log.Debug(what + " closed")
}
