package utils

import (
	"io"

	"github.com/MrSnakeDoc/linkdex/internal/logger"
)

// MustClose closes c and logs any error under name.
// Use for shutdown paths where a failed close must not abort the rest.
func MustClose(name string, c io.Closer, log logger.Logger) {
	if err := c.Close(); err != nil {
		log.Warn("failed to close", logger.String("resource", name), logger.Error(err))
	}
}
