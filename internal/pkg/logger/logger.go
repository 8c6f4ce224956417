// Package logger configures fiber's process-wide logger.
package logger

import (
	"io"
	"os"

	"github.com/gofiber/fiber/v2/log"
)

// Level returns the log level for env: debug in dev, info everywhere else.
func Level(env string) log.Level {
	if env == "dev" {
		return log.LevelDebug
	}
	return log.LevelInfo
}

// Setup points the default fiber logger at out (stdout when nil) and sets
// its level for env.
func Setup(env string, out io.Writer) {
	if out == nil {
		out = os.Stdout
	}
	log.SetOutput(out)
	log.SetLevel(Level(env))
}
