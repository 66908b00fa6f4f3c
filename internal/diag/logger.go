package diag

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

// NewLogger builds the process logger. An unparsable level keeps Warn and is
// reported on the returned logger; an unopenable file keeps stderr.
func NewLogger(level, file string, stderr io.Writer) (*log.Logger, func()) {
	logger := log.New()
	logger.SetLevel(log.WarnLevel)
	logger.SetFormatter(&log.TextFormatter{DisableColors: true, FullTimestamp: true})
	if stderr != nil {
		logger.Out = stderr
	}

	if level != "" {
		lvl, err := log.ParseLevel(level)
		if err != nil {
			logger.Warnf("failed to parse log level, default will be used: %s", err)
		} else {
			logger.SetLevel(lvl)
		}
	}

	closer := func() {}
	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logger.Warnf("failed to log to file, using stderr: %s", err)
		} else {
			logger.Out = f
			logger.SetFormatter(&log.JSONFormatter{})
			closer = func() { _ = f.Close() }
		}
	}
	return logger, closer
}
