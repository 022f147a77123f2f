// Package logging builds the shared go-kit logger used by every command
// and internal package in cntrl.
package logging

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// The valid values for the --log-level flag.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// ValidLevels lists the recognized log levels, in the order they should
// appear in flag help text.
var ValidLevels = []string{LevelDebug, LevelInfo, LevelWarn, LevelError}

// New constructs a leveled, timestamped go-kit logger writing to os.Stderr.
func New(levelName string) (log.Logger, error) {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.Caller(5))

	var opt level.Option
	switch strings.ToLower(levelName) {
	case LevelDebug:
		opt = level.AllowDebug()
	case LevelInfo, "":
		opt = level.AllowInfo()
	case LevelWarn:
		opt = level.AllowWarn()
	case LevelError:
		opt = level.AllowError()
	default:
		return nil, fmt.Errorf("unrecognized log level %q (want one of %s)", levelName, strings.Join(ValidLevels, ", "))
	}
	return level.NewFilter(logger, opt), nil
}
