package logger

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrAppNameIsEmpty is returned if log.appname was not set.
	ErrAppNameIsEmpty = errors.New("toml config log.appname can not be empty")

	// ErrServiceNameIsEmpty is returned if log.servicename was not set.
	ErrServiceNameIsEmpty = errors.New("toml config log.servicename can not be empty")

	// ErrLogFilePathIsEmpty is returned if file logging is enabled without log.file.path.
	ErrLogFilePathIsEmpty = errors.New("toml config log.file.path can not be empty when file logging is enabled")
)

// ErrorHandler reports events zerolog failed to write. It must not log itself.
func ErrorHandler(err error) {
	_, _ = fmt.Fprintf(os.Stderr, "oidcfiber: dropped log event: %v\n", err)
}
