package util

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// DefaultErrorExitCode defines the default exit code.
const DefaultErrorExitCode = 1

var fatalErrHandler = fatal

// BehaviorOnFatal allows you to override the default behavior when a fatal
// error occurs, which is to call os.Exit(code). Tests use it to catch errors.
func BehaviorOnFatal(f func(string, int)) {
	fatalErrHandler = f
}

// DefaultBehaviorOnFatal restores the os.Exit behavior.
func DefaultBehaviorOnFatal() {
	fatalErrHandler = fatal
}

func fatal(msg string, code int) {
	if len(msg) > 0 {
		if !strings.HasSuffix(msg, "\n") {
			msg += "\n"
		}
		fmt.Fprint(os.Stderr, msg)
	}
	os.Exit(code)
}

// CheckErr prints a user friendly error to STDERR and exits with a non-zero
// exit code. Unrecognized errors will be printed with an "error: " prefix.
func CheckErr(err error) {
	if err == nil {
		return
	}
	var usage *UsageError
	if errors.As(err, &usage) {
		fatalErrHandler(fmt.Sprintf("%s %s\nSee '%s -h' for help and examples.",
			color.RedString("error:"), usage.Msg, usage.Cmd), DefaultErrorExitCode)
		return
	}
	fatalErrHandler(fmt.Sprintf("%s %v", color.RedString("error:"), err), DefaultErrorExitCode)
}

// UsageError is a command line misuse.
type UsageError struct {
	Cmd string
	Msg string
}

func (e *UsageError) Error() string { return e.Msg }

// UsageErrorf returns a UsageError for cmd.
func UsageErrorf(cmd, format string, args ...interface{}) error {
	return &UsageError{Cmd: cmd, Msg: fmt.Sprintf(format, args...)}
}

// Status colours a plugin state or check result for terminals.
func Status(s string) string {
	switch s {
	case "started", "enabled", "ok", "pass":
		return color.GreenString(s)
	case "error", "fail":
		return color.RedString(s)
	case "warn", "stopped", "disabled":
		return color.YellowString(s)
	}
	return s
}
