// Package logx is a small level-gated logger. Time/date are left to the
// process supervisor (systemd, container runtime) to attach; output uses
// systemd-style syslog priority prefixes so levels are filterable without
// parsing text.
package logx

import (
	"fmt"
	"io"
	"log"
	"os"
)

var (
	DebugWriter io.Writer = os.Stderr
	InfoWriter  io.Writer = os.Stderr
	WarnWriter  io.Writer = os.Stderr
	ErrWriter   io.Writer = os.Stderr
)

const (
	debugPrefix = "<7>[DEBUG]   "
	infoPrefix  = "<6>[INFO]    "
	warnPrefix  = "<4>[WARNING] "
	errPrefix   = "<3>[ERROR]   "
)

var (
	debugLog = log.New(DebugWriter, debugPrefix, 0)
	infoLog  = log.New(InfoWriter, infoPrefix, 0)
	warnLog  = log.New(WarnWriter, warnPrefix, log.Lshortfile)
	errLog   = log.New(ErrWriter, errPrefix, log.Llongfile)
)

// SetLevel gates writers below lvl to io.Discard. Recognized levels, from
// noisiest to quietest: debug, info, warn, error. An unrecognized value
// falls back to debug.
func SetLevel(lvl string) {
	switch lvl {
	case "error":
		WarnWriter = io.Discard
		fallthrough
	case "warn":
		InfoWriter = io.Discard
		fallthrough
	case "info":
		DebugWriter = io.Discard
	case "debug", "":
	default:
		fmt.Fprintf(os.Stderr, "logx: unknown LOG_LEVEL %q, defaulting to debug\n", lvl)
	}

	debugLog = log.New(DebugWriter, debugPrefix, 0)
	infoLog = log.New(InfoWriter, infoPrefix, 0)
	warnLog = log.New(WarnWriter, warnPrefix, log.Lshortfile)
	errLog = log.New(ErrWriter, errPrefix, log.Llongfile)
}

func Debug(v ...any) {
	if DebugWriter != io.Discard {
		debugLog.Output(2, fmt.Sprint(v...))
	}
}

func Debugf(format string, v ...any) {
	if DebugWriter != io.Discard {
		debugLog.Output(2, fmt.Sprintf(format, v...))
	}
}

func Info(v ...any) {
	if InfoWriter != io.Discard {
		infoLog.Output(2, fmt.Sprint(v...))
	}
}

func Infof(format string, v ...any) {
	if InfoWriter != io.Discard {
		infoLog.Output(2, fmt.Sprintf(format, v...))
	}
}

func Warn(v ...any) {
	if WarnWriter != io.Discard {
		warnLog.Output(2, fmt.Sprint(v...))
	}
}

func Warnf(format string, v ...any) {
	if WarnWriter != io.Discard {
		warnLog.Output(2, fmt.Sprintf(format, v...))
	}
}

func Error(v ...any) {
	if ErrWriter != io.Discard {
		errLog.Output(2, fmt.Sprint(v...))
	}
}

func Errorf(format string, v ...any) {
	if ErrWriter != io.Discard {
		errLog.Output(2, fmt.Sprintf(format, v...))
	}
}

// Fatal logs at error level and terminates the process. Reserved for boot
// failures (missing config, unapplied migrations).
func Fatal(v ...any) {
	Error(v...)
	os.Exit(1)
}

func Fatalf(format string, v ...any) {
	Errorf(format, v...)
	os.Exit(1)
}
