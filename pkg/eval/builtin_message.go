package eval

import (
	"errors"
	"io"
	"strings"

	"src.cmk.sh/pkg/diag"
)

// LogLevel is the verbosity of message().
type LogLevel int

// Log levels, from the least verbose.
const (
	LogUndefined LogLevel = iota
	LogError
	LogWarning
	LogNotice
	LogStatus
	LogVerbose
	LogDebug
	LogTrace
)

var logLevelNames = [...]string{
	LogUndefined: "", LogError: "error", LogWarning: "warning", LogNotice: "notice",
	LogStatus: "status", LogVerbose: "verbose", LogDebug: "debug", LogTrace: "trace",
}

func (l LogLevel) String() string { return logLevelNames[l] }

// ParseLogLevel parses a log level name, ignoring case. It returns
// LogUndefined and false for unknown names.
func ParseLogLevel(s string) (LogLevel, bool) {
	s = strings.ToLower(s)
	for i, name := range logLevelNames {
		if name != "" && name == s {
			return LogLevel(i), true
		}
	}
	return LogUndefined, false
}

func init() {
	addBuiltin("message", Func(messageCommand))
}

// The log level in effect: the one configured for the run, else the one in
// CMAKE_MESSAGE_LOG_LEVEL, else STATUS.
func (d *Directory) logLevel() LogLevel {
	if l := d.ev.cfg.LogLevel; l != LogUndefined {
		return l
	}
	if l, ok := ParseLogLevel(d.GetSafeDefinition("CMAKE_MESSAGE_LOG_LEVEL")); ok {
		return l
	}
	return LogStatus
}

type checkKind int

const (
	noCheck checkKind = iota
	checkStart
	checkPass
	checkFail
)

func messageCommand(st *Status, args []string) error {
	if len(args) == 0 {
		return errors.New("called with incorrect number of arguments")
	}
	d := st.Dir()
	typ := diag.Message
	level := LogNotice
	fatal := false
	check := noCheck
	consumed := true

	switch args[0] {
	case "SEND_ERROR":
		typ, level = diag.FatalError, LogError
	case "FATAL_ERROR":
		typ, level, fatal = diag.FatalError, LogError, true
	case "WARNING":
		typ, level = diag.Warning, LogWarning
	case "AUTHOR_WARNING":
		switch {
		case d.IsSet("CMAKE_SUPPRESS_DEVELOPER_ERRORS") && !d.IsOn("CMAKE_SUPPRESS_DEVELOPER_ERRORS"):
			typ, level, fatal = diag.AuthorError, LogError, true
		case !d.IsOn("CMAKE_SUPPRESS_DEVELOPER_WARNINGS"):
			typ, level = diag.AuthorWarning, LogWarning
		default:
			return nil
		}
	case "DEPRECATION":
		switch {
		case d.IsOn("CMAKE_ERROR_DEPRECATED"):
			typ, level, fatal = diag.DeprecationError, LogError, true
		case !d.IsSet("CMAKE_WARN_DEPRECATED") || d.IsOn("CMAKE_WARN_DEPRECATED"):
			typ, level = diag.DeprecationWarning, LogWarning
		default:
			return nil
		}
	case "CHECK_START":
		level, check = LogStatus, checkStart
	case "CHECK_PASS":
		level, check = LogStatus, checkPass
	case "CHECK_FAIL":
		level, check = LogStatus, checkFail
	case "STATUS":
		level = LogStatus
	case "VERBOSE":
		level = LogVerbose
	case "DEBUG":
		level = LogDebug
	case "TRACE":
		level = LogTrace
	case "NOTICE":
	default:
		consumed = false
	}
	if consumed {
		args = args[1:]
	}

	if d.logLevel() < level {
		return nil
	}
	msg := strings.Join(args, "")

	switch level {
	case LogError, LogWarning:
		d.issueMessageAt(typ, msg, d.backtrace)
		if fatal {
			d.ev.setFatal()
		}
	case LogNotice:
		io.WriteString(d.ev.stderr, d.indentText(msg)+"\n")
	case LogStatus:
		switch check {
		case checkStart:
			d.displayStatus(msg)
			d.ev.checks = append(d.ev.checks, msg)
		case checkPass:
			d.reportCheckResult("CHECK_PASS", msg)
		case checkFail:
			d.reportCheckResult("CHECK_FAIL", msg)
		default:
			d.displayStatus(msg)
		}
	default:
		d.displayStatus(msg)
	}
	return nil
}

// Writes a status line to the standard output.
func (d *Directory) displayStatus(msg string) {
	io.WriteString(d.ev.stdout, "-- "+d.indentText(msg)+"\n")
}

func (d *Directory) reportCheckResult(what, msg string) {
	checks := d.ev.checks
	if len(checks) == 0 {
		d.issueMessageAt(diag.AuthorWarning, "Ignored "+what+" without CHECK_START", d.backtrace)
		return
	}
	start := checks[len(checks)-1]
	d.ev.checks = checks[:len(checks)-1]
	d.displayStatus(start + " - " + msg)
}
