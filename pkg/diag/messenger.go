package diag

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Messenger is the sink of diagnostics.
type Messenger interface {
	// IssueMessage shows a message with the call stack it was issued from.
	// It returns the type the message ended up with after applying the
	// warning options of the messenger, which callers use to decide whether
	// the run failed.
	IssueMessage(t MessageType, text string, bt Backtrace) MessageType
}

// MessengerOptions controls which warnings are shown and which are promoted
// to errors.
type MessengerOptions struct {
	SuppressDev        bool
	DevAsError         bool
	SuppressDeprecated bool
	DeprecatedAsError  bool
}

// StreamMessenger is a Messenger that writes formatted messages to a Writer.
type StreamMessenger struct {
	MessengerOptions
	// Color enables ANSI color sequences in message headers.
	Color bool

	mu  sync.Mutex
	out io.Writer
}

// NewStreamMessenger returns a StreamMessenger writing to w.
func NewStreamMessenger(w io.Writer, opts MessengerOptions) *StreamMessenger {
	return &StreamMessenger{MessengerOptions: opts, out: w}
}

// Convert applies the promotion options to a message type.
func (m *StreamMessenger) Convert(t MessageType) MessageType {
	switch t {
	case AuthorWarning:
		if m.DevAsError {
			return AuthorError
		}
	case DeprecationWarning:
		if m.DeprecatedAsError {
			return DeprecationError
		}
	}
	return t
}

func (m *StreamMessenger) visible(t MessageType) bool {
	switch t {
	case AuthorWarning:
		return !m.SuppressDev
	case DeprecationWarning:
		return !m.SuppressDeprecated
	}
	return true
}

// IssueMessage implements Messenger.
func (m *StreamMessenger) IssueMessage(t MessageType, text string, bt Backtrace) MessageType {
	t = m.Convert(t)
	if !m.visible(t) {
		return t
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	io.WriteString(m.out, FormatMessage(t, text, bt, m.Color))
	return t
}

const (
	errorColor   = "\033[31;1m"
	warningColor = "\033[33;1m"
	resetColor   = "\033[m"
)

// FormatMessage renders a message the way it is shown to the user:
//
//	CMake Error at /src/CMakeLists.txt:3 (message):
//	  text
//	Called from:
//	  /src/CMakeLists.txt:7 (f)
//
// followed by an empty line.
func FormatMessage(t MessageType, text string, bt Backtrace, color bool) string {
	var sb strings.Builder
	header := t.header()
	if color && header != "" {
		if t.IsError() {
			header = errorColor + header + resetColor
		} else {
			header = warningColor + header + resetColor
		}
	}
	sb.WriteString(header)
	frames := bt.Frames()
	if len(frames) > 0 {
		fmt.Fprintf(&sb, " at %s", frames[0])
	}
	sb.WriteString(":\n")
	writeIndented(&sb, text)
	var callers []Frame
	if len(frames) > 1 {
		for _, f := range frames[1:] {
			// Frames of list files being read carry no command.
			if f.Line != 0 || f.Name != "" {
				callers = append(callers, f)
			}
		}
	}
	if len(callers) > 0 {
		sb.WriteString("Called from:\n")
		for _, f := range callers {
			fmt.Fprintf(&sb, "  %s\n", f)
		}
	}
	switch t {
	case AuthorWarning:
		sb.WriteString("This warning is for project developers.  Use --no-warn-dev to suppress it.\n")
	case AuthorError:
		sb.WriteString("This error is for project developers.  Use --no-warn-dev-as-error to continue.\n")
	}
	sb.WriteString("\n")
	return sb.String()
}

func writeIndented(sb *strings.Builder, text string) {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		if line != "" {
			sb.WriteString("  ")
			sb.WriteString(line)
		}
		sb.WriteString("\n")
	}
}
