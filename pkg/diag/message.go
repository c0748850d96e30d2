package diag

// MessageType classifies a diagnostic issued by the interpreter.
type MessageType int

// Message types, in the same order as the modes of message().
const (
	AuthorWarning MessageType = iota
	AuthorError
	FatalError
	InternalError
	Message
	Warning
	Log
	DeprecationError
	DeprecationWarning
)

// IsError returns whether a message of this type makes a run fail.
func (t MessageType) IsError() bool {
	switch t {
	case AuthorError, FatalError, InternalError, DeprecationError:
		return true
	}
	return false
}

func (t MessageType) header() string {
	switch t {
	case AuthorWarning:
		return "CMake Warning (dev)"
	case AuthorError:
		return "CMake Error (dev)"
	case FatalError:
		return "CMake Error"
	case InternalError:
		return "CMake Internal Error (please report a bug)"
	case Warning:
		return "CMake Warning"
	case Log:
		return "CMake Debug Log"
	case DeprecationError:
		return "CMake Deprecation Error"
	case DeprecationWarning:
		return "CMake Deprecation Warning"
	default:
		return ""
	}
}

func (t MessageType) String() string {
	if t == Message {
		return "Message"
	}
	return t.header()
}
