package diag

import (
	"strconv"

	"src.cmk.sh/pkg/persistent/list"
)

// LineDeferred is the line number of frames pushed for the execution of
// deferred calls. Such frames are shown as "file:DEFERRED".
const LineDeferred = -1

// Frame is one level of a Backtrace: a command being executed at some line
// of some list file.
type Frame struct {
	File string
	Line int
	// Name is the command name as written in the source. It is empty for
	// frames that do not correspond to a command, like the frame of a list
	// file being read.
	Name string
	// DeferID is non-empty when the command is a deferred call.
	DeferID string
}

// Location returns the "file:line" part of the frame.
func (f Frame) Location() string {
	switch {
	case f.Line == LineDeferred:
		return f.File + ":DEFERRED"
	case f.Line > 0:
		return f.File + ":" + strconv.Itoa(f.Line)
	default:
		return f.File
	}
}

// String returns the frame in the form "file:line (name)".
func (f Frame) String() string {
	if f.Name == "" {
		return f.Location()
	}
	return f.Location() + " (" + f.Name + ")"
}

// Backtrace is an immutable call stack. Pushing and popping return new
// values, leaving the receiver untouched, so backtraces captured at
// different points share their common frames. The zero value is an empty
// backtrace.
type Backtrace struct {
	frames list.List[Frame]
}

// NewBacktrace returns a backtrace with one frame for the given file, with
// no line information.
func NewBacktrace(file string) Backtrace {
	return Backtrace{}.Push(Frame{File: file})
}

// Push returns a new backtrace with f on top.
func (b Backtrace) Push(f Frame) Backtrace {
	if b.frames == nil {
		b.frames = list.New[Frame]()
	}
	return Backtrace{b.frames.Cons(f)}
}

// Pop returns the backtrace below the top frame.
func (b Backtrace) Pop() Backtrace {
	if b.Empty() {
		return b
	}
	return Backtrace{b.frames.Rest()}
}

// Top returns the top frame. It returns the zero Frame if the backtrace is
// empty.
func (b Backtrace) Top() Frame {
	if b.Empty() {
		return Frame{}
	}
	return b.frames.First()
}

// Empty returns whether the backtrace has no frames.
func (b Backtrace) Empty() bool {
	return b.frames == nil || b.frames.Empty()
}

// Depth returns the number of frames.
func (b Backtrace) Depth() int {
	if b.frames == nil {
		return 0
	}
	return b.frames.Len()
}

// Frames returns the frames from the top (most recent call) down.
func (b Backtrace) Frames() []Frame {
	if b.frames == nil {
		return nil
	}
	return list.Slice(b.frames)
}
