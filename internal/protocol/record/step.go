package record

import (
	"bytes"
	"io"

	"github.com/danmuck/taskrunner/internal/protocol"
	"github.com/danmuck/taskrunner/internal/protocol/frame"
)

var (
	nameStops    = []byte{frame.Colon}
	dependsStops = []byte{frame.Colon, frame.Newline}
	argStops     = []byte{frame.NUL}
)

// Progress is the decode state plus the task assembled so far.
type Progress struct {
	State   protocol.State
	Partial Task
}

// Framing returns the terminators and text validation used to read the next
// field in state st.
func Framing(st protocol.State) (stops []byte, validateUTF8 bool) {
	switch st {
	case protocol.StateDepends:
		return dependsStops, true
	case protocol.StateArgs:
		return argStops, false
	default:
		return nameStops, true
	}
}

// Step applies one framed field to p. It returns the next progress and, when
// the field closes a record, the finished task. io.EOF is returned when the
// stream ended cleanly where a new record would start.
//
// Leading NUL bytes of a name field are dropped; they are the trailing empty
// argument field of the zero-argument form name:\n\0\0.
func Step(p Progress, f frame.Field) (Progress, *Task, error) {
	switch p.State {
	case protocol.StateName:
		return stepName(f)
	case protocol.StateDepends:
		return stepDepends(p, f)
	case protocol.StateArgs:
		return stepArgs(p, f)
	default:
		return p, nil, &protocol.ProtocolError{State: p.State, Err: protocol.ErrUnexpectedEOF}
	}
}

func stepName(f frame.Field) (Progress, *Task, error) {
	start := Progress{State: protocol.StateName}
	if !f.Present {
		return start, nil, io.EOF
	}
	name := bytes.TrimLeft(f.Data, "\x00")
	if f.EOF {
		if len(name) == 0 {
			return start, nil, io.EOF
		}
		return start, nil, &protocol.ProtocolError{State: protocol.StateName, Err: protocol.ErrUnexpectedEOF}
	}
	if len(name) == 0 {
		return start, nil, &protocol.ProtocolError{State: protocol.StateName, Err: protocol.ErrEmptyName}
	}
	if bytes.IndexByte(name, frame.Newline) >= 0 {
		return start, nil, &protocol.ProtocolError{State: protocol.StateName, Err: protocol.ErrInvalidName}
	}
	return Progress{
		State:   protocol.StateDepends,
		Partial: Task{Name: string(name), Depends: []string{}},
	}, nil, nil
}

func stepDepends(p Progress, f frame.Field) (Progress, *Task, error) {
	if !f.Terminated() {
		return p, nil, &protocol.ProtocolError{State: protocol.StateDepends, Err: protocol.ErrUnexpectedEOF}
	}
	if len(f.Data) == 0 {
		// name:\n is the zero-dependency form.
		if f.Stop == frame.Newline && len(p.Partial.Depends) == 0 {
			return toArgs(p), nil, nil
		}
		return p, nil, &protocol.ProtocolError{State: protocol.StateDepends, Err: protocol.ErrEmptyDependency}
	}
	p.Partial.Depends = append(p.Partial.Depends, string(f.Data))
	if f.Stop == frame.Newline {
		return toArgs(p), nil, nil
	}
	return p, nil, nil
}

func toArgs(p Progress) Progress {
	p.State = protocol.StateArgs
	p.Partial.Args = [][]byte{}
	return p
}

func stepArgs(p Progress, f frame.Field) (Progress, *Task, error) {
	if !f.Terminated() {
		return p, nil, &protocol.ProtocolError{State: protocol.StateArgs, Err: protocol.ErrTruncatedArgs}
	}
	if len(f.Data) == 0 {
		task := p.Partial
		return Progress{State: protocol.StateName}, &task, nil
	}
	p.Partial.Args = append(p.Partial.Args, append([]byte(nil), f.Data...))
	return p, nil, nil
}
