package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyName       = errors.New("protocol: empty task name")
	ErrInvalidName     = errors.New("protocol: task name contains newline")
	ErrEmptyDependency = errors.New("protocol: invalid empty dependency")
	ErrUnexpectedEOF   = errors.New("protocol: unexpected end of stream")
	ErrTruncatedArgs   = errors.New("protocol: unexpected end of stream while reading arguments")
	ErrFieldTooLarge   = errors.New("protocol: field too large")
	ErrInvalidUTF8     = errors.New("protocol: invalid utf-8")
)

// State is the decode position within one task record.
type State uint8

const (
	StateName State = iota
	StateDepends
	StateArgs
)

func (s State) String() string {
	switch s {
	case StateName:
		return "name"
	case StateDepends:
		return "depends"
	case StateArgs:
		return "args"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// StreamError is an I/O failure on the connection.
type StreamError struct {
	State State
	Err   error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream error in %s: %v", e.State, e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

// EncodingError reports bytes that had to be UTF-8 text but were not.
type EncodingError struct {
	State State
	Err   error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding error in %s: %v", e.State, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// ProtocolError reports well-formed bytes that violate the record grammar.
type ProtocolError struct {
	State State
	Err   error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error in %s: %v", e.State, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// AtState stamps the decode state onto err when it is one of the protocol
// error kinds. Other errors are wrapped as a StreamError.
func AtState(err error, st State) error {
	if err == nil {
		return nil
	}
	var streamErr *StreamError
	var encErr *EncodingError
	var protoErr *ProtocolError
	switch {
	case errors.As(err, &streamErr):
		streamErr.State = st
		return streamErr
	case errors.As(err, &encErr):
		encErr.State = st
		return encErr
	case errors.As(err, &protoErr):
		protoErr.State = st
		return protoErr
	default:
		return &StreamError{State: st, Err: err}
	}
}

// Kind names the error kind for logs and metrics.
func Kind(err error) string {
	var streamErr *StreamError
	var encErr *EncodingError
	var protoErr *ProtocolError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &protoErr):
		return "protocol"
	case errors.As(err, &encErr):
		return "encoding"
	case errors.As(err, &streamErr):
		return "stream"
	default:
		return "unknown"
	}
}
