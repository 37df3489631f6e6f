package protocol

import (
	"errors"
	"io"
	"testing"
)

func TestAtStateStampsTypedErrors(t *testing.T) {
	err := AtState(&EncodingError{Err: ErrInvalidUTF8}, StateDepends)
	var encErr *EncodingError
	if !errors.As(err, &encErr) || encErr.State != StateDepends {
		t.Fatalf("expected EncodingError at depends, got %v", err)
	}
	if !errors.Is(err, ErrInvalidUTF8) {
		t.Fatalf("expected cause to unwrap, got %v", err)
	}
}

func TestAtStateWrapsPlainErrorsAsStream(t *testing.T) {
	err := AtState(io.ErrClosedPipe, StateArgs)
	var streamErr *StreamError
	if !errors.As(err, &streamErr) || streamErr.State != StateArgs {
		t.Fatalf("expected StreamError at args, got %v", err)
	}
	if AtState(nil, StateName) != nil {
		t.Fatalf("nil must stay nil")
	}
}

func TestKind(t *testing.T) {
	cases := map[string]error{
		"protocol": &ProtocolError{Err: ErrEmptyName},
		"encoding": &EncodingError{Err: ErrInvalidUTF8},
		"stream":   &StreamError{Err: io.ErrUnexpectedEOF},
		"unknown":  errors.New("other"),
		"":         nil,
	}
	for want, err := range cases {
		if got := Kind(err); got != want {
			t.Fatalf("Kind(%v) = %q want %q", err, got, want)
		}
	}
}

func TestStateString(t *testing.T) {
	if StateName.String() != "name" || StateDepends.String() != "depends" || StateArgs.String() != "args" {
		t.Fatalf("unexpected state names")
	}
	if State(9).String() != "state(9)" {
		t.Fatalf("unexpected unknown state name: %s", State(9))
	}
}
