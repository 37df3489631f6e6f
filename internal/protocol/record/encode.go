package record

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

var ErrUnencodable = errors.New("record: task cannot be encoded")

// Validate reports whether t can be written in the record grammar.
func Validate(t Task) error {
	if t.Name == "" {
		return fmt.Errorf("%w: empty name", ErrUnencodable)
	}
	if err := validateText("name", t.Name); err != nil {
		return err
	}
	if strings.HasPrefix(t.Name, "\x00") {
		return fmt.Errorf("%w: name starts with NUL", ErrUnencodable)
	}
	for i, dep := range t.Depends {
		if dep == "" {
			return fmt.Errorf("%w: empty dependency at %d", ErrUnencodable, i)
		}
		if err := validateText(fmt.Sprintf("dependency %d", i), dep); err != nil {
			return err
		}
	}
	for i, arg := range t.Args {
		if len(arg) == 0 {
			return fmt.Errorf("%w: empty argument at %d", ErrUnencodable, i)
		}
		if bytes.IndexByte(arg, 0) >= 0 {
			return fmt.Errorf("%w: argument %d contains NUL", ErrUnencodable, i)
		}
	}
	return nil
}

func validateText(what, s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: %s is not utf-8", ErrUnencodable, what)
	}
	if strings.ContainsAny(s, ":\n") {
		return fmt.Errorf("%w: %s contains ':' or newline", ErrUnencodable, what)
	}
	return nil
}

// Marshal returns the wire form of t:
//
//	name:dep1:...:depN\narg1\0...\0argM\0\0
//
// A task without dependencies encodes as name:\n and one without arguments
// ends in \0\0.
func Marshal(t Task) ([]byte, error) {
	if err := Validate(t); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString(t.Name)
	buf.WriteByte(':')
	buf.WriteString(strings.Join(t.Depends, ":"))
	buf.WriteByte('\n')
	for i, arg := range t.Args {
		if i > 0 {
			buf.WriteByte(0)
		}
		buf.Write(arg)
	}
	buf.Write([]byte{0, 0})
	return buf.Bytes(), nil
}

// Encode writes the wire form of t to w.
func Encode(w io.Writer, t Task) error {
	payload, err := Marshal(t)
	if err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}
