package frame

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"unicode/utf8"

	"github.com/danmuck/taskrunner/internal/protocol"
)

const (
	Colon   byte = ':'
	Newline byte = '\n'
	NUL     byte = 0
)

var ErrNoStops = errors.New("frame: no terminator bytes")

// Field is one delimiter-terminated run of bytes.
//
// Present is false only when the stream ended cleanly before any byte was
// read. EOF is true when bytes were read but the stream ended before a
// terminator; Stop is zero in that case.
type Field struct {
	Data    []byte
	Stop    byte
	Present bool
	EOF     bool
}

// Terminated reports whether the field ended on one of the stop bytes.
func (f Field) Terminated() bool {
	return f.Present && !f.EOF
}

// Limits constrains field decode memory use.
type Limits struct {
	MaxFieldBytes int
}

func DefaultLimits() Limits {
	return Limits{
		MaxFieldBytes: 1 << 20,
	}
}

// Reader reads delimiter-terminated fields from a byte stream.
type Reader struct {
	br     *bufio.Reader
	limits Limits
}

func NewReader(r io.Reader, limits Limits) *Reader {
	if limits.MaxFieldBytes <= 0 {
		limits = DefaultLimits()
	}
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Reader{br: br, limits: limits}
}

// ReadField reads up to and including the first byte found in stops. The
// terminator is consumed but not returned in Data.
func (r *Reader) ReadField(stops []byte, validateUTF8 bool) (Field, error) {
	if len(stops) == 0 {
		return Field{}, ErrNoStops
	}
	buf := make([]byte, 0, 64)
	for {
		c, err := r.br.ReadByte()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return Field{}, &protocol.StreamError{Err: err}
			}
			if len(buf) == 0 {
				return Field{}, nil
			}
			return finish(Field{Data: buf, Present: true, EOF: true}, validateUTF8)
		}
		if bytes.IndexByte(stops, c) >= 0 {
			return finish(Field{Data: buf, Stop: c, Present: true}, validateUTF8)
		}
		if len(buf) >= r.limits.MaxFieldBytes {
			return Field{}, &protocol.ProtocolError{Err: protocol.ErrFieldTooLarge}
		}
		buf = append(buf, c)
	}
}

func finish(f Field, validateUTF8 bool) (Field, error) {
	if validateUTF8 && !utf8.Valid(f.Data) {
		return Field{}, &protocol.EncodingError{Err: protocol.ErrInvalidUTF8}
	}
	return f, nil
}
