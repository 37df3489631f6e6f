package record

import (
	"errors"
	"io"

	"github.com/danmuck/taskrunner/internal/protocol"
	"github.com/danmuck/taskrunner/internal/protocol/frame"
)

// Decoder assembles tasks from a byte stream, one record per Next call.
// A Decoder is not safe for concurrent use.
type Decoder struct {
	fr       *frame.Reader
	progress Progress
	err      error
}

func NewDecoder(r io.Reader, limits frame.Limits) *Decoder {
	return &Decoder{fr: frame.NewReader(r, limits)}
}

// State returns the current decode state. After an error it is the state the
// record failed in.
func (d *Decoder) State() protocol.State {
	return d.progress.State
}

// Next returns the next complete task. It returns io.EOF when the stream ends
// cleanly on a record boundary. Any other error is terminal and is returned
// again by later calls; the partial record is discarded.
func (d *Decoder) Next() (Task, error) {
	if d.err != nil {
		return Task{}, d.err
	}
	for {
		stops, validate := Framing(d.progress.State)
		f, err := d.fr.ReadField(stops, validate)
		if err != nil {
			d.err = protocol.AtState(err, d.progress.State)
			return Task{}, d.err
		}
		next, task, err := Step(d.progress, f)
		if err != nil {
			d.err = err
			return Task{}, err
		}
		d.progress = next
		if task != nil {
			return *task, nil
		}
	}
}

// DecodeAll reads every record in r until a clean end of stream.
func DecodeAll(r io.Reader, limits frame.Limits) ([]Task, error) {
	dec := NewDecoder(r, limits)
	var out []Task
	for {
		task, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, task)
	}
}
