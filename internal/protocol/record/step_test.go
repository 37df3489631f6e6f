package record

import (
	"errors"
	"io"
	"testing"

	"github.com/danmuck/taskrunner/internal/protocol"
	"github.com/danmuck/taskrunner/internal/protocol/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func field(data string, stop byte) frame.Field {
	return frame.Field{Data: []byte(data), Stop: stop, Present: true}
}

func eofField(data string) frame.Field {
	return frame.Field{Data: []byte(data), Present: true, EOF: true}
}

func TestStepWalksStates(t *testing.T) {
	p := Progress{}

	p, task, err := Step(p, field("build", frame.Colon))
	require.NoError(t, err)
	require.Nil(t, task)
	assert.Equal(t, protocol.StateDepends, p.State)

	p, task, err = Step(p, field("fetch", frame.Colon))
	require.NoError(t, err)
	require.Nil(t, task)
	assert.Equal(t, protocol.StateDepends, p.State)

	p, task, err = Step(p, field("configure", frame.Newline))
	require.NoError(t, err)
	require.Nil(t, task)
	assert.Equal(t, protocol.StateArgs, p.State)

	p, task, err = Step(p, field("make", frame.NUL))
	require.NoError(t, err)
	require.Nil(t, task)

	p, task, err = Step(p, field("", frame.NUL))
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, protocol.StateName, p.State)
	assert.Equal(t, "build", task.Name)
	assert.Equal(t, []string{"fetch", "configure"}, task.Depends)
	assert.Equal(t, []string{"make"}, task.ArgStrings())
}

func TestStepNameEndOfSession(t *testing.T) {
	_, _, err := Step(Progress{}, frame.Field{})
	assert.ErrorIs(t, err, io.EOF)

	_, _, err = Step(Progress{}, eofField("\x00"))
	assert.ErrorIs(t, err, io.EOF, "trailing NUL padding then eof ends the session")
}

func TestStepRejections(t *testing.T) {
	depends := Progress{State: protocol.StateDepends, Partial: Task{Name: "a", Depends: []string{}}}
	withDep := Progress{State: protocol.StateDepends, Partial: Task{Name: "a", Depends: []string{"b"}}}
	args := Progress{State: protocol.StateArgs, Partial: Task{Name: "a", Args: [][]byte{}}}

	cases := []struct {
		name  string
		p     Progress
		f     frame.Field
		want  error
		state protocol.State
	}{
		{"empty name", Progress{}, field("", frame.Colon), protocol.ErrEmptyName, protocol.StateName},
		{"padding only name", Progress{}, field("\x00\x00", frame.Colon), protocol.ErrEmptyName, protocol.StateName},
		{"name with newline", Progress{}, field("a\nb", frame.Colon), protocol.ErrInvalidName, protocol.StateName},
		{"name cut by eof", Progress{}, eofField("abc"), protocol.ErrUnexpectedEOF, protocol.StateName},
		{"depends absent", depends, frame.Field{}, protocol.ErrUnexpectedEOF, protocol.StateDepends},
		{"depends cut by eof", depends, eofField("b"), protocol.ErrUnexpectedEOF, protocol.StateDepends},
		{"empty dependency between colons", depends, field("", frame.Colon), protocol.ErrEmptyDependency, protocol.StateDepends},
		{"empty trailing dependency", withDep, field("", frame.Newline), protocol.ErrEmptyDependency, protocol.StateDepends},
		{"args absent", args, frame.Field{}, protocol.ErrTruncatedArgs, protocol.StateArgs},
		{"args cut by eof", args, eofField("x"), protocol.ErrTruncatedArgs, protocol.StateArgs},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, task, err := Step(tc.p, tc.f)
			require.Nil(t, task)
			require.ErrorIs(t, err, tc.want)
			var protoErr *protocol.ProtocolError
			require.True(t, errors.As(err, &protoErr))
			assert.Equal(t, tc.state, protoErr.State)
		})
	}
}

func TestFramingPerState(t *testing.T) {
	stops, validate := Framing(protocol.StateName)
	assert.Equal(t, []byte{':'}, stops)
	assert.True(t, validate)

	stops, validate = Framing(protocol.StateDepends)
	assert.Equal(t, []byte{':', '\n'}, stops)
	assert.True(t, validate)

	stops, validate = Framing(protocol.StateArgs)
	assert.Equal(t, []byte{0}, stops)
	assert.False(t, validate)
}
