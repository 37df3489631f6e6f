package record

import (
	"bytes"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/taskrunner/internal/protocol"
	"github.com/danmuck/taskrunner/internal/protocol/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeOne(t *testing.T, raw string) (Task, error) {
	t.Helper()
	return NewDecoder(strings.NewReader(raw), frame.DefaultLimits()).Next()
}

func TestDecodeNoDependsNoArgs(t *testing.T) {
	task, err := decodeOne(t, "name:\n\x00\x00")
	require.NoError(t, err)
	assert.Equal(t, "name", task.Name)
	assert.Empty(t, task.Depends)
	assert.Empty(t, task.Args)
}

func TestDecodeDependsAndArgs(t *testing.T) {
	task, err := decodeOne(t, "a:b:c\nx\x00y\x00\x00")
	require.NoError(t, err)
	assert.Equal(t, "a", task.Name)
	assert.Equal(t, []string{"b", "c"}, task.Depends)
	assert.Equal(t, []string{"x", "y"}, task.ArgStrings())
}

func TestDecodeEmptyNameFails(t *testing.T) {
	_, err := decodeOne(t, ":b\n\x00\x00")
	var protoErr *protocol.ProtocolError
	require.True(t, errors.As(err, &protoErr), "got %v", err)
	assert.ErrorIs(t, err, protocol.ErrEmptyName)
}

func TestDecodeMissingNewlineBeforeEOF(t *testing.T) {
	_, err := decodeOne(t, "a:b:c")
	assert.ErrorIs(t, err, protocol.ErrUnexpectedEOF)
}

func TestDecodeInvalidUTF8Dependency(t *testing.T) {
	_, err := decodeOne(t, "a:\xff\n\x00\x00")
	var encErr *protocol.EncodingError
	require.True(t, errors.As(err, &encErr), "got %v", err)
	assert.Equal(t, protocol.StateDepends, encErr.State)
}

func TestDecodeBinaryArgs(t *testing.T) {
	raw := append([]byte("a:\n"), 0xff, 0xfe, 0, 0)
	task, err := NewDecoder(bytes.NewReader(raw), frame.DefaultLimits()).Next()
	require.NoError(t, err)
	require.Len(t, task.Args, 1)
	assert.Equal(t, []byte{0xff, 0xfe}, task.Args[0])
}

func TestDecodeCleanEOFBetweenRecords(t *testing.T) {
	dec := NewDecoder(strings.NewReader("a:\n\x00\x00b:a\n--x\x00\x00"), frame.DefaultLimits())

	first, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, "a", first.Name)

	second, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, "b", second.Name)
	assert.Equal(t, []string{"a"}, second.Depends)
	assert.Equal(t, []string{"--x"}, second.ArgStrings())

	_, err = dec.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecodeSingleNULArgTerminator(t *testing.T) {
	tasks, err := DecodeAll(strings.NewReader("a:\n\x00b:\n\x00"), frame.DefaultLimits())
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "a", tasks[0].Name)
	assert.Equal(t, "b", tasks[1].Name)
}

func TestDecodeErrorIsSticky(t *testing.T) {
	dec := NewDecoder(strings.NewReader(":x\n\x00\x00good:\n\x00\x00"), frame.DefaultLimits())
	_, first := dec.Next()
	require.Error(t, first)
	_, second := dec.Next()
	assert.Equal(t, first, second)
	assert.Equal(t, protocol.StateName, dec.State())
}

func TestDecodeTruncatedArgsWaitsForEOF(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()

	done := make(chan error, 1)
	go func() {
		_, err := NewDecoder(server, frame.DefaultLimits()).Next()
		done <- err
	}()

	_, err := client.Write([]byte("a:b\nx\x00"))
	require.NoError(t, err)

	select {
	case err := <-done:
		t.Fatalf("decode returned before eof: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, client.Close())
	select {
	case err := <-done:
		assert.ErrorIs(t, err, protocol.ErrTruncatedArgs)
	case <-time.After(2 * time.Second):
		t.Fatalf("decode did not fail after eof")
	}
}

func TestDecodeReencodeRoundTrip(t *testing.T) {
	records := []string{
		"name:\n\x00\x00",
		"a:b:c\nx\x00y\x00\x00",
		"compile:fetch\n--jobs=4\x00\x00",
		"ünïcode:dep-ß\n\x01\x02\x00\x00",
		"solo:\nonly\x00\x00",
	}
	for _, raw := range records {
		task, err := decodeOne(t, raw)
		require.NoError(t, err, "record %q", raw)
		out, err := Marshal(task)
		require.NoError(t, err)
		assert.Equal(t, raw, string(out))
	}

	stream := strings.Join(records, "")
	tasks, err := DecodeAll(strings.NewReader(stream), frame.DefaultLimits())
	require.NoError(t, err)
	var buf bytes.Buffer
	for _, task := range tasks {
		require.NoError(t, Encode(&buf, task))
	}
	assert.Equal(t, stream, buf.String())
}
