package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalShapes(t *testing.T) {
	out, err := Marshal(Task{Name: "name"})
	require.NoError(t, err)
	assert.Equal(t, "name:\n\x00\x00", string(out))

	out, err = Marshal(Task{Name: "a", Depends: []string{"b", "c"}, Args: [][]byte{[]byte("x"), []byte("y")}})
	require.NoError(t, err)
	assert.Equal(t, "a:b:c\nx\x00y\x00\x00", string(out))
}

func TestMarshalRejectsUnrepresentable(t *testing.T) {
	cases := []Task{
		{},
		{Name: "a:b"},
		{Name: "a\nb"},
		{Name: "\x00a"},
		{Name: "bad\xff"},
		{Name: "a", Depends: []string{""}},
		{Name: "a", Depends: []string{"b:c"}},
		{Name: "a", Args: [][]byte{{}}},
		{Name: "a", Args: [][]byte{[]byte("x\x00y")}},
	}
	for _, task := range cases {
		_, err := Marshal(task)
		assert.ErrorIs(t, err, ErrUnencodable, "task %+v", task)
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := Task{Name: "a", Depends: []string{"b"}, Args: [][]byte{[]byte("x")}}
	cp := orig.Clone()
	cp.Depends[0] = "z"
	cp.Args[0][0] = 'q'
	assert.Equal(t, "b", orig.Depends[0])
	assert.Equal(t, "x", string(orig.Args[0]))
}
