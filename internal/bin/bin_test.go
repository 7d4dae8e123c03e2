package bin

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPut(t *testing.T) {
	b := make([]byte, 8)
	Put(b[4:], uint32(0xDEADBEEF))
	assert.Equal(t, uint32(0xDEADBEEF), Get[uint32](b[4:]))
	assert.Equal(t, Bytes(uint32(0xDEADBEEF)), [4]byte(b[4:]))
	assert.Equal(t, int32(-2), Value[int32](Bytes(int32(-2))))
}

func TestReadWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, int32(-7)))
	require.NoError(t, Write(&buf, uint32(7)))

	i, err := Read[int32](&buf)
	require.NoError(t, err)
	assert.Equal(t, int32(-7), i)
	u, err := Read[uint32](&buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), u)

	_, err = Read[uint32](&buf)
	assert.ErrorIs(t, err, io.EOF)
	_, err = Read[uint32](bytes.NewReader([]byte{1, 2}))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestPad(t *testing.T) {
	for n, pad := range []int{0, 3, 2, 1, 0, 3} {
		assert.Equal(t, pad, Pad(n), "Pad(%v)", n)
	}
	assert.Equal(t, uint32(2), Pad(uint32(6)))
}
