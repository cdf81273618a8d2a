package i2ctx

import (
	"bytes"
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConcat(t *testing.T) {
	seq := Concat(Bytes(0x01), nil, Uint16BE(0x0203), Bytes())
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, slices.Collect(seq))
	assert.Empty(t, slices.Collect(Concat()))
}

func TestConcat_StopsEarly(t *testing.T) {
	pulled := 0
	counting := func(yield func(byte) bool) {
		for i := range 10 {
			pulled++
			if !yield(byte(i)) {
				return
			}
		}
	}
	for b := range Concat(counting, Bytes(0xff)) {
		if b == 2 {
			break
		}
	}
	assert.Equal(t, 3, pulled)
}

func TestBytes_NoCopy(t *testing.T) {
	backing := []byte{1, 2, 3}
	seq := Bytes(backing...)
	backing[1] = 9
	assert.Equal(t, []byte{1, 9, 3}, slices.Collect(seq))
}

func TestFromReader(t *testing.T) {
	seq, errf := FromReader(bytes.NewReader([]byte("abc")))
	assert.Equal(t, []byte("abc"), slices.Collect(seq))
	assert.NoError(t, errf())
}

type failingReader struct {
	n int
}

var errRead = errors.New("read failed")

func (r *failingReader) ReadByte() (byte, error) {
	if r.n == 0 {
		return 0, errRead
	}
	r.n--
	return 0x42, nil
}

func TestFromReader_Error(t *testing.T) {
	seq, errf := FromReader(&failingReader{n: 2})
	assert.Equal(t, []byte{0x42, 0x42}, slices.Collect(seq))
	assert.ErrorIs(t, errf(), errRead)
}

func TestReadEqual(t *testing.T) {
	a := make([]byte, 4)
	assert.True(t, Read{Buf: a}.Equal(Read{Buf: a}))
	assert.False(t, Read{Buf: a}.Equal(Read{Buf: make([]byte, 4)}))
	assert.False(t, Read{Buf: a}.Equal(Read{Buf: a[:2]}))
	assert.False(t, Read{Buf: a}.Equal(WriteIter{Bytes: Bytes(a...)}))
	assert.True(t, Read{}.Equal(Read{Buf: []byte{}}))
}
