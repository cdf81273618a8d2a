package i2ctx

import (
	"errors"
	"io"
	"iter"
	"slices"
)

// Bytes returns a byte source over b. The slice is not copied.
func Bytes(b ...byte) iter.Seq[byte] {
	return slices.Values(b)
}

// Uint16BE yields v most significant byte first, the usual layout of 16-bit commands
// and register addresses.
func Uint16BE(v uint16) iter.Seq[byte] {
	return func(yield func(byte) bool) {
		if !yield(byte(v >> 8)) {
			return
		}
		yield(byte(v))
	}
}

// Concat chains byte sources into one.
func Concat(seqs ...iter.Seq[byte]) iter.Seq[byte] {
	return func(yield func(byte) bool) {
		for _, seq := range seqs {
			if seq == nil {
				continue
			}
			for b := range seq {
				if !yield(b) {
					return
				}
			}
		}
	}
}

// FromReader yields bytes from r until io.EOF. Any other read error ends the source
// early; it is reported by the returned function once the source has been consumed.
func FromReader(r io.ByteReader) (iter.Seq[byte], func() error) {
	var readErr error
	seq := func(yield func(byte) bool) {
		for {
			b, err := r.ReadByte()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				readErr = err
				return
			}
			if !yield(b) {
				return
			}
		}
	}
	return seq, func() error { return readErr }
}

// collect appends the bytes of src to buf.
func collect(buf []byte, src iter.Seq[byte]) []byte {
	if src == nil {
		return buf
	}
	return slices.AppendSeq(buf, src)
}
