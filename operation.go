package i2ctx

import (
	"iter"
	"slices"
)

// Operation is one step of a transaction: either Read or WriteIter.
type Operation interface {
	operation()
}

// Read fills Buf completely from the target.
type Read struct {
	Buf []byte
}

func (Read) operation() {}

// Equal reports whether o is a Read into the very same buffer.
func (r Read) Equal(o Operation) bool {
	other, ok := o.(Read)
	if !ok || len(r.Buf) != len(other.Buf) {
		return false
	}
	return len(r.Buf) == 0 || &r.Buf[0] == &other.Buf[0]
}

// WriteIter transmits every byte produced by Bytes, in order. A nil source writes
// nothing.
type WriteIter struct {
	Bytes iter.Seq[byte]
}

func (WriteIter) operation() {}

// Ops returns the given operations as a sequence.
func Ops(ops ...Operation) iter.Seq[Operation] {
	return slices.Values(ops)
}
