package i2ctest

import (
	"context"
	"sync"

	"github.com/mklimuk/i2ctx"
)

// Memory simulates 24Cxx style memory: every 256 bytes answer on their own 7-bit
// address starting at Base. The first byte of a write sets the word address, further
// bytes are stored; reads continue from the word address. With PageSize set, writes
// wrap inside the page like the real parts do.
type Memory struct {
	mx       sync.Mutex
	Base     i2ctx.Addr7
	Mem      []byte
	PageSize int
	ptr      int
	// Transactions counts calls to Release.
	Transactions int
	// Writes counts write transfers, address-only ones included.
	Writes int
}

var _ i2ctx.Conn = &Memory{}

// NewMemory returns a device of size bytes filled with fill.
func NewMemory(base i2ctx.Addr7, size int, fill byte) *Memory {
	m := &Memory{Base: base, Mem: make([]byte, size)}
	for i := range m.Mem {
		m.Mem[i] = fill
	}
	return m
}

func (m *Memory) block(addr i2ctx.Address) (int, bool) {
	if addr.TenBit() {
		return 0, false
	}
	blk := int(addr.BaseAddr()) - int(m.Base.BaseAddr())
	if blk < 0 || blk*256 >= len(m.Mem) {
		return 0, false
	}
	return blk, true
}

func (m *Memory) WriteToAddr(ctx context.Context, addr i2ctx.Address, buffer []byte) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	blk, ok := m.block(addr)
	if !ok {
		return i2ctx.ErrNoAck
	}
	m.Writes++
	if len(buffer) == 0 {
		return nil
	}
	m.ptr = blk*256 + int(buffer[0])
	start := m.ptr
	for _, b := range buffer[1:] {
		m.Mem[m.ptr%len(m.Mem)] = b
		m.ptr++
		if m.PageSize > 0 && m.ptr%m.PageSize == 0 {
			m.ptr = start - start%m.PageSize
		}
	}
	return nil
}

func (m *Memory) ReadFromAddr(ctx context.Context, addr i2ctx.Address, buffer []byte) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	if _, ok := m.block(addr); !ok {
		return i2ctx.ErrNoAck
	}
	for i := range buffer {
		buffer[i] = m.Mem[m.ptr%len(m.Mem)]
		m.ptr++
	}
	return nil
}

func (m *Memory) Release(ctx context.Context) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	m.Transactions++
	return nil
}
