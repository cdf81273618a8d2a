// Package eeprom accesses 24Cxx style I2C memories.
package eeprom

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/mklimuk/i2ctx"
	"github.com/mklimuk/i2ctx/logctx"
)

// blockSize is the memory behind one device address; larger parts answer on
// consecutive addresses.
const blockSize = 256

var ErrInvalidConfig = errors.New("invalid eeprom configuration")

type Config struct {
	Size       int
	PageSize   int
	WriteDelay time.Duration
}

var (
	Conf24C02 = Config{Size: 256, PageSize: 8, WriteDelay: 5 * time.Millisecond}
	Conf24C04 = Config{Size: 512, PageSize: 16, WriteDelay: 5 * time.Millisecond}
	Conf24C08 = Config{Size: 1024, PageSize: 16, WriteDelay: 5 * time.Millisecond}
	Conf24C16 = Config{Size: 2048, PageSize: 16, WriteDelay: 5 * time.Millisecond}
)

// Configs maps part names to their geometry.
var Configs = map[string]Config{
	"24c02": Conf24C02,
	"24c04": Conf24C04,
	"24c08": Conf24C08,
	"24c16": Conf24C16,
}

func (c Config) Validate() error {
	switch {
	case c.Size <= 0 || c.Size%blockSize != 0 || c.Size > 8*blockSize:
		return fmt.Errorf("%w: size %d", ErrInvalidConfig, c.Size)
	case c.PageSize <= 0 || c.PageSize&(c.PageSize-1) != 0 || c.PageSize > blockSize:
		return fmt.Errorf("%w: page size %d", ErrInvalidConfig, c.PageSize)
	case c.WriteDelay < 0:
		return fmt.Errorf("%w: write delay %s", ErrInvalidConfig, c.WriteDelay)
	}
	return nil
}

// EEPROM24 is a 24Cxx memory with one byte word addresses.
type EEPROM24 struct {
	bus  i2ctx.Transactor
	base i2ctx.Addr7
	conf Config
}

func New(bus i2ctx.Transactor, base i2ctx.Addr7, conf Config) (*EEPROM24, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if int(base.BaseAddr())+conf.Size/blockSize-1 > 0x7f {
		return nil, fmt.Errorf("%w: %d blocks do not fit above %s", ErrInvalidConfig, conf.Size/blockSize, base)
	}
	return &EEPROM24{bus: bus, base: base, conf: conf}, nil
}

func (e *EEPROM24) Size() int {
	return e.conf.Size
}

// locate returns the device address and word address of byte off.
func (e *EEPROM24) locate(off int) (i2ctx.Addr7, byte) {
	return e.base + i2ctx.Addr7(off/blockSize), byte(off % blockSize)
}

// ReadAt reads len(p) bytes starting at off. Reading past the end returns the bytes
// available and io.EOF.
func (e *EEPROM24) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("eeprom: negative offset %d", off)
	}
	n := 0
	pos := int(off)
	for n < len(p) && pos < e.conf.Size {
		chunk := min(len(p)-n, blockSize-pos%blockSize, e.conf.Size-pos)
		dev, word := e.locate(pos)
		err := i2ctx.WriteRead(ctx, e.bus, dev, i2ctx.Bytes(word), p[n:n+chunk])
		if err != nil {
			return n, fmt.Errorf("eeprom: read %d bytes at %#x: %w", chunk, pos, err)
		}
		n += chunk
		pos += chunk
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt programs p starting at off, one page per transaction, waiting for the write
// cycle to finish after each page. Writing past the end returns the bytes written and
// io.EOF.
func (e *EEPROM24) WriteAt(ctx context.Context, p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("eeprom: negative offset %d", off)
	}
	log := logctx.Logger(ctx)
	n := 0
	pos := int(off)
	for n < len(p) && pos < e.conf.Size {
		chunk := min(len(p)-n, e.conf.PageSize-pos%e.conf.PageSize, e.conf.Size-pos)
		dev, word := e.locate(pos)
		err := i2ctx.Write(ctx, e.bus, dev, i2ctx.Concat(i2ctx.Bytes(word), i2ctx.Bytes(p[n:n+chunk]...)))
		if err != nil {
			return n, fmt.Errorf("eeprom: write %d bytes at %#x: %w", chunk, pos, err)
		}
		log.DebugContext(ctx, "eeprom page written", "dev", dev, "word", word, "len", chunk)
		n += chunk
		pos += chunk
		if err := e.waitWriteCycle(ctx); err != nil {
			return n, err
		}
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (e *EEPROM24) waitWriteCycle(ctx context.Context) error {
	if e.conf.WriteDelay == 0 {
		return nil
	}
	timer := time.NewTimer(e.conf.WriteDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// File returns a cursor over the memory bound to ctx.
func (e *EEPROM24) File(ctx context.Context) *File {
	return &File{ctx: ctx, e: e}
}

var _ io.ReadWriteSeeker = &File{}

// File is an io.ReadWriteSeeker over an EEPROM24.
type File struct {
	ctx context.Context
	e   *EEPROM24
	pos int64
}

func (f *File) Read(p []byte) (int, error) {
	if f.pos >= int64(f.e.conf.Size) {
		return 0, io.EOF
	}
	n, err := f.e.ReadAt(f.ctx, p, f.pos)
	f.pos += int64(n)
	if errors.Is(err, io.EOF) && n > 0 {
		return n, nil
	}
	return n, err
}

func (f *File) Write(p []byte) (int, error) {
	n, err := f.e.WriteAt(f.ctx, p, f.pos)
	f.pos += int64(n)
	return n, err
}

func (f *File) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = f.pos + offset
	case io.SeekEnd:
		pos = int64(f.e.conf.Size) + offset
	default:
		return f.pos, fmt.Errorf("eeprom: invalid whence %d", whence)
	}
	if pos < 0 || pos > int64(f.e.conf.Size) {
		return f.pos, fmt.Errorf("eeprom: position %d outside of memory", pos)
	}
	f.pos = pos
	return pos, nil
}
