// Package script runs starlark programs that drive an I2C bus.
//
// Programs get these builtins on top of the starlark core:
//
//	write(addr, data)              send data, bytes or an iterable of ints
//	read(addr, n)                  read n bytes
//	write_read(addr, data, n)      send data, then read n bytes in the same transaction
//	tx(addr, op, ...)              run w(data) and r(n) steps as one transaction and
//	                               return the bytes of every r step
//	w(data), r(n)                  transaction steps for tx
//	sleep(ms)                      pause
//
// Addresses are ints (7-bit up to 0x7f, 10-bit above) or strings such as "0x50" or
// "0x250/10". Data is checked before anything is sent: a value outside 0..255 fails the
// call without touching the bus.
package script

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/mklimuk/i2ctx"
	"github.com/mklimuk/i2ctx/logctx"
)

var ErrInvalidByte = errors.New("value is not a byte")

// Run executes src, a file name, string or []byte as accepted by starlark, against bus
// and returns the program's globals. Cancelling ctx stops the program.
func Run(ctx context.Context, bus i2ctx.Transactor, filename string, src any) (starlark.StringDict, error) {
	log := logctx.Logger(ctx)
	thread := &starlark.Thread{
		Name: filename,
		Print: func(_ *starlark.Thread, msg string) {
			log.InfoContext(ctx, msg, "script", filename)
		},
	}
	stop := context.AfterFunc(ctx, func() {
		thread.Cancel(context.Cause(ctx).Error())
	})
	defer stop()

	env := &env{ctx: ctx, bus: bus}
	globals, err := starlark.ExecFileOptions(&syntax.FileOptions{}, thread, filename, src, env.builtins())
	if err != nil {
		if ctx.Err() != nil {
			return globals, fmt.Errorf("script %s: %w", filename, ctx.Err())
		}
		return globals, fmt.Errorf("script %s: %w", filename, err)
	}
	return globals, nil
}

// Check parses and resolves src without running it. Unknown names fail here
// instead of halfway through a transaction sequence.
func Check(filename string, src any) error {
	predeclared := (&env{}).builtins()
	_, _, err := starlark.SourceProgramOptions(&syntax.FileOptions{}, filename, src, predeclared.Has)
	if err != nil {
		return fmt.Errorf("script %s: %w", filename, err)
	}
	return nil
}

type env struct {
	ctx context.Context
	bus i2ctx.Transactor
}

func (e *env) builtins() starlark.StringDict {
	return starlark.StringDict{
		"write":      starlark.NewBuiltin("write", e.write),
		"read":       starlark.NewBuiltin("read", e.read),
		"write_read": starlark.NewBuiltin("write_read", e.writeRead),
		"tx":         starlark.NewBuiltin("tx", e.tx),
		"w":          starlark.NewBuiltin("w", newWrite),
		"r":          starlark.NewBuiltin("r", newRead),
		"sleep":      starlark.NewBuiltin("sleep", e.sleep),
	}
}

func (e *env) write(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var addrV, data starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "addr", &addrV, "data", &data); err != nil {
		return nil, err
	}
	addr, err := toAddress(addrV)
	if err != nil {
		return nil, err
	}
	buf, err := toBytes(data)
	if err != nil {
		return nil, err
	}
	if err := i2ctx.Write(e.ctx, e.bus, addr, i2ctx.Bytes(buf...)); err != nil {
		return nil, err
	}
	return starlark.None, nil
}

func (e *env) read(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var addrV starlark.Value
	var n int
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "addr", &addrV, "n", &n); err != nil {
		return nil, err
	}
	addr, err := toAddress(addrV)
	if err != nil {
		return nil, err
	}
	buf, err := readBuffer(n)
	if err != nil {
		return nil, err
	}
	if err := i2ctx.ReadInto(e.ctx, e.bus, addr, buf); err != nil {
		return nil, err
	}
	return starlark.Bytes(buf), nil
}

func (e *env) writeRead(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var addrV, data starlark.Value
	var n int
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "addr", &addrV, "data", &data, "n", &n); err != nil {
		return nil, err
	}
	addr, err := toAddress(addrV)
	if err != nil {
		return nil, err
	}
	buf, err := readBuffer(n)
	if err != nil {
		return nil, err
	}
	w, err := toBytes(data)
	if err != nil {
		return nil, err
	}
	if err := i2ctx.WriteRead(e.ctx, e.bus, addr, i2ctx.Bytes(w...), buf); err != nil {
		return nil, err
	}
	return starlark.Bytes(buf), nil
}

func (e *env) tx(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
	}
	if len(args) < 1 {
		return nil, fmt.Errorf("%s: missing address", b.Name())
	}
	addr, err := toAddress(args[0])
	if err != nil {
		return nil, err
	}
	steps := make([]*step, 0, len(args)-1)
	for i, v := range args[1:] {
		s, ok := v.(*step)
		if !ok {
			return nil, fmt.Errorf("%s: argument %d is %s, want w() or r()", b.Name(), i+2, v.Type())
		}
		steps = append(steps, s)
	}
	var reads [][]byte
	ops := func(yield func(i2ctx.Operation) bool) {
		for _, s := range steps {
			var op i2ctx.Operation
			if s.write {
				op = i2ctx.WriteIter{Bytes: i2ctx.Bytes(s.data...)}
			} else {
				buf := make([]byte, s.n)
				reads = append(reads, buf)
				op = i2ctx.Read{Buf: buf}
			}
			if !yield(op) {
				return
			}
		}
	}
	if err := e.bus.Transaction(e.ctx, addr, ops); err != nil {
		return nil, err
	}
	res := make([]starlark.Value, len(reads))
	for i, buf := range reads {
		res[i] = starlark.Bytes(buf)
	}
	return starlark.NewList(res), nil
}

func (e *env) sleep(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var ms int
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "ms", &ms); err != nil {
		return nil, err
	}
	timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-timer.C:
		return starlark.None, nil
	case <-e.ctx.Done():
		return nil, e.ctx.Err()
	}
}

// step is a transaction step built by w() or r().
type step struct {
	write bool
	data  []byte
	n     int
}

var _ starlark.Value = &step{}

func (s *step) String() string {
	if s.write {
		return fmt.Sprintf("w(%s)", starlark.Bytes(s.data))
	}
	return fmt.Sprintf("r(%d)", s.n)
}

func (s *step) Type() string          { return "i2c_step" }
func (s *step) Freeze()               {}
func (s *step) Truth() starlark.Bool  { return starlark.True }
func (s *step) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: %s", s.Type()) }

func newWrite(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var data starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "data", &data); err != nil {
		return nil, err
	}
	buf, err := toBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return &step{write: true, data: buf}, nil
}

func newRead(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var n int
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "n", &n); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("%s: negative length %d", b.Name(), n)
	}
	return &step{n: n}, nil
}

func readBuffer(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative read length %d", n)
	}
	return make([]byte, n), nil
}

func toAddress(v starlark.Value) (i2ctx.Address, error) {
	switch v := v.(type) {
	case starlark.Int:
		a, ok := v.Uint64()
		if !ok || a > 0xffff {
			return nil, fmt.Errorf("%w: %s", i2ctx.ErrInvalidAddress, v)
		}
		return i2ctx.AddressOf(uint16(a))
	case starlark.String:
		return i2ctx.ParseAddress(string(v))
	}
	return nil, fmt.Errorf("%w: got %s", i2ctx.ErrInvalidAddress, v.Type())
}

// toBytes converts bytes or an iterable of ints in 0..255.
func toBytes(data starlark.Value) ([]byte, error) {
	if b, ok := data.(starlark.Bytes); ok {
		return []byte(b), nil
	}
	it := starlark.Iterate(data)
	if it == nil {
		return nil, fmt.Errorf("%w: %s is not iterable", ErrInvalidByte, data.Type())
	}
	defer it.Done()
	var buf []byte
	var v starlark.Value
	for it.Next(&v) {
		n, err := starlark.AsInt32(v)
		if err != nil || n < 0 || n > 0xff {
			return nil, fmt.Errorf("%w: %s", ErrInvalidByte, v)
		}
		buf = append(buf, byte(n))
	}
	return buf, nil
}
