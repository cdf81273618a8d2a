// Package i2ctest provides conns for testing code built on i2ctx without hardware.
package i2ctest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mklimuk/i2ctx"
)

// ErrUnscripted is returned for transfers the script did not expect.
var ErrUnscripted = errors.New("i2ctest: unscripted transfer")

type EventKind int

const (
	EventWrite EventKind = iota
	EventRead
	EventRelease
)

func (k EventKind) String() string {
	switch k {
	case EventWrite:
		return "write"
	case EventRead:
		return "read"
	case EventRelease:
		return "release"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is one transfer seen by a Script. Data holds the bytes written, or the bytes
// delivered by a read.
type Event struct {
	Kind EventKind
	Addr uint16
	Data []byte
}

type response struct {
	kind EventKind
	data []byte
	err  error
}

// Script is a conn replaying queued responses in order and recording every transfer.
// It implements both i2ctx.Conn and i2ctx.AsyncConn so the same script can drive both
// bus variants.
type Script struct {
	mx         sync.Mutex
	responses  []response
	events     []Event
	releaseErr error
}

var (
	_ i2ctx.Conn      = &Script{}
	_ i2ctx.AsyncConn = &Script{}
)

func NewScript() *Script {
	return &Script{}
}

// ExpectWrite queues the outcome of the next write.
func (s *Script) ExpectWrite(err error) *Script {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.responses = append(s.responses, response{kind: EventWrite, err: err})
	return s
}

// ExpectRead queues the data delivered by the next read and its outcome. Data shorter
// than the read buffer makes the read fail with i2ctx.ErrShortRead.
func (s *Script) ExpectRead(data []byte, err error) *Script {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.responses = append(s.responses, response{kind: EventRead, data: data, err: err})
	return s
}

// FailRelease makes every Release return err.
func (s *Script) FailRelease(err error) *Script {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.releaseErr = err
	return s
}

// Events returns a copy of the transfers recorded so far.
func (s *Script) Events() []Event {
	s.mx.Lock()
	defer s.mx.Unlock()
	return append([]Event(nil), s.events...)
}

// Pending returns the number of queued responses not consumed yet.
func (s *Script) Pending() int {
	s.mx.Lock()
	defer s.mx.Unlock()
	return len(s.responses)
}

func (s *Script) next(kind EventKind) (response, error) {
	if len(s.responses) == 0 {
		return response{}, fmt.Errorf("%w: %s", ErrUnscripted, kind)
	}
	r := s.responses[0]
	if r.kind != kind {
		return response{}, fmt.Errorf("%w: %s, expected %s", ErrUnscripted, kind, r.kind)
	}
	s.responses = s.responses[1:]
	return r, nil
}

func (s *Script) WriteToAddr(ctx context.Context, addr i2ctx.Address, buffer []byte) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.events = append(s.events, Event{Kind: EventWrite, Addr: addr.BaseAddr(), Data: append([]byte{}, buffer...)})
	r, err := s.next(EventWrite)
	if err != nil {
		return err
	}
	return r.err
}

func (s *Script) ReadFromAddr(ctx context.Context, addr i2ctx.Address, buffer []byte) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	r, err := s.next(EventRead)
	if err != nil {
		s.events = append(s.events, Event{Kind: EventRead, Addr: addr.BaseAddr()})
		return err
	}
	if r.err != nil {
		s.events = append(s.events, Event{Kind: EventRead, Addr: addr.BaseAddr()})
		return r.err
	}
	n := copy(buffer, r.data)
	s.events = append(s.events, Event{Kind: EventRead, Addr: addr.BaseAddr(), Data: append([]byte{}, buffer[:n]...)})
	if n < len(buffer) {
		return i2ctx.ErrShortRead
	}
	return nil
}

func (s *Script) Release(ctx context.Context) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.events = append(s.events, Event{Kind: EventRelease})
	return s.releaseErr
}

// StartWrite completes the write on its own goroutine.
func (s *Script) StartWrite(ctx context.Context, addr i2ctx.Address, buffer []byte) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- s.WriteToAddr(ctx, addr, buffer)
	}()
	return done
}

// StartRead completes the read on its own goroutine.
func (s *Script) StartRead(ctx context.Context, addr i2ctx.Address, buffer []byte) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- s.ReadFromAddr(ctx, addr, buffer)
	}()
	return done
}
