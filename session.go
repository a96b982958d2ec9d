package serialhost

import (
	"github.com/google/uuid"
	gobug "go.bug.st/serial"
	"go.uber.org/atomic"
)

// session owns the single live transport handle. It carries no lock of
// its own: every method must be called with the host's shared mutex
// held, except that the handle returned by takeAndClear may be closed
// outside it, and liveHandle which is lock-free.
type session struct {
	handle PortHandle
	id     string

	// mirror shadows handle for the shutdown path. When the reader is
	// parked inside a blocked native read it still holds the shared
	// mutex, so shutdown cannot take the handle the normal way; it
	// closes the mirrored one instead, which is what makes the pending
	// read return.
	mirror atomic.Value // handleBox
}

// handleBox gives the mirror a single concrete type to store.
type handleBox struct {
	h PortHandle
}

// liveHandle returns the current handle without the shared mutex. Nil
// when the session is closed.
func (s *session) liveHandle() PortHandle {
	box, _ := s.mirror.Load().(handleBox)
	return box.h
}

func (s *session) isOpen() bool {
	return s.handle != nil
}

// ensureOpen returns the live handle, opening the device first when
// none exists. A fresh session id is minted per open so conditions can
// name the incarnation they refer to.
func (s *session) ensureOpen(cfg *Config, onAsyncError func(reason string)) (PortHandle, error) {
	if s.handle != nil {
		return s.handle, nil
	}

	mode := &gobug.Mode{
		BaudRate: cfg.BaudRate.Int(),
		DataBits: cfg.DataBits.Int(),
		Parity:   cfg.Parity.Get(),
		StopBits: cfg.StopBits.Get(),
	}

	h, err := openPort(cfg.PortName, mode)
	if err != nil {
		return nil, &OpenError{Port: cfg.PortName, Err: err}
	}

	if err = h.SetReadTimeout(cfg.readTimeout()); err != nil {
		return nil, rollbackOpen(cfg, h, err)
	}
	if err = h.SetDTR(cfg.DTR); err != nil {
		return nil, rollbackOpen(cfg, h, err)
	}
	if err = h.SetRTS(cfg.RTS); err != nil {
		return nil, rollbackOpen(cfg, h, err)
	}

	h.Subscribe(onAsyncError)

	s.handle = h
	s.id = uuid.NewString()
	s.mirror.Store(handleBox{h: h})
	return h, nil
}

// rollbackOpen closes a half-configured handle. The close error is
// deliberately dropped; the open failure is what the caller cares about.
func rollbackOpen(cfg *Config, h PortHandle, err error) error {
	_ = h.Close()
	return &OpenError{Port: cfg.PortName, Err: err}
}

// takeAndClear detaches the current handle so the caller can close it
// after releasing the shared lock. A slow close must never stall
// readers or writers waiting on that lock.
func (s *session) takeAndClear() (PortHandle, string) {
	h, id := s.handle, s.id
	s.handle = nil
	s.mirror.Store(handleBox{})
	return h, id
}
