package serialhost

import (
	"sync"
	"time"

	gobug "go.bug.st/serial"
)

// PortHandle abstracts the platform serial transport used by the host.
// Subscribe registers a callback for asynchronous device errors
// (framing, overrun, buffer overflow); transports without such a
// notification path may never invoke it.
type PortHandle interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	SetReadTimeout(d time.Duration) error
	SetDTR(dtr bool) error
	SetRTS(rts bool) error
	ResetInputBuffer() error
	Subscribe(onAsyncError func(reason string))
}

// allow tests to override external dependencies
var (
	openPort = func(name string, mode *gobug.Mode) (PortHandle, error) {
		p, err := gobug.Open(name, mode)
		if err != nil {
			return nil, err
		}
		return &bugstHandle{Port: p}, nil
	}
	getPortsList = gobug.GetPortsList
)

// AvailablePorts lists the serial ports known to the platform.
func AvailablePorts() ([]string, error) {
	ports, err := getPortsList()
	if err != nil {
		return nil, err
	}
	return ports, nil
}

// bugstHandle wraps the concrete go.bug.st port to satisfy PortHandle.
// go.bug.st exposes no asynchronous error events, so the subscription
// is stored but only driven when read failures are classified as
// driver faults by the host.
type bugstHandle struct {
	gobug.Port

	mu         sync.Mutex
	onAsyncErr func(reason string)
}

func (h *bugstHandle) Subscribe(onAsyncError func(reason string)) {
	h.mu.Lock()
	h.onAsyncErr = onAsyncError
	h.mu.Unlock()
}
