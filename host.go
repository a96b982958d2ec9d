// Package serialhost hosts a single long-lived serial device
// connection. A dedicated background goroutine drains incoming bytes
// and hands decoded batches to a caller-supplied handler; writes share
// a lock with the reader; transport-level errors force-close the
// session so the next cycle transparently reopens the device.
package serialhost

import (
	"errors"
	"fmt"
	"sync"
	"time"

	gobug "go.bug.st/serial"
	"go.uber.org/atomic"
)

const (
	// scratchSize is the capacity of the reusable per-poll read buffer.
	scratchSize = 255
)

// Loop pacing. Variables so tests can shrink them.
var (
	// pollInterval paces the loop when a cycle drained nothing.
	pollInterval = 100 * time.Millisecond

	// errorBackoff bounds the retry rate against a persistently
	// failing device.
	errorBackoff = 5 * time.Second

	// closeWait is the ceiling Close waits for the reader goroutine; a
	// blocking native call in flight may not be interruptible, in which
	// case the wait is abandoned and the goroutine left to finish on
	// its own.
	closeWait = 5 * time.Second
)

// Host owns the connection to one serial device. Create it with New;
// the reader loop runs until Close.
type Host struct {
	cfg Config

	// mu guards sess and every read/write call into the handle. The
	// reader loop, caller writes and the async error path all serialize
	// through it.
	mu   sync.Mutex
	sess session

	running  atomic.Bool
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	rep     *reporter
	metrics Metrics
}

// New validates cfg and starts the reader loop immediately. The device
// itself is opened lazily on the first cycle.
func New(cfg Config) (*Host, error) {
	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("serialhost: %w", err)
	}

	h := &Host{
		cfg:  cfg,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	h.running.Store(true)
	h.rep = newReporter(&h.cfg, &h.running)

	go h.run()
	return h, nil
}

// IsOpen reports whether the session currently holds a live handle.
func (h *Host) IsOpen() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sess.isOpen()
}

// MetricsSnapshot returns a point-in-time copy of the host counters.
func (h *Host) MetricsSnapshot() MetricsSnapshot {
	return h.metrics.snapshot()
}

// Write writes the encoded text to the device. Failures are reported
// through the condition handler and the write silently dropped; writes
// never raise to the caller.
func (h *Host) Write(text string) {
	h.write([]byte(text))
}

// WriteLine writes text followed by the configured line terminator.
func (h *Host) WriteLine(text string) {
	h.write([]byte(text + h.cfg.lineEnding()))
}

func (h *Host) write(data []byte) {
	if len(data) == 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.running.Load() {
		return
	}

	handle, err := h.ensureOpenLocked()
	if err != nil {
		h.metrics.WriteErrors.Add(1)
		h.rep.report(FaultCondition{FaultKind: KindWriteFailed, Port: h.cfg.PortName, Err: err})
		return
	}

	written := 0
	for written < len(data) {
		n, err := handle.Write(data[written:])
		if err != nil {
			h.metrics.WriteErrors.Add(1)
			h.rep.report(FaultCondition{FaultKind: KindWriteFailed, Port: h.cfg.PortName, Err: err})
			return
		}
		if n == 0 {
			h.metrics.WriteErrors.Add(1)
			h.rep.report(FaultCondition{
				FaultKind: KindWriteFailed,
				Port:      h.cfg.PortName,
				Err:       fmt.Errorf("partial write: %d of %d bytes", written, len(data)),
			})
			return
		}
		written += n
	}

	h.metrics.Writes.Add(1)
	h.metrics.BytesWritten.Add(int64(written))
}

// DiscardInBuffer discards unread input held by the device. A no-op
// when the session is closed; it never opens the device.
func (h *Host) DiscardInBuffer() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.sess.isOpen() {
		return
	}
	if err := h.sess.handle.ResetInputBuffer(); err != nil {
		h.rep.report(FaultCondition{FaultKind: KindReadFailed, Port: h.cfg.PortName, Err: err})
	}
}

// Close stops the reader loop and closes the session. It may be called
// from any goroutine and more than once; the caller is blocked for at
// most the wait ceiling plus the duration of the close itself.
func (h *Host) Close() error {
	h.running.Store(false)
	h.stopOnce.Do(func() { close(h.stop) })

	select {
	case <-h.done:
		h.closeSession()
	case <-time.After(closeWait):
		// The loop is stuck in a native call and still holds the
		// shared lock, so the normal take-and-clear would block behind
		// it. Close the handle through the session's lock-free mirror
		// instead; that is also what unblocks the pending read.
		if handle := h.sess.liveHandle(); handle != nil {
			_ = handle.Close()
		}
	}
	return nil
}

// run is the reader loop. One iteration: idle check, locked drain,
// handler dispatch. Errors escaping the drain are reported and paced by
// the backoff; the loop only ends when the run flag drops.
func (h *Host) run() {
	defer close(h.done)

	scratch := make([]byte, scratchSize)

	// The deadline is armed from the start so a link that never says
	// anything still raises exactly one idle condition.
	var idleAt time.Time
	if h.cfg.IdleTimeout > 0 {
		idleAt = time.Now().Add(h.cfg.IdleTimeout)
	}

	for h.running.Load() {
		if h.cfg.IdleTimeout > 0 && !idleAt.IsZero() && time.Now().After(idleAt) {
			h.metrics.IdleEvents.Add(1)
			h.rep.report(IdleTimeoutCondition{Port: h.cfg.PortName, Idle: h.cfg.IdleTimeout})
			idleAt = time.Time{}
		}

		batch, err := h.poll(scratch)
		if err != nil {
			h.reportPollError(err)
			h.sleep(errorBackoff)
			continue
		}

		if len(batch) > 0 {
			if h.cfg.IdleTimeout > 0 {
				idleAt = time.Now().Add(h.cfg.IdleTimeout)
			}
			h.metrics.Batches.Add(1)
			h.metrics.LastData.Store(time.Now().Unix())
			if h.running.Load() {
				if err := h.dispatch(string(batch)); err != nil {
					h.metrics.HandlerErrors.Add(1)
					h.rep.report(FaultCondition{FaultKind: KindHandlerFailed, Port: h.cfg.PortName, Err: err})
					h.sleep(errorBackoff)
				}
			}
			continue
		}

		h.sleep(pollInterval)
	}
}

// dispatch hands one batch to the data handler. A panicking handler
// must not take the loop down with it; the panic is converted to an
// error and paced like any other loop failure.
func (h *Host) dispatch(text string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("data handler panic: %v", r)
		}
	}()
	h.cfg.OnData(text)
	return nil
}

// poll holds the shared lock for one drain: ensure the session is open,
// then read until a zero-byte result. A read timeout is "nothing this
// cycle", not an error.
func (h *Host) poll(scratch []byte) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.running.Load() {
		return nil, nil
	}

	handle, err := h.ensureOpenLocked()
	if err != nil {
		return nil, err
	}
	h.metrics.PollCycles.Add(1)

	var batch []byte
	for {
		n, err := handle.Read(scratch)
		if err != nil {
			if isTimeout(err) {
				break
			}
			h.metrics.ReadErrors.Add(1)
			return nil, fmt.Errorf("reading %s: %w", h.cfg.PortName, err)
		}
		if n == 0 {
			break
		}
		h.metrics.BytesRead.Add(int64(n))
		batch = append(batch, scratch[:n]...)
	}
	return batch, nil
}

// ensureOpenLocked opens the device if needed and tracks reopen
// metrics. Caller must hold mu.
func (h *Host) ensureOpenLocked() (PortHandle, error) {
	wasOpen := h.sess.isOpen()
	handle, err := h.sess.ensureOpen(&h.cfg, h.onTransportFault)
	if err != nil {
		h.metrics.OpenErrors.Add(1)
		return nil, err
	}
	if !wasOpen {
		h.metrics.Opens.Add(1)
		h.metrics.LastOpen.Store(time.Now().Unix())
	}
	return handle, nil
}

// reportPollError classifies an error escaping the drain. Driver-level
// port errors force a reconnect; everything else is informational and
// retried after the backoff.
func (h *Host) reportPollError(err error) {
	var oe *OpenError
	if errors.As(err, &oe) {
		h.rep.report(FaultCondition{FaultKind: KindOpenFailed, Port: h.cfg.PortName, Err: err})
		return
	}

	var pe *gobug.PortError
	if errors.As(err, &pe) {
		id := h.closeSession()
		h.metrics.Restarts.Add(1)
		h.rep.report(RestartCondition{Reason: pe.Error(), Port: h.cfg.PortName, SessionID: id})
		return
	}

	h.rep.report(FaultCondition{FaultKind: KindReadFailed, Port: h.cfg.PortName, Err: err})
}

// onTransportFault is the asynchronous error notification path. It may
// run on an arbitrary goroutine; it shares the close routine with the
// loop and shutdown.
func (h *Host) onTransportFault(reason string) {
	if !h.running.Load() {
		return
	}
	id := h.closeSession()
	h.metrics.Restarts.Add(1)
	h.rep.report(RestartCondition{Reason: reason, Port: h.cfg.PortName, SessionID: id})
}

// closeSession detaches the handle under the lock and closes it outside
// it, so a slow close never starves other lock holders. Safe under
// concurrent invocation from the loop, shutdown and the notification
// path; close failures are swallowed.
func (h *Host) closeSession() string {
	h.mu.Lock()
	handle, id := h.sess.takeAndClear()
	h.mu.Unlock()

	if handle != nil {
		_ = handle.Close()
	}
	return id
}

// sleep pauses the loop but stays responsive to shutdown.
func (h *Host) sleep(d time.Duration) {
	select {
	case <-h.stop:
	case <-time.After(d):
	}
}
