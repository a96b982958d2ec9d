package serialhost

import (
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultReadTimeout is the per-read device timeout applied when the
	// configuration leaves ReadTimeout zero. It has to stay short: the
	// reader loop cannot observe a stop request while a read is pending.
	DefaultReadTimeout = 50 * time.Millisecond

	// DefaultLineEnding is appended by WriteLine when no terminator is
	// configured.
	DefaultLineEnding = "\r\n"
)

// DataHandler receives one decoded batch of received text per reader
// loop cycle. It is invoked from the host's background goroutine, so
// slow handlers delay subsequent polls.
type DataHandler func(text string)

// ConditionHandler receives structured failure and status conditions.
// Optional; handlers must not assume any particular goroutine.
type ConditionHandler func(c Condition)

// Config holds everything needed to host a serial device. All fields
// are fixed for the lifetime of the Host created from them.
type Config struct {
	// PortName is the path to the serial device, e.g. /dev/ttyUSB0,
	// or a COMn name on Windows.
	PortName string

	BaudRate BaudRate
	DataBits DataBits
	Parity   Parity
	StopBits StopBits

	// DTR and RTS are applied to the control lines after each open.
	DTR bool
	RTS bool

	// ReadTimeout is the device-level timeout for a single read.
	// Zero selects DefaultReadTimeout.
	ReadTimeout time.Duration

	// IdleTimeout is the silence duration after which an idle condition
	// is reported. Zero disables idle detection.
	IdleTimeout time.Duration

	// LineEnding is appended by WriteLine. Empty selects DefaultLineEnding.
	LineEnding string

	// OnData receives each decoded batch. Required.
	OnData DataHandler

	// OnCondition receives failure and status conditions. Optional.
	OnCondition ConditionHandler

	// Logger receives the same conditions as structured log events.
	// Nil disables logging.
	Logger *zerolog.Logger
}

func (c *Config) readTimeout() time.Duration {
	if c.ReadTimeout <= 0 {
		return DefaultReadTimeout
	}
	return c.ReadTimeout
}

func (c *Config) lineEnding() string {
	if c.LineEnding == "" {
		return DefaultLineEnding
	}
	return c.LineEnding
}
