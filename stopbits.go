package serialhost

import gobug "go.bug.st/serial"

// StopBits selects how many stop bits terminate each character.
type StopBits gobug.StopBits

// Get returns the underlying driver value.
func (sb StopBits) Get() gobug.StopBits {
	return gobug.StopBits(sb)
}

const (
	StopBits1 = StopBits(gobug.OneStopBit)
	// StopBits1Half is only meaningful with 5 data bits.
	StopBits1Half = StopBits(gobug.OnePointFiveStopBits)
	StopBits2     = StopBits(gobug.TwoStopBits)
)
