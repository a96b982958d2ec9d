package serialhost

import (
	gobug "go.bug.st/serial"
)

// Parity wraps the driver's parity setting.
type Parity gobug.Parity

// Get returns the underlying driver value.
func (pa Parity) Get() gobug.Parity {
	return gobug.Parity(pa)
}

const (
	ParityNone = Parity(gobug.NoParity)
	ParityOdd  = Parity(gobug.OddParity)
	ParityEven = Parity(gobug.EvenParity)
	// ParityMark pins the parity bit to 1, ParitySpace to 0.
	ParityMark  = Parity(gobug.MarkParity)
	ParitySpace = Parity(gobug.SpaceParity)
)
