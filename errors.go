package serialhost

import (
	"errors"
	"fmt"
)

// OpenError reports a failed attempt to open the configured device.
type OpenError struct {
	Port string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("serialhost: opening %s: %v", e.Port, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// isTimeout reports whether err is a per-read timeout from the
// transport, following the net.Error convention. Timeouts end a drain
// quietly; they are never logged or escalated.
func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
