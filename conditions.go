package serialhost

import (
	"time"

	"github.com/rs/zerolog"
)

// ConditionKind identifies the class of a reported condition.
type ConditionKind string

const (
	KindIdleTimeout   ConditionKind = "idle-timeout"
	KindRestart       ConditionKind = "restart"
	KindOpenFailed    ConditionKind = "open-failed"
	KindReadFailed    ConditionKind = "read-failed"
	KindWriteFailed   ConditionKind = "write-failed"
	KindHandlerFailed ConditionKind = "handler-failed"
)

// Condition is a structured notable event delivered to the optional
// condition handler and, in parallel, to the configured logger.
type Condition interface {
	zerolog.LogObjectMarshaler

	Kind() ConditionKind
}

// IdleTimeoutCondition reports that no bytes were observed for the
// configured silence window. Fired at most once per window.
type IdleTimeoutCondition struct {
	Port string
	Idle time.Duration
}

func (c IdleTimeoutCondition) Kind() ConditionKind { return KindIdleTimeout }

func (c IdleTimeoutCondition) MarshalZerologObject(e *zerolog.Event) {
	e.Str("port", c.Port).Dur("idle", c.Idle)
}

// RestartCondition reports a driver or hardware level transport error.
// The session it names has already been force-closed; the next loop
// cycle reopens the device with unchanged configuration.
type RestartCondition struct {
	Reason    string
	Port      string
	SessionID string
}

func (c RestartCondition) Kind() ConditionKind { return KindRestart }

func (c RestartCondition) MarshalZerologObject(e *zerolog.Event) {
	e.Str("port", c.Port).Str("reason", c.Reason).Str("session_id", c.SessionID)
}

// FaultCondition reports a failed open, read or write. The loop keeps
// retrying on its own; faults are informational only.
type FaultCondition struct {
	FaultKind ConditionKind
	Port      string
	Err       error
}

func (c FaultCondition) Kind() ConditionKind { return c.FaultKind }

func (c FaultCondition) MarshalZerologObject(e *zerolog.Event) {
	e.Str("port", c.Port)
	if c.Err != nil {
		e.AnErr("error", c.Err)
	}
}
