package serialhost

import (
	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

// reporter routes conditions to the optional handler and the logger.
// It never panics and never blocks beyond what the handler itself does;
// after the run flag drops it discards everything.
type reporter struct {
	log     zerolog.Logger
	handler ConditionHandler
	running *atomic.Bool
}

func newReporter(cfg *Config, running *atomic.Bool) *reporter {
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	return &reporter{log: log, handler: cfg.OnCondition, running: running}
}

func (r *reporter) report(c Condition) {
	if !r.running.Load() {
		return
	}

	defer func() {
		// A faulty handler must not take down the reader loop.
		_ = recover()
	}()

	ev := r.log.Warn()
	if c.Kind() == KindIdleTimeout {
		ev = r.log.Info()
	}
	ev.Str("condition", string(c.Kind())).EmbedObject(c).Msg("serial host condition")

	if r.handler != nil {
		r.handler(c)
	}
}
