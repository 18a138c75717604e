package session

import (
	"context"
	"time"

	"github.com/joeblew999/plat-iftar/internal/logging"
)

// Janitor periodically sweeps idle sessions. It implements suture.Service.
type Janitor struct {
	reg      *Registry
	interval time.Duration
}

// NewJanitor sweeps reg every interval, defaulting to a quarter of its ttl.
func NewJanitor(reg *Registry, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = reg.ttl / 4
	}
	if interval < time.Second {
		interval = time.Second
	}
	return &Janitor{reg: reg, interval: interval}
}

// Serve implements suture.Service.
func (j *Janitor) Serve(ctx context.Context) error {
	log := logging.With("session-janitor")
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := j.reg.Sweep(); n > 0 {
				log.Debug().Int("removed", n).Int("remaining", j.reg.Len()).Msg("swept idle sessions")
			}
		}
	}
}

func (j *Janitor) String() string { return "session-janitor" }
