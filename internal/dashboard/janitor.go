package dashboard

import (
	"sync"
	"time"

	"github.com/pimalab/pimadash/internal/logging"
)

const (
	minSweepInterval = time.Second
	maxSweepInterval = 5 * time.Minute
)

// Janitor drops sessions that have been idle longer than the configured timeout.
type Janitor struct {
	registry *Registry
	idle     time.Duration
	interval time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewJanitor sweeps every quarter of the idle timeout, bounded to [1s, 5m].
func NewJanitor(registry *Registry, idle time.Duration) *Janitor {
	interval := idle / 4
	if interval < minSweepInterval {
		interval = minSweepInterval
	}
	if interval > maxSweepInterval {
		interval = maxSweepInterval
	}
	return &Janitor{
		registry: registry,
		idle:     idle,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins sweeping in the background
func (j *Janitor) Start() {
	logging.L().Info("starting session janitor", "idle_timeout", j.idle, "interval", j.interval)
	go j.run()
}

// Stop gracefully stops the janitor. It is safe to call more than once.
func (j *Janitor) Stop() {
	j.stopOnce.Do(func() {
		close(j.stopChan)
	})
}

func (j *Janitor) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.sweep()
		case <-j.stopChan:
			return
		}
	}
}

func (j *Janitor) sweep() int {
	cutoff := nowFunc().Add(-j.idle)
	removed := j.registry.ExpireIdle(cutoff)
	if removed > 0 {
		logging.L().Info("expired idle sessions", "removed", removed, "remaining", j.registry.Len())
	}
	return removed
}
