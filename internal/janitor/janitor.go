package janitor

import (
	"context"
	"io"
	"log"
	"time"
)

// Sweeper deletes temporary records whose expiry has passed.
type Sweeper interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type counterReconciler interface {
	ReconcileCounters(ctx context.Context) (int64, error)
}

// Janitor periodically removes expired pending orders and temporary users and
// repairs notification counters.
type Janitor struct {
	interval time.Duration
	sweepers map[string]Sweeper
	order    []string
	counters counterReconciler
	logger   *log.Logger
	now      func() time.Time
}

func New(interval time.Duration, counters counterReconciler, logger *log.Logger) *Janitor {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Janitor{
		interval: interval,
		sweepers: make(map[string]Sweeper),
		counters: counters,
		logger:   logger,
		now:      time.Now,
	}
}

// Register adds a sweeper. Sweepers run in registration order, so orders
// should come before the users they reference.
func (j *Janitor) Register(name string, s Sweeper) *Janitor {
	if _, ok := j.sweepers[name]; !ok {
		j.order = append(j.order, name)
	}
	j.sweepers[name] = s
	return j
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Printf("janitor: started interval=%s", j.interval)
	j.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			j.logger.Printf("janitor: stopped")
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep runs a single pass and returns the number of deleted records per sweeper.
func (j *Janitor) Sweep(ctx context.Context) map[string]int64 {
	now := j.now()
	deleted := make(map[string]int64, len(j.order))
	for _, name := range j.order {
		n, err := j.sweepers[name].DeleteExpired(ctx, now)
		if err != nil {
			j.logger.Printf("janitor: sweep %s error=%v", name, err)
			continue
		}
		deleted[name] = n
		if n > 0 {
			j.logger.Printf("janitor: sweep %s deleted=%d", name, n)
		}
	}
	if j.counters != nil {
		fixed, err := j.counters.ReconcileCounters(ctx)
		if err != nil {
			j.logger.Printf("janitor: reconcile counters error=%v", err)
		} else if fixed > 0 {
			j.logger.Printf("janitor: reconciled notification counters fixed=%d", fixed)
		}
	}
	return deleted
}
