package scheduler

import (
	"context"
	"time"

	"github.com/fadedpez/pitbot/internal/logging"
)

// IndexEnsurer creates the storage indices for the month containing now
type IndexEnsurer interface {
	EnsureIndices(ctx context.Context, now time.Time) error
}

// Pruner drops expired in-memory state, such as cooldowns
type Pruner interface {
	Prune(now time.Time) int
}

// Maintenance bundles the bot's housekeeping tasks on one scheduler
type Maintenance struct {
	scheduler *Scheduler
	logger    *logging.Logger
	now       func() time.Time
}

// NewMaintenance creates an empty maintenance schedule
func NewMaintenance(logger *logging.Logger) *Maintenance {
	if logger == nil {
		logger = logging.Default
	}
	return &Maintenance{
		scheduler: NewScheduler(logger),
		logger:    logger.With("maintenance"),
		now:       time.Now,
	}
}

// WithIndexRotation ensures next month's indices exist before the month turns over.
// The current month is ensured as well, so a fresh deployment is covered on the first run.
func (m *Maintenance) WithIndexRotation(indices IndexEnsurer, interval time.Duration) *Maintenance {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	m.scheduler.AddTask("index_rotation", interval, func(ctx context.Context) error {
		now := m.now().UTC()
		if err := indices.EnsureIndices(ctx, now); err != nil {
			return err
		}
		return indices.EnsureIndices(ctx, firstOfNextMonth(now))
	})
	return m
}

// WithPruning drops expired entries from p every interval
func (m *Maintenance) WithPruning(name string, p Pruner, interval time.Duration) *Maintenance {
	if interval <= 0 {
		interval = time.Hour
	}
	m.scheduler.AddTask(name, interval, func(ctx context.Context) error {
		if n := p.Prune(m.now()); n > 0 {
			m.logger.Debug("Pruned %d expired %s entries", n, name)
		}
		return nil
	})
	return m
}

// Start starts every configured task
func (m *Maintenance) Start(ctx context.Context) {
	m.scheduler.Start(ctx)
}

// Stop stops the maintenance tasks
func (m *Maintenance) Stop() {
	m.scheduler.Stop()
}

func firstOfNextMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}
