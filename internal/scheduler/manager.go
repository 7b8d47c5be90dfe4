package scheduler

import (
	"context"
	"log"
	"time"
)

// Aggregator recomputes daily rollups. Implemented by the aggregate
// engine.
type Aggregator interface {
	AggregateDay(ctx context.Context, day time.Time) error
}

// RetentionPurger applies data retention. Implemented by the retention
// service.
type RetentionPurger interface {
	PurgeExpired(ctx context.Context) error
}

// JobLock serializes the daily jobs across server instances. Acquire
// returning false means another instance holds the lock and this one
// skips the job.
type JobLock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// ManagerConfig sets the worker cadence.
type ManagerConfig struct {
	// TickInterval is the scheduler evaluation period.
	TickInterval time.Duration
	// AggregationHour and RetentionHour are the local-server hours the
	// daily jobs fire, once per day each.
	AggregationHour int
	RetentionHour   int
}

// Manager runs the scheduler tick and the daily aggregation and
// retention jobs as background goroutines.
type Manager struct {
	scheduler  *Scheduler
	aggregator Aggregator
	retention  RetentionPurger
	cfg        ManagerConfig
	jobLock    JobLock

	stopCh chan struct{}
	doneCh chan struct{}
}

func NewManager(s *Scheduler, aggregator Aggregator, retention RetentionPurger, cfg ManagerConfig) *Manager {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 5 * time.Minute
	}
	return &Manager{
		scheduler:  s,
		aggregator: aggregator,
		retention:  retention,
		cfg:        cfg,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// SetJobLock installs a lock for the daily jobs. Without one every
// instance runs them; the jobs are idempotent, so that is wasteful but
// not incorrect.
func (m *Manager) SetJobLock(l JobLock) { m.jobLock = l }

// Start launches the worker loop. Call Stop to shut it down.
func (m *Manager) Start(ctx context.Context) {
	go m.run(ctx)
	log.Printf("[Scheduler] workers started, tick every %s", m.cfg.TickInterval)
}

// Stop halts the workers and waits for the loop to exit.
func (m *Manager) Stop() {
	close(m.stopCh)
	<-m.doneCh
	log.Printf("[Scheduler] workers stopped")
}

func (m *Manager) run(ctx context.Context) {
	defer close(m.doneCh)

	ticker := time.NewTicker(m.cfg.TickInterval)
	defer ticker.Stop()

	daily := time.NewTicker(time.Minute)
	defer daily.Stop()

	var lastAggregation, lastRetention string

	for {
		select {
		case <-m.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.scheduler.Tick(ctx, time.Now().UTC())
		case now := <-daily.C:
			now = now.UTC()
			day := now.Format("2006-01-02")
			if m.aggregator != nil && now.Hour() == m.cfg.AggregationHour && lastAggregation != day {
				lastAggregation = day
				prior := now.AddDate(0, 0, -1)
				m.withLock(ctx, "daily aggregation", func() error {
					return m.aggregator.AggregateDay(ctx, prior)
				})
			}
			if m.retention != nil && now.Hour() == m.cfg.RetentionHour && lastRetention != day {
				lastRetention = day
				m.withLock(ctx, "retention purge", func() error {
					return m.retention.PurgeExpired(ctx)
				})
			}
		}
	}
}

func (m *Manager) withLock(ctx context.Context, name string, job func() error) {
	if m.jobLock != nil {
		ok, err := m.jobLock.Acquire(ctx)
		if err != nil {
			log.Printf("[Scheduler] %s lock: %v", name, err)
			return
		}
		if !ok {
			log.Printf("[Scheduler] %s running elsewhere, skipping", name)
			return
		}
		defer m.jobLock.Release(ctx)
	}
	if err := job(); err != nil {
		log.Printf("[Scheduler] %s: %v", name, err)
	}
}
