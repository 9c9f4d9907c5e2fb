// AngelaMos | 2026
// scheduler.go

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/studentshelf/internal/config"
	"github.com/carterperez-dev/studentshelf/internal/core"
	"github.com/carterperez-dev/studentshelf/internal/metrics"
	"github.com/carterperez-dev/studentshelf/internal/student"
)

const (
	leaseKey = "studentshelf:sweep:lease"

	TriggerCron   = "cron"
	TriggerManual = "manual"
)

var errSweepRunning = errors.New("sweep already running")

// Converter is the slice of the student service a sweep needs.
type Converter interface {
	DueForConversion(ctx context.Context, now time.Time) ([]string, error)
	Convert(ctx context.Context, id string) (*student.Student, error)
}

// Leaser hands out a cross-replica lease. *core.Redis satisfies it.
type Leaser interface {
	AcquireLease(ctx context.Context, key, holder string, ttl time.Duration) (bool, func(context.Context), error)
}

type Result struct {
	Eligible  int  `json:"eligible"`
	Converted int  `json:"converted"`
	Skipped   int  `json:"skipped"`
	Failed    int  `json:"failed"`
	Leased    bool `json:"-"`
}

type Sweeper struct {
	converter     Converter
	leaser        Leaser
	metrics       *metrics.Metrics
	logger        *slog.Logger
	recordTimeout time.Duration
	leaseTTL      time.Duration
	holder        string
	now           func() time.Time
}

type Options struct {
	Leaser        Leaser
	Metrics       *metrics.Metrics
	Logger        *slog.Logger
	RecordTimeout time.Duration
	LeaseTTL      time.Duration
	Now           func() time.Time
}

func NewSweeper(converter Converter, opts Options) *Sweeper {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	timeout := opts.RecordTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ttl := opts.LeaseTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	return &Sweeper{
		converter:     converter,
		leaser:        opts.Leaser,
		metrics:       opts.Metrics,
		logger:        logger.With("component", "conversion-sweep"),
		recordTimeout: timeout,
		leaseTTL:      ttl,
		holder:        uuid.NewString(),
		now:           now,
	}
}

// Sweep converts every record that is due. A record that fails is logged
// and counted, and the sweep moves on. Records converted concurrently by
// someone else count as skipped.
func (s *Sweeper) Sweep(ctx context.Context, trigger string) (res Result, err error) {
	ctx, span := core.StartSpan(ctx, "scheduler", "scheduler.Sweep",
		attribute.String("trigger", trigger),
	)
	defer func() { core.EndSpan(span, err) }()

	start := time.Now()

	if s.leaser != nil {
		acquired, release, leaseErr := s.leaser.AcquireLease(ctx, leaseKey, s.holder, s.leaseTTL)
		if leaseErr != nil {
			s.logger.Warn("sweep lease unavailable, sweeping without it", "error", leaseErr)
		} else if !acquired {
			s.logger.Info("sweep already running elsewhere", "trigger", trigger)
			s.metrics.Sweep(trigger, "locked", 0, 0, 0, time.Since(start))
			return res, nil
		} else {
			defer release(context.WithoutCancel(ctx))
		}
	}
	res.Leased = true

	ids, err := s.converter.DueForConversion(ctx, s.now())
	if err != nil {
		s.metrics.Sweep(trigger, "error", 0, 0, 0, time.Since(start))
		return res, fmt.Errorf("select due records: %w", err)
	}
	res.Eligible = len(ids)

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}

		switch convErr := s.convertOne(ctx, id); {
		case convErr == nil:
			res.Converted++
		case errors.Is(convErr, core.ErrInvalidTransition):
			res.Skipped++
			s.logger.Info("record no longer convertible", "student_id", id, "reason", core.TransitionMessage(convErr))
		default:
			res.Failed++
			s.logger.Error("conversion failed", "student_id", id, "error", convErr)
		}
	}

	elapsed := time.Since(start)
	s.metrics.Sweep(trigger, "ok", res.Converted, res.Skipped, res.Failed, elapsed)
	s.logger.Info("conversion sweep finished",
		"trigger", trigger,
		"eligible", res.Eligible,
		"converted", res.Converted,
		"skipped", res.Skipped,
		"failed", res.Failed,
		"elapsed", elapsed,
	)

	return res, ctx.Err()
}

func (s *Sweeper) convertOne(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.recordTimeout)
	defer cancel()

	_, err := s.converter.Convert(ctx, id)
	return err
}

// SweepNow runs a sweep on behalf of an admin request. It reports a
// conflict when another replica holds the lease.
func (s *Sweeper) SweepNow(ctx context.Context) (int, error) {
	res, err := s.Sweep(ctx, TriggerManual)
	if err != nil {
		return res.Converted, err
	}
	if !res.Leased {
		return 0, core.NewAppError(
			errSweepRunning,
			"a conversion sweep is already running",
			http.StatusConflict,
			"SWEEP_IN_PROGRESS",
		)
	}
	return res.Converted, nil
}

// Scheduler runs the sweep on a cron schedule until its context ends.
type Scheduler struct {
	cron    *cron.Cron
	sweeper *Sweeper
	logger  *slog.Logger
}

func New(cfg config.SchedulerConfig, sweeper *Sweeper, logger *slog.Logger) (*Scheduler, error) {
	loc := time.UTC
	if cfg.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load scheduler timezone: %w", err)
		}
	}

	cronLogger := cronLog{logger: logger}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	sched := &Scheduler{cron: c, sweeper: sweeper, logger: logger}

	if _, err := c.AddFunc(cfg.Schedule, sched.run); err != nil {
		return nil, fmt.Errorf("schedule conversion sweep %q: %w", cfg.Schedule, err)
	}

	return sched, nil
}

func (s *Scheduler) run() {
	//nolint:errcheck // the sweep logs its own outcome
	_, _ = s.sweeper.Sweep(context.Background(), TriggerCron)
}

// Run starts the cron loop and blocks until ctx is done, then waits for an
// in-flight sweep to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	s.logger.Info("conversion scheduler started", "next_run", s.next())

	<-ctx.Done()

	stopped := s.cron.Stop()
	<-stopped.Done()
	s.logger.Info("conversion scheduler stopped")
	return nil
}

func (s *Scheduler) next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// cronLog routes cron's internal logging into slog.
type cronLog struct {
	logger *slog.Logger
}

func (l cronLog) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLog) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
