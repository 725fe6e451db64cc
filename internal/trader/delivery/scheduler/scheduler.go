package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"momentum-trader/internal/trader/config"
	"momentum-trader/internal/trader/service"
	"momentum-trader/pkg/logger"
	"momentum-trader/pkg/utils"

	"github.com/robfig/cron/v3"
)

// Runner drives the trading loops: scan and monitor cycles on their own
// cadence, the risk consumer on the signal queue, and cron jobs for review,
// metrics and window resets.
type Runner struct {
	cfg     *config.Config
	scan    service.ScanService
	trade   service.TradeService
	monitor service.MonitorService
	logger  *logger.Logger
	cron    *cron.Cron

	stopOnce sync.Once
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewRunner creates a new Runner.
func NewRunner(
	cfg *config.Config,
	scan service.ScanService,
	trade service.TradeService,
	monitor service.MonitorService,
	log *logger.Logger,
) *Runner {
	cronLog := log.CronLogger()
	return &Runner{
		cfg:     cfg,
		scan:    scan,
		trade:   trade,
		monitor: monitor,
		logger:  log,
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		stopChan: make(chan struct{}),
	}
}

// Start registers every loop and job. It fails only on an invalid cron spec.
func (r *Runner) Start(ctx context.Context) error {
	s := r.cfg.Schedule

	jobs := []struct {
		name string
		spec string
		fn   func(ctx context.Context)
	}{
		{"position-review", s.ReviewSpec, r.monitor.ReviewPositions},
		{"portfolio-metric", s.MetricsSpec, r.monitor.RecordPortfolioMetric},
		{"window-reset", s.WindowResetSpec, r.monitor.ResetWindows},
	}
	for _, job := range jobs {
		if err := r.RegisterCronHandler(ctx, job.fn, job.spec, s.CycleTimeout, job.name); err != nil {
			return err
		}
	}

	r.RegisterCycleLoop(ctx, func(ctx context.Context) error {
		_, err := r.scan.RunCycle(ctx)
		return err
	}, s.ScanInterval, s.CycleTimeout, "scan")
	r.RegisterCycleLoop(ctx, r.monitor.RunCycle, s.MonitorInterval, s.CycleTimeout, "monitor")

	r.RegisterStreamHandler(ctx, r.trade.ProcessTask, r.cfg.Queue.BlockTimeout+s.CycleTimeout, "risk-consumer")
	r.RegisterTickerHandler(ctx, r.trade.ProcessRetries, r.cfg.Queue.ReclaimInterval, s.CycleTimeout, "risk-consumer-retry")

	r.cron.Start()
	r.logger.Info("Trading loops started",
		logger.DurationField("scan_interval", s.ScanInterval),
		logger.DurationField("monitor_interval", s.MonitorInterval))
	return nil
}

// RegisterCycleLoop runs fn immediately and then every interval. A failed
// cycle is logged and the loop waits the error backoff instead.
func (r *Runner) RegisterCycleLoop(ctx context.Context, fn func(ctx context.Context) error, interval, timeout time.Duration, name string) {
	r.logger.Info("Registering cycle loop",
		logger.Field("name", name),
		logger.Field("interval", interval),
		logger.Field("timeout", timeout))
	r.wg.Add(1)
	utils.GoSafe(func() {
		defer r.wg.Done()
		timer := time.NewTimer(0)
		defer timer.Stop()

		for {
			select {
			case <-timer.C:
				ctxTimeout, cancel := context.WithTimeout(ctx, timeout)
				err := fn(ctxTimeout)
				cancel()

				wait := interval
				if err != nil {
					r.logger.Error("Cycle failed", logger.StringField("name", name), logger.ErrorField(err))
					if r.cfg.Schedule.ErrorBackoff > 0 {
						wait = r.cfg.Schedule.ErrorBackoff
					}
				}
				timer.Reset(wait)
			case <-ctx.Done():
				r.logger.Info("Cycle loop stopping due to context cancellation", logger.Field("name", name))
				return
			case <-r.stopChan:
				r.logger.Info("Cycle loop stopping", logger.Field("name", name))
				return
			}
		}
	})
}

// RegisterStreamHandler calls fn back to back; fn is expected to block on its
// source until work arrives or its timeout passes.
func (r *Runner) RegisterStreamHandler(ctx context.Context, fn func(ctx context.Context), timeout time.Duration, name string) {
	r.logger.Info("Registering stream handler", logger.Field("name", name))
	r.wg.Add(1)
	utils.GoSafe(func() {
		defer r.wg.Done()
		for {
			select {
			case <-ctx.Done():
				r.logger.Info("Stream handler stopping due to context cancellation", logger.Field("name", name))
				return
			case <-r.stopChan:
				r.logger.Info("Stream handler stopping", logger.Field("name", name))
				return
			default:
				ctxTimeout, cancel := context.WithTimeout(ctx, timeout)
				fn(ctxTimeout)
				cancel()
			}
		}
	})
}

func (r *Runner) RegisterTickerHandler(ctx context.Context, fn func(ctx context.Context), interval time.Duration, timeout time.Duration, name string) {
	if interval <= 0 {
		return
	}
	r.logger.Info("Registering ticker handler",
		logger.Field("name", name),
		logger.Field("interval", interval),
		logger.Field("timeout", timeout))
	r.wg.Add(1)
	utils.GoSafe(func() {
		defer r.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctxTimeout, cancel := context.WithTimeout(ctx, timeout)
				fn(ctxTimeout)
				cancel()
			case <-ctx.Done():
				r.logger.Info("Ticker handler stopping due to context cancellation", logger.Field("name", name))
				return
			case <-r.stopChan:
				r.logger.Info("Ticker handler stopping", logger.Field("name", name))
				return
			}
		}
	})
}

// RegisterCronHandler schedules fn on a cron spec evaluated in UTC.
func (r *Runner) RegisterCronHandler(ctx context.Context, fn func(ctx context.Context), spec string, timeout time.Duration, name string) error {
	_, err := r.cron.AddFunc(spec, func() {
		ctxTimeout, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		fn(ctxTimeout)
	})
	if err != nil {
		return fmt.Errorf("invalid cron spec %q for %s: %w", spec, name, err)
	}
	r.logger.Info("Registered cron handler", logger.Field("name", name), logger.Field("spec", spec))
	return nil
}

// Stop halts every loop and waits for running cron jobs to finish.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopChan)
		<-r.cron.Stop().Done()
		r.wg.Wait()
		r.logger.Info("Trading loops stopped")
	})
}
