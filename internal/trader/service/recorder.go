package service

import (
	"context"
	"sync"
	"time"

	"momentum-trader/internal/entity"
	"momentum-trader/internal/trader/repository"
	"momentum-trader/pkg/logger"
	"momentum-trader/pkg/utils"

	"go.uber.org/zap"
)

// Recorder persists audit records off the trading path. Writes are queued and
// applied by a background worker; a full queue or a failed write is logged and
// counted, never returned to the caller.
type Recorder interface {
	Start(ctx context.Context)
	Stop()
	RecordSignal(signal entity.Signal)
	RecordRejection(rejection entity.RejectionRecord)
	RecordPosition(position entity.Position, event entity.PositionEvent)
	RecordMetric(metric entity.PortfolioMetric)
}

type recordJob struct {
	record string
	fields []zap.Field
	write  func(ctx context.Context) error
}

type recorder struct {
	log           *logger.Logger
	signalRepo    repository.SignalRepository
	rejectionRepo repository.RejectionRepository
	positionRepo  repository.PositionRepository
	eventRepo     repository.PositionEventRepository
	metricRepo    repository.PortfolioMetricRepository
	timeout       time.Duration

	mu     sync.RWMutex
	closed bool
	jobs   chan recordJob
	wg     sync.WaitGroup
}

func NewRecorder(log *logger.Logger,
	signalRepo repository.SignalRepository,
	rejectionRepo repository.RejectionRepository,
	positionRepo repository.PositionRepository,
	eventRepo repository.PositionEventRepository,
	metricRepo repository.PortfolioMetricRepository,
	bufferSize int,
	timeout time.Duration) Recorder {
	return &recorder{
		log:           log,
		signalRepo:    signalRepo,
		rejectionRepo: rejectionRepo,
		positionRepo:  positionRepo,
		eventRepo:     eventRepo,
		metricRepo:    metricRepo,
		timeout:       timeout,
		jobs:          make(chan recordJob, bufferSize),
	}
}

func (r *recorder) Start(ctx context.Context) {
	base := context.WithoutCancel(ctx)
	r.wg.Add(1)
	utils.GoSafe(func() {
		defer r.wg.Done()
		for job := range r.jobs {
			jobCtx, cancel := context.WithTimeout(base, r.timeout)
			err := job.write(jobCtx)
			cancel()
			if err != nil {
				PersistenceFailures.WithLabelValues(job.record).Inc()
				r.log.Error("Failed to persist record", append(job.fields, logger.StringField("record", job.record), logger.ErrorField(err))...)
			}
		}
	})
}

// Stop drains queued writes and waits for the worker to exit.
func (r *recorder) Stop() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.jobs)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *recorder) enqueue(job recordJob) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		PersistenceFailures.WithLabelValues(job.record).Inc()
		r.log.Warn("Recorder stopped, dropping record", append(job.fields, logger.StringField("record", job.record))...)
		return
	}
	select {
	case r.jobs <- job:
	default:
		PersistenceFailures.WithLabelValues(job.record).Inc()
		r.log.Warn("Recorder backlog full, dropping record", append(job.fields, logger.StringField("record", job.record))...)
	}
}

func (r *recorder) RecordSignal(signal entity.Signal) {
	r.enqueue(recordJob{
		record: "signal",
		fields: []zap.Field{logger.StringField("symbol", signal.Symbol), logger.StringField("signal_id", signal.ID)},
		write: func(ctx context.Context) error {
			return r.signalRepo.Create(ctx, &signal)
		},
	})
}

func (r *recorder) RecordRejection(rejection entity.RejectionRecord) {
	r.enqueue(recordJob{
		record: "rejection",
		fields: []zap.Field{logger.StringField("symbol", rejection.Symbol), logger.StringField("reason", string(rejection.ReasonCode))},
		write: func(ctx context.Context) error {
			return r.rejectionRepo.Create(ctx, &rejection)
		},
	})
}

// RecordPosition upserts the position row, then appends the event.
func (r *recorder) RecordPosition(position entity.Position, event entity.PositionEvent) {
	r.enqueue(recordJob{
		record: "position",
		fields: []zap.Field{logger.StringField("position_id", position.ID), logger.StringField("event", string(event.Type))},
		write: func(ctx context.Context) error {
			if err := r.positionRepo.Upsert(ctx, &position); err != nil {
				return err
			}
			return r.eventRepo.Create(ctx, &event)
		},
	})
}

func (r *recorder) RecordMetric(metric entity.PortfolioMetric) {
	r.enqueue(recordJob{
		record: "portfolio_metric",
		write: func(ctx context.Context) error {
			return r.metricRepo.Create(ctx, &metric)
		},
	})
}
