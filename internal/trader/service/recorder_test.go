package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"momentum-trader/internal/entity"
	"momentum-trader/internal/trader/config"
	"momentum-trader/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSignalRepo struct {
	mu      sync.Mutex
	created []entity.Signal
}

func (m *memSignalRepo) Create(ctx context.Context, s *entity.Signal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, *s)
	return nil
}

func (m *memSignalRepo) FindLatest(ctx context.Context, limit int) ([]entity.Signal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.created[:min(limit, len(m.created))], nil
}

type memRejectionRepo struct {
	mu      sync.Mutex
	created []entity.RejectionRecord
}

func (m *memRejectionRepo) Create(ctx context.Context, r *entity.RejectionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, *r)
	return nil
}

func (m *memRejectionRepo) FindByCycle(ctx context.Context, cycleID string) ([]entity.RejectionRecord, error) {
	return nil, nil
}

type memPositionRepo struct {
	mu       sync.Mutex
	rows     map[string]entity.Position
	realized float64
	err      error
}

func (m *memPositionRepo) Upsert(ctx context.Context, p *entity.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.rows == nil {
		m.rows = make(map[string]entity.Position)
	}
	m.rows[p.ID] = *p
	return nil
}

func (m *memPositionRepo) FindOpen(ctx context.Context) ([]entity.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.Position
	for _, p := range m.rows {
		if p.Status == entity.PositionStatusOpen {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPositionRepo) FindByID(ctx context.Context, id string) (*entity.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memPositionRepo) SumRealizedPnL(ctx context.Context) (float64, error) {
	return m.realized, nil
}

type memEventRepo struct {
	mu      sync.Mutex
	created []entity.PositionEvent
}

func (m *memEventRepo) Create(ctx context.Context, e *entity.PositionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, *e)
	return nil
}

func (m *memEventRepo) FindRealizedSince(ctx context.Context, since time.Time) ([]entity.PositionEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.PositionEvent
	for _, e := range m.created {
		if e.PnLUSD != 0 && !e.CreatedAt.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memEventRepo) FindByPosition(ctx context.Context, positionID string) ([]entity.PositionEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.PositionEvent
	for _, e := range m.created {
		if e.PositionID == positionID {
			out = append(out, e)
		}
	}
	return out, nil
}

type memMetricRepo struct {
	mu      sync.Mutex
	created []entity.PortfolioMetric
}

func (m *memMetricRepo) Create(ctx context.Context, metric *entity.PortfolioMetric) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, *metric)
	return nil
}

func (m *memMetricRepo) FindLatest(ctx context.Context) (*entity.PortfolioMetric, error) {
	return nil, nil
}

type memRepos struct {
	signals    *memSignalRepo
	rejections *memRejectionRepo
	positions  *memPositionRepo
	events     *memEventRepo
	metrics    *memMetricRepo
}

func newMemRepos() memRepos {
	return memRepos{
		signals:    &memSignalRepo{},
		rejections: &memRejectionRepo{},
		positions:  &memPositionRepo{},
		events:     &memEventRepo{},
		metrics:    &memMetricRepo{},
	}
}

func (m memRepos) recorder(buffer int) Recorder {
	return NewRecorder(logger.NewNop(), m.signals, m.rejections, m.positions, m.events, m.metrics, buffer, time.Second)
}

func TestRecorderPersistsInOrder(t *testing.T) {
	repos := newMemRepos()
	rec := repos.recorder(16)
	rec.Start(context.Background())

	p := entity.Position{ID: "p1", Symbol: "SOLUSDT", Status: entity.PositionStatusOpen}
	rec.RecordSignal(entity.Signal{ID: "s1", Symbol: "SOLUSDT"})
	rec.RecordRejection(entity.RejectionRecord{SignalID: "s2", ReasonCode: entity.ReasonMaxPositionsReached})
	rec.RecordPosition(p, entity.PositionEvent{PositionID: "p1", Type: entity.PositionEventOpen})
	p.StopLoss = 145.30
	rec.RecordPosition(p, entity.PositionEvent{PositionID: "p1", Type: entity.PositionEventUpdate})
	rec.RecordMetric(entity.PortfolioMetric{OpenPositionCount: 1})
	rec.Stop()

	require.Len(t, repos.signals.created, 1)
	require.Len(t, repos.rejections.created, 1)
	assert.Equal(t, 145.30, repos.positions.rows["p1"].StopLoss)
	require.Len(t, repos.events.created, 2)
	assert.Equal(t, entity.PositionEventUpdate, repos.events.created[1].Type)
	assert.Len(t, repos.metrics.created, 1)
}

func TestRecorderFailureDoesNotBlock(t *testing.T) {
	repos := newMemRepos()
	repos.positions.err = errors.New("connection refused")
	rec := repos.recorder(4)
	rec.Start(context.Background())

	rec.RecordPosition(entity.Position{ID: "p1"}, entity.PositionEvent{PositionID: "p1", Type: entity.PositionEventOpen})
	rec.RecordSignal(entity.Signal{ID: "s1"})
	rec.Stop()

	assert.Empty(t, repos.events.created, "event is skipped when the position write fails")
	assert.Len(t, repos.signals.created, 1)
}

func TestRecorderDropsAfterStop(t *testing.T) {
	repos := newMemRepos()
	rec := repos.recorder(4)
	rec.Start(context.Background())
	rec.Stop()

	rec.RecordSignal(entity.Signal{ID: "late"})
	rec.Stop()
	assert.Empty(t, repos.signals.created)
}

func TestRestoreLedger(t *testing.T) {
	repos := newMemRepos()
	now := time.Now().UTC()
	repos.positions.rows = map[string]entity.Position{
		"p1": {ID: "p1", Symbol: "SOLUSDT", Direction: entity.DirectionLong, Status: entity.PositionStatusOpen,
			EntryPrice: 100, Size: 5, InitialSize: 5, StopLoss: 95, InitialStopLoss: 95},
		"p2": {ID: "p2", Symbol: "ETHUSDT", Status: entity.PositionStatusClosed},
	}
	repos.positions.realized = -120
	repos.events.created = []entity.PositionEvent{
		{PositionID: "p2", Type: entity.PositionEventClose, PnLUSD: -120, CreatedAt: now},
	}

	ledger := NewPortfolioLedger(config.DefaultTrading(), logger.NewNop())
	require.NoError(t, RestoreLedger(context.Background(), ledger, repos.positions, repos.events))

	open := ledger.OpenPositions()
	require.Len(t, open, 1)
	assert.Equal(t, "p1", open[0].ID)

	snap := ledger.Snapshot()
	assert.InDelta(t, -120, snap.RealizedPnLUSD, 1e-9)
	assert.InDelta(t, 10000-120, snap.TotalValue, 1e-9)
	assert.Less(t, snap.WeeklyPnLPct, 0.0)
}
