package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"momentum-trader/internal/entity"
	"momentum-trader/internal/trader/dto"
	"momentum-trader/pkg/common"
	"momentum-trader/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDashboard struct {
	snapshot  dto.PortfolioSnapshot
	positions []entity.Position
	latest    *dto.CycleStats
	breaker   dto.BreakerStatus
	signals   []entity.Signal
	events    []entity.PositionEvent
	err       error
	limit     int
}

func (s *stubDashboard) Portfolio(context.Context) dto.PortfolioSnapshot { return s.snapshot }
func (s *stubDashboard) OpenPositions(context.Context) []entity.Position { return s.positions }
func (s *stubDashboard) LatestScan(context.Context) *dto.CycleStats { return s.latest }
func (s *stubDashboard) Breaker(context.Context) dto.BreakerStatus { return s.breaker }

func (s *stubDashboard) RecentSignals(ctx context.Context, limit int) ([]entity.Signal, error) {
	s.limit = limit
	return s.signals, s.err
}

func (s *stubDashboard) PositionHistory(ctx context.Context, positionID string) ([]entity.PositionEvent, error) {
	return s.events, s.err
}

type stubMonitor struct {
	closedID     string
	closedReason entity.ExitReason
	err          error
}

func (s *stubMonitor) RunCycle(context.Context) error { return nil }
func (s *stubMonitor) ReviewPositions(context.Context) {}
func (s *stubMonitor) RecordPortfolioMetric(context.Context) {}
func (s *stubMonitor) ResetWindows(context.Context) {}

func (s *stubMonitor) ClosePosition(ctx context.Context, id string, reason entity.ExitReason) (*entity.Position, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.closedID, s.closedReason = id, reason
	return &entity.Position{ID: id, Status: entity.PositionStatusClosed, ExitReason: reason}, nil
}

func serve(t *testing.T, dash *stubDashboard, mon *stubMonitor, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := NewServer(dash, mon, logger.NewNop())
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestGetPortfolio(t *testing.T) {
	dash := &stubDashboard{
		snapshot:  dto.PortfolioSnapshot{TotalValue: 10250, RiskLevel: "LOW"},
		positions: []entity.Position{{ID: "p1", Symbol: "SOLUSDT"}},
		breaker:   dto.BreakerStatus{Halted: false},
	}
	rec := serve(t, dash, &stubMonitor{}, http.MethodGet, "/api/v1/portfolio", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got dto.PortfolioResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 10250.0, got.Snapshot.TotalValue)
	require.Len(t, got.Positions, 1)
	assert.Equal(t, "SOLUSDT", got.Positions[0].Symbol)
}

func TestGetLatestScanBeforeFirstCycle(t *testing.T) {
	rec := serve(t, &stubDashboard{}, &stubMonitor{}, http.MethodGet, "/api/v1/scan/latest", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClosePosition(t *testing.T) {
	mon := &stubMonitor{}
	rec := serve(t, &stubDashboard{}, mon, http.MethodPost, "/api/v1/positions/p1/close", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "p1", mon.closedID)
	assert.Equal(t, entity.ExitReasonManual, mon.closedReason)

	rec = serve(t, &stubDashboard{}, mon, http.MethodPost, "/api/v1/positions/p2/close", `{"reason":"confidence_drop"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, entity.ExitReasonConfidenceDrop, mon.closedReason)

	rec = serve(t, &stubDashboard{}, mon, http.MethodPost, "/api/v1/positions/p3/close", `{"reason":"STOP_LOSS"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClosePositionErrors(t *testing.T) {
	rec := serve(t, &stubDashboard{}, &stubMonitor{err: common.ErrPositionNotFound}, http.MethodPost, "/api/v1/positions/gone/close", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, &stubDashboard{}, &stubMonitor{err: errors.New("boom")}, http.MethodPost, "/api/v1/positions/p1/close", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetSignalsLimit(t *testing.T) {
	dash := &stubDashboard{signals: []entity.Signal{{ID: "s1"}}}

	rec := serve(t, dash, &stubMonitor{}, http.MethodGet, "/api/v1/signals", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultSignalLimit, dash.limit)

	rec = serve(t, dash, &stubMonitor{}, http.MethodGet, "/api/v1/signals?limit=9999", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, maxSignalLimit, dash.limit)

	rec = serve(t, dash, &stubMonitor{}, http.MethodGet, "/api/v1/signals?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPositionEventsFailure(t *testing.T) {
	rec := serve(t, &stubDashboard{err: errors.New("db down")}, &stubMonitor{}, http.MethodGet, "/api/v1/positions/p1/events", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	rec := serve(t, &stubDashboard{}, &stubMonitor{}, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, &stubDashboard{}, &stubMonitor{}, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
