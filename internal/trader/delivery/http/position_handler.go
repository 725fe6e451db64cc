package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"momentum-trader/internal/entity"
	"momentum-trader/internal/trader/dto"
	"momentum-trader/internal/trader/service"
	"momentum-trader/pkg/common"
	"momentum-trader/pkg/logger"

	"github.com/labstack/echo/v4"
)

const (
	defaultSignalLimit = 50
	maxSignalLimit     = 500
)

// PositionHandler handles HTTP requests for positions and signals.
type PositionHandler struct {
	dashboard service.DashboardService
	monitor   service.MonitorService
	logger    *logger.Logger
}

// NewPositionHandler creates a new PositionHandler.
func NewPositionHandler(dashboard service.DashboardService, monitor service.MonitorService, logger *logger.Logger) *PositionHandler {
	return &PositionHandler{dashboard: dashboard, monitor: monitor, logger: logger}
}

// RegisterRoutes registers the position and signal routes to the Echo group.
func (h *PositionHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/positions", h.GetOpenPositions)
	g.GET("/positions/:id/events", h.GetPositionEvents)
	g.POST("/positions/:id/close", h.ClosePosition)
	g.GET("/signals", h.GetSignals)
}

// GetOpenPositions godoc
// @Summary Get open positions
// @Tags positions
// @Produce  json
// @Success 200 {array} entity.Position
// @Router /positions [get]
func (h *PositionHandler) GetOpenPositions(c echo.Context) error {
	return c.JSON(http.StatusOK, h.dashboard.OpenPositions(c.Request().Context()))
}

// GetPositionEvents godoc
// @Summary Get the event journal of a position
// @Tags positions
// @Produce  json
// @Param   id  path    string true    "Position ID"
// @Success 200 {array} entity.PositionEvent
// @Failure 500 {object} dto.ErrorResponse
// @Router /positions/{id}/events [get]
func (h *PositionHandler) GetPositionEvents(c echo.Context) error {
	events, err := h.dashboard.PositionHistory(c.Request().Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("Failed to get position events", logger.ErrorField(err), logger.StringField("position_id", c.Param("id")))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get position events"})
	}
	return c.JSON(http.StatusOK, events)
}

// ClosePosition godoc
// @Summary Close an open position at the current price
// @Tags positions
// @Accept  json
// @Produce  json
// @Param   id  path    string true    "Position ID"
// @Param   request  body    dto.ClosePositionRequest   false    "Exit reason, MANUAL when omitted"
// @Success 200 {object} entity.Position
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /positions/{id}/close [post]
func (h *PositionHandler) ClosePosition(c echo.Context) error {
	var req dto.ClosePositionRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request payload"})
		}
	}

	reason := entity.ExitReasonManual
	switch strings.ToUpper(req.Reason) {
	case "", string(entity.ExitReasonManual):
	case string(entity.ExitReasonConfidenceDrop):
		reason = entity.ExitReasonConfidenceDrop
	default:
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "reason must be MANUAL or CONFIDENCE_DROP"})
	}

	closed, err := h.monitor.ClosePosition(c.Request().Context(), c.Param("id"), reason)
	if err != nil {
		if errors.Is(err, common.ErrPositionNotFound) {
			return c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
		}
		h.logger.Error("Failed to close position", logger.ErrorField(err), logger.StringField("position_id", c.Param("id")))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to close position"})
	}
	return c.JSON(http.StatusOK, closed)
}

// GetSignals godoc
// @Summary Get the most recent signals with their risk decisions
// @Tags signals
// @Produce  json
// @Param   limit  query    int false    "Number of signals (default 50, max 500)"
// @Success 200 {array} entity.Signal
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /signals [get]
func (h *PositionHandler) GetSignals(c echo.Context) error {
	limit := defaultSignalLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid limit"})
		}
		limit = min(n, maxSignalLimit)
	}

	signals, err := h.dashboard.RecentSignals(c.Request().Context(), limit)
	if err != nil {
		h.logger.Error("Failed to get signals", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get signals"})
	}
	return c.JSON(http.StatusOK, signals)
}
