package http

import (
	"net/http"

	"momentum-trader/internal/trader/dto"
	"momentum-trader/internal/trader/service"
	"momentum-trader/pkg/logger"

	"github.com/labstack/echo/v4"
)

// PortfolioHandler serves the read-only portfolio views.
type PortfolioHandler struct {
	dashboard service.DashboardService
	logger    *logger.Logger
}

// NewPortfolioHandler creates a new PortfolioHandler.
func NewPortfolioHandler(dashboard service.DashboardService, logger *logger.Logger) *PortfolioHandler {
	return &PortfolioHandler{dashboard: dashboard, logger: logger}
}

// RegisterRoutes registers the portfolio routes to the Echo group.
func (h *PortfolioHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/portfolio", h.GetPortfolio)
	g.GET("/breaker", h.GetBreaker)
	g.GET("/scan/latest", h.GetLatestScan)
}

// GetPortfolio godoc
// @Summary Get the portfolio snapshot
// @Description Current value, exposure, window P&L, risk level, open positions and breaker state
// @Tags portfolio
// @Produce  json
// @Success 200 {object} dto.PortfolioResponse
// @Router /portfolio [get]
func (h *PortfolioHandler) GetPortfolio(c echo.Context) error {
	ctx := c.Request().Context()
	return c.JSON(http.StatusOK, dto.PortfolioResponse{
		Snapshot:  h.dashboard.Portfolio(ctx),
		Positions: h.dashboard.OpenPositions(ctx),
		Breaker:   h.dashboard.Breaker(ctx),
	})
}

// GetBreaker godoc
// @Summary Get the loss breaker state
// @Tags portfolio
// @Produce  json
// @Success 200 {object} dto.BreakerStatus
// @Router /breaker [get]
func (h *PortfolioHandler) GetBreaker(c echo.Context) error {
	return c.JSON(http.StatusOK, h.dashboard.Breaker(c.Request().Context()))
}

// GetLatestScan godoc
// @Summary Get the latest scan cycle statistics
// @Tags scan
// @Produce  json
// @Success 200 {object} dto.CycleStats
// @Failure 404 {object} dto.ErrorResponse
// @Router /scan/latest [get]
func (h *PortfolioHandler) GetLatestScan(c echo.Context) error {
	stats := h.dashboard.LatestScan(c.Request().Context())
	if stats == nil {
		return c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "No scan cycle has run yet"})
	}
	return c.JSON(http.StatusOK, stats)
}
