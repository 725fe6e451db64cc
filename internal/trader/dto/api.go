package dto

import "momentum-trader/internal/entity"

// ErrorResponse represents a generic error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ClosePositionRequest is the optional body of a manual close.
type ClosePositionRequest struct {
	Reason string `json:"reason" example:"MANUAL"`
}

// PortfolioResponse is the dashboard view of the book.
type PortfolioResponse struct {
	Snapshot  PortfolioSnapshot `json:"snapshot"`
	Positions []entity.Position `json:"positions"`
	Breaker   BreakerStatus     `json:"breaker"`
}
