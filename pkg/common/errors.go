package common

import "errors"

var (
	// ErrDataUnavailable marks a candle or price fetch that failed for a single symbol.
	ErrDataUnavailable = errors.New("market data unavailable")
	// ErrOracleFailure marks a timeout, malformed output or missing required field from the analysis oracle.
	ErrOracleFailure = errors.New("analysis oracle failure")
	// ErrNoTrade is returned by the oracle when it declines to propose a trade.
	ErrNoTrade = errors.New("no trade")
	// ErrInvalidConfig is fatal at startup.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrPositionNotFound is returned when an operation targets a position that is not open.
	ErrPositionNotFound = errors.New("position not found")
)
