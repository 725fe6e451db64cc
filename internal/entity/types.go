package entity

// Direction is the side of a mover, signal or position.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Sign returns +1 for LONG and -1 for SHORT.
func (d Direction) Sign() float64 {
	if d == DirectionShort {
		return -1
	}
	return 1
}

func (d Direction) Valid() bool {
	return d == DirectionLong || d == DirectionShort
}

// LifecyclePhase is the stop-management state of an open position.
type LifecyclePhase string

const (
	PhaseInitial   LifecyclePhase = "INITIAL"
	PhaseBreakeven LifecyclePhase = "BREAKEVEN"
	PhaseTrailing  LifecyclePhase = "TRAILING"
)

// rank orders phases so a position never moves backwards.
func (p LifecyclePhase) rank() int {
	switch p {
	case PhaseBreakeven:
		return 1
	case PhaseTrailing:
		return 2
	default:
		return 0
	}
}

// Before reports whether p comes earlier in the lifecycle than other.
func (p LifecyclePhase) Before(other LifecyclePhase) bool {
	return p.rank() < other.rank()
}

type PositionStatus string

const (
	PositionStatusOpen   PositionStatus = "OPEN"
	PositionStatusClosed PositionStatus = "CLOSED"
)

type ExitReason string

const (
	ExitReasonStopLoss       ExitReason = "STOP_LOSS"
	ExitReasonBreakevenStop  ExitReason = "BREAKEVEN_STOP"
	ExitReasonTrailingStop   ExitReason = "TRAILING_STOP"
	ExitReasonTP1Partial     ExitReason = "TP1_PARTIAL"
	ExitReasonManual         ExitReason = "MANUAL"
	ExitReasonConfidenceDrop ExitReason = "CONFIDENCE_DROP"
)

// DecisionKind is the outcome of the risk gate for a signal.
type DecisionKind string

const (
	DecisionApprove DecisionKind = "APPROVE"
	DecisionReject  DecisionKind = "REJECT"
	DecisionModify  DecisionKind = "MODIFY"
)

// ReasonCode identifies why the risk gate rejected a signal.
type ReasonCode string

const (
	ReasonConfidenceBelowThreshold ReasonCode = "CONFIDENCE_BELOW_THRESHOLD"
	ReasonMaxPositionsReached      ReasonCode = "MAX_POSITIONS_REACHED"
	ReasonExposureLimitExceeded    ReasonCode = "EXPOSURE_LIMIT_EXCEEDED"
	ReasonDailyLossLimit           ReasonCode = "DAILY_LOSS_LIMIT"
	ReasonWeeklyLossLimit          ReasonCode = "WEEKLY_LOSS_LIMIT"
	ReasonCorrelationGroupLimit    ReasonCode = "CORRELATION_GROUP_LIMIT"
	ReasonPositionAlreadyOpen      ReasonCode = "POSITION_ALREADY_OPEN"
)
