package domain

// RouteOutcome names the single side effect a routed notification produced.
type RouteOutcome string

const (
	// OutcomeSettled means the position was unlevered and its collateral
	// was bridged out immediately. Nothing was registered for tracking.
	OutcomeSettled RouteOutcome = "settled"
	// OutcomeTracked means the position is leveraged and now sits in the
	// in-memory registry awaiting liquidation checks.
	OutcomeTracked RouteOutcome = "tracked"
	// OutcomeRejected means the notification failed validation or
	// duplicated an already-tracked position and produced no effect.
	OutcomeRejected RouteOutcome = "rejected"
	// OutcomeSettlementFailed means the spot bridge attempt errored. The
	// position is not tracked and the attempt is not retried.
	OutcomeSettlementFailed RouteOutcome = "settlement_failed"
)

// RouteResult reports what the trade router did with a notification.
type RouteResult struct {
	Outcome    RouteOutcome `json:"outcome"`
	PositionID string       `json:"position_id"`
	TxRef      string       `json:"tx_ref,omitempty"`
	Reason     string       `json:"reason,omitempty"`
}
