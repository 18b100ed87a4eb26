package router

// Alert types the router emits on forward-path failures.
const (
	AlertExecutionCircuitOpen  = "EXECUTION_CIRCUIT_OPEN"
	AlertExecutionForwardFailed = "EXECUTION_FORWARD_FAILED"
)

// Severity levels carried on an Alert.
const (
	SeverityHigh = "high"
)

// Alert is an operator-facing notification about the forward path.
type Alert struct {
	Type          string
	Severity      string
	OpportunityID string
	Reason        string
}

func (r *Router) emitAlert(a Alert) {
	select {
	case r.Alerts <- a:
	default:
		r.log.Warn("dropping alert, channel full", nil)
	}
}
