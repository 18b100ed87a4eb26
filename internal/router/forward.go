package router

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/sonicx222/arbitrage-coordinator/internal/logging"
	"github.com/sonicx222/arbitrage-coordinator/internal/opportunity"
	"github.com/sonicx222/arbitrage-coordinator/internal/stream"
)

// forwardToExecutionEngine attempts to deliver o to the execution-requests
// stream with bounded retry, a startup grace period, and circuit-breaker
// gating.
func (r *Router) forwardToExecutionEngine(ctx context.Context, o *opportunity.Opportunity, traceContext map[string]string) {
	if r.client == nil {
		r.log.Warn("forward skipped, no stream client configured", logging.Fields{"id": o.ID})
		return
	}

	now := opportunity.NowMs()
	if now-r.createdAtMs < r.startupGracePeriodMs() {
		r.log.Debug("deferring forward during startup grace period", logging.Fields{"id": o.ID})
		return
	}

	if !r.breaker.Allow() {
		r.incrementDropped()
		r.writeDLQ(ctx, o, "Circuit breaker open")
		r.recordAudit(ctx, o, "circuit_open", "Circuit breaker open")
		return
	}

	if o.PipelineTimestamps == nil {
		o.PipelineTimestamps = make(map[string]int64)
	}
	o.PipelineTimestamps["coordinatorAt"] = now
	o.PipelineTimestamps["forwardedAt"] = now

	wire := o.ToWire(now)
	wire["forwardedBy"] = r.cfg.InstanceID
	wire["forwardedAt"] = formatInt(now)
	for k, v := range traceContext {
		wire[k] = v
	}

	maxRetries := r.maxRetries()
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if r.shuttingDown.Load() {
			r.incrementDropped()
			return
		}

		_, err := r.client.XAdd(ctx, r.cfg.ExecutionRequestsStream, wire, stream.AddOptions{
			MaxLen:      r.cfg.ExecutionStreamMaxLen,
			Approximate: true,
		})
		if err == nil {
			if recovered := r.breaker.RecordSuccess(); recovered {
				r.log.Info("execution forward recovered", logging.Fields{"id": o.ID})
			}
			r.mu.Lock()
			r.counters.TotalExecutions++
			r.mu.Unlock()
			r.recordAudit(ctx, o, "forwarded", "")
			return
		}

		lastErr = err
		justOpened := r.breaker.RecordFailure()
		if justOpened {
			r.emitAlert(Alert{Type: AlertExecutionCircuitOpen, Severity: SeverityHigh, OpportunityID: o.ID, Reason: err.Error()})
			break
		}
		if r.breaker.IsOpen() {
			break
		}

		delay := time.Duration(r.retryBaseDelayMs()) * time.Millisecond * time.Duration(1<<uint(attempt))
		select {
		case <-ctx.Done():
			r.incrementDropped()
			return
		case <-time.After(delay):
		}
	}

	r.incrementDropped()
	reason := "forward retries exhausted"
	if lastErr != nil {
		reason = lastErr.Error()
	}
	r.log.Error("execution forward failed after retries", logging.Fields{"id": o.ID, "error": reason})
	r.writeDLQ(ctx, o, reason)
	r.recordAudit(ctx, o, "retry_exhausted", reason)

	if !r.breaker.IsOpen() {
		r.emitAlert(Alert{Type: AlertExecutionForwardFailed, Severity: SeverityHigh, OpportunityID: o.ID, Reason: reason})
	}
}

// recordAudit forwards a forward-outcome to the optional audit sink. A nil
// sink is a no-op.
func (r *Router) recordAudit(ctx context.Context, o *opportunity.Opportunity, outcome, reason string) {
	if r.audit == nil {
		return
	}
	r.audit.RecordForward(ctx, o, outcome, reason)
}

func (r *Router) incrementDropped() {
	r.mu.Lock()
	r.counters.OpportunitiesDropped++
	r.mu.Unlock()
}

func (r *Router) startupGracePeriodMs() int64 {
	if r.cfg.StartupGracePeriodMs <= 0 {
		return 15000
	}
	return r.cfg.StartupGracePeriodMs
}

func (r *Router) maxRetries() int {
	if r.cfg.MaxRetries <= 0 {
		return 3
	}
	return r.cfg.MaxRetries
}

func (r *Router) retryBaseDelayMs() int64 {
	if r.cfg.RetryBaseDelayMs <= 0 {
		return 10
	}
	return r.cfg.RetryBaseDelayMs
}

// dlqRecord is the forwarding-dlq stream schema.
type dlqRecord struct {
	OpportunityID string `json:"opportunityId"`
	OriginalData  string `json:"originalData"`
	Error         string `json:"error"`
	FailedAt      int64  `json:"failedAt"`
	Service       string `json:"service"`
	InstanceID    string `json:"instanceId"`
	TargetStream  string `json:"targetStream"`
}

// writeDLQ writes a forwarding failure to the DLQ stream, falling back to a
// local append-only file when the stream write itself fails.
func (r *Router) writeDLQ(ctx context.Context, o *opportunity.Opportunity, reason string) {
	now := opportunity.NowMs()
	wire := o.ToWire(now)
	originalData, err := json.Marshal(wire)
	if err != nil {
		originalData = []byte("{}")
	}

	rec := dlqRecord{
		OpportunityID: o.ID,
		OriginalData:  string(originalData),
		Error:         reason,
		FailedAt:      now,
		Service:       "opportunity-router",
		InstanceID:    r.cfg.InstanceID,
		TargetStream:  r.cfg.ExecutionRequestsStream,
	}

	if r.client != nil {
		fields := map[string]string{
			"opportunityId": rec.OpportunityID,
			"originalData":  rec.OriginalData,
			"error":         rec.Error,
			"failedAt":      formatInt(rec.FailedAt),
			"service":       rec.Service,
			"instanceId":    rec.InstanceID,
			"targetStream":  rec.TargetStream,
		}
		if _, err := r.client.XAddWithLimit(ctx, r.cfg.DLQStream, fields); err == nil {
			return
		}
	}

	if err := r.dlq.Write(rec); err != nil {
		r.log.Error("dlq fallback write failed, giving up", logging.Fields{"id": o.ID, "error": err.Error()})
	}
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}
