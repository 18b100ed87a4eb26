package main

import (
	"context"

	"github.com/sonicx222/arbitrage-coordinator/internal/config"
	"github.com/sonicx222/arbitrage-coordinator/internal/logging"
	"github.com/sonicx222/arbitrage-coordinator/internal/opportunity"
	"github.com/sonicx222/arbitrage-coordinator/internal/router"
	"github.com/sonicx222/arbitrage-coordinator/internal/stream"
	"github.com/sonicx222/arbitrage-coordinator/internal/stream/redisstream"
	"github.com/sonicx222/arbitrage-coordinator/internal/tracectx"
)

// readCount bounds how many entries a single ReadGroup call claims.
const readCount = 50

// consumerLoop is the external-to-the-core half of the pipeline: it reads
// the candidate-opportunity stream as a consumer group, decodes each
// entry's trace fields, and hands the raw wire map to the router. Router
// failures are recovered locally and never escape to this loop. Read errors
// are logged and the read is retried; only a failure to create the consumer
// group, or context cancellation, ends the loop and returns to main.
type consumerLoop struct {
	client    *redisstream.Client
	router    *router.Router
	streamKey string
	group     string
	consumer  string
	isLeader  bool
	log       logging.Logger
}

func newConsumerLoop(cfg config.Config, client *redisstream.Client, r *router.Router, log logging.Logger) *consumerLoop {
	return &consumerLoop{
		client:    client,
		router:    r,
		streamKey: cfg.CandidateStreamName,
		group:     cfg.ConsumerGroup,
		consumer:  cfg.InstanceID,
		isLeader:  cfg.IsLeader,
		log:       log,
	}
}

func (c *consumerLoop) run(ctx context.Context) error {
	if err := c.client.EnsureGroup(ctx, c.streamKey, c.group); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		messages, err := c.client.ReadGroup(ctx, c.group, c.consumer, c.streamKey, readCount)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Error("candidate stream read failed", logging.Fields{"error": err.Error()})
			continue
		}

		for _, m := range messages {
			c.handle(ctx, m)
		}

		if c.router.Counters().ConsecutiveExpired >= router.ConsecutiveExpiredWarnThreshold {
			c.skipBacklog(ctx)
		}
	}
}

func (c *consumerLoop) handle(ctx context.Context, m stream.Message) {
	var traceFields map[string]string
	if trace, ok := tracectx.FromFields(m.Fields); ok {
		traceFields = trace.Fields()
	}
	c.router.ProcessOpportunity(ctx, opportunity.Wire(m.Fields), c.isLeader, traceFields)
}

// skipBacklog implements the backlog-skip recovery maneuver: after a
// consecutive-expired streak crosses the warn threshold, advance the
// group's cursor to the stream's current end and reset the streak so the
// death spiral doesn't repeat on the very next message.
func (c *consumerLoop) skipBacklog(ctx context.Context) {
	if err := c.client.AdvanceToTail(ctx, c.streamKey, c.group); err != nil {
		c.log.Warn("backlog-skip failed", logging.Fields{"error": err.Error()})
		return
	}
	c.router.ResetConsecutiveExpired()
	c.log.Warn("advanced candidate stream cursor past expiration backlog", nil)
}
