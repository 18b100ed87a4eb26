// Package stream defines the narrow StreamClient boundary the core depends
// on and provides a local file-based fallback for when the real stream is
// unreachable. The concrete transport (internal/stream/redisstream) is
// deliberately kept outside the packages that consume this interface —
// core components depend only on Client, never on redis directly; the
// stream transport itself is implemented one layer out.
package stream

import "context"

// AddOptions controls an XAdd call's trimming behavior.
type AddOptions struct {
	// MaxLen caps the stream length. Zero means unbounded.
	MaxLen int64
	// Approximate requests MAXLEN ~ trimming instead of exact trimming.
	Approximate bool
}

// Client is the narrow surface the core depends on for the downstream
// streams (execution-requests, forwarding-dlq, opportunities).
type Client interface {
	// XAdd appends fields to stream under an auto-generated id ("*"),
	// returning the assigned message id.
	XAdd(ctx context.Context, streamName string, fields map[string]string, opts AddOptions) (string, error)

	// XAddWithLimit is a variant that applies the stream's own built-in
	// MAXLEN, without the caller specifying one per call.
	XAddWithLimit(ctx context.Context, streamName string, fields map[string]string) (string, error)

	// ReadGroup performs a consumer-group read, external to the core's own
	// correctness contracts (consumed by the surrounding service, not by
	// Router/Engine/Publisher directly).
	ReadGroup(ctx context.Context, group, consumer, streamName string, count int64) ([]Message, error)
}

// Message is one consumer-group read result.
type Message struct {
	ID     string
	Fields map[string]string
}
