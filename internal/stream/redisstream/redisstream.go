// Package redisstream implements stream.Client on top of Redis Streams via
// go-redis/v9. No example in the retrieval pack imports a Redis client
// directly, so this dependency is named rather than grounded: it is the
// standard Go client with first-class Streams support (XADD/XREADGROUP/
// XGROUP), the natural fit for the ioredis-shaped upstream system this
// coordinator's stream layer is modeled on.
package redisstream

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sonicx222/arbitrage-coordinator/internal/stream"
)

// Client adapts a *redis.Client to stream.Client.
type Client struct {
	rdb *redis.Client
}

// New wraps an existing *redis.Client.
func New(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// NewFromURL parses url with redis.ParseURL (redis:// or rediss://; a
// redis+sentinel:// URL is not translated and fails to parse) and builds a
// client for it.
func NewFromURL(url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redisstream: parse REDIS_URL: %w", err)
	}
	return &Client{rdb: redis.NewClient(opts)}, nil
}

// Ping verifies connectivity with a 5s timeout, matching the core's
// read-only-health-operation timeout convention.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) XAdd(ctx context.Context, streamName string, fields map[string]string, opts stream.AddOptions) (string, error) {
	args := &redis.XAddArgs{
		Stream: streamName,
		Values: toValues(fields),
		ID:     "*",
	}
	if opts.MaxLen > 0 {
		args.MaxLen = opts.MaxLen
		args.Approx = opts.Approximate
	}
	return c.rdb.XAdd(ctx, args).Result()
}

func (c *Client) XAddWithLimit(ctx context.Context, streamName string, fields map[string]string) (string, error) {
	return c.XAdd(ctx, streamName, fields, stream.AddOptions{MaxLen: defaultMaxLenFor(streamName), Approximate: true})
}

func (c *Client) ReadGroup(ctx context.Context, group, consumer, streamName string, count int64) ([]stream.Message, error) {
	res, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{streamName, ">"},
		Count:    count,
		Block:    0,
	}).Result()
	if err != nil {
		return nil, err
	}

	var out []stream.Message
	for _, s := range res {
		for _, m := range s.Messages {
			out = append(out, stream.Message{ID: m.ID, Fields: toStringMap(m.Values)})
		}
	}
	return out, nil
}

// EnsureGroup creates streamName's consumer group if it doesn't already
// exist, starting from the beginning of the stream.
func (c *Client) EnsureGroup(ctx context.Context, streamName, group string) error {
	err := c.rdb.XGroupCreateMkStream(ctx, streamName, group, "0").Err()
	if err != nil && !isBusyGroupErr(err) {
		return err
	}
	return nil
}

// AdvanceToTail sets group's cursor on streamName to the current end ("$"),
// implementing the backlog-skip maneuver:
// XGROUP SETID with "$" skips everything currently queued.
func (c *Client) AdvanceToTail(ctx context.Context, streamName, group string) error {
	return c.rdb.XGroupSetID(ctx, streamName, group, "$").Err()
}

func isBusyGroupErr(err error) bool {
	return err != nil && err.Error() == "BUSYGROUP Consumer Group name already exists"
}

// defaultMaxLenFor holds the per-stream MAXLEN defaults.
func defaultMaxLenFor(streamName string) int64 {
	switch streamName {
	case "stream:execution-requests":
		return 5000
	default:
		return 10000
	}
}

func toValues(fields map[string]string) map[string]interface{} {
	values := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		values[k] = v
	}
	return values
}

func toStringMap(values map[string]interface{}) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		if s, ok := v.(string); ok {
			out[k] = s
		} else {
			out[k] = fmt.Sprintf("%v", v)
		}
	}
	return out
}
