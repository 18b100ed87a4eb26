// Package tracectx builds the _trace_* fields threaded through opportunities
// as they move from detection through the router to the execution engine.
//
// The id-generation technique is grounded on the reference implementation's internal/idhash
// package: instead of hashing a set of fields deterministically, a trace
// needs fresh, unpredictable ids per hop, so the same "fixed-width id from
// bytes, hex-encoded" shape is kept but the bytes come from crypto/rand
// instead of sha256.Sum256.
package tracectx

import (
	"crypto/rand"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/trace"
)

const (
	fieldTraceID      = "_trace_traceId"
	fieldSpanID       = "_trace_spanId"
	fieldParentSpanID = "_trace_parentSpanId"
	fieldServiceName  = "_trace_serviceName"
	fieldTimestamp    = "_trace_timestamp"
)

// Context is a single hop's worth of trace identity.
type Context struct {
	TraceID      trace.TraceID
	SpanID       trace.SpanID
	ParentSpanID trace.SpanID // zero value ([8]byte{}) means "no parent"
	ServiceName  string
	Timestamp    time.Time
}

// New starts a fresh trace at the given service, with no parent span.
func New(serviceName string) Context {
	return Context{
		TraceID:     newTraceID(),
		SpanID:      newSpanID(),
		ServiceName: serviceName,
		Timestamp:   time.Now(),
	}
}

// Child derives the next hop's span from c, keeping the same trace.
func (c Context) Child(serviceName string) Context {
	return Context{
		TraceID:      c.TraceID,
		SpanID:       newSpanID(),
		ParentSpanID: c.SpanID,
		ServiceName:  serviceName,
		Timestamp:    time.Now(),
	}
}

// HasParent reports whether c carries a non-zero parent span id.
func (c Context) HasParent() bool {
	return c.ParentSpanID != (trace.SpanID{})
}

// Fields flattens c into the _trace_* string keys carried on the wire.
func (c Context) Fields() map[string]string {
	fields := map[string]string{
		fieldTraceID:     c.TraceID.String(),
		fieldSpanID:      c.SpanID.String(),
		fieldServiceName: c.ServiceName,
		fieldTimestamp:   strconv.FormatInt(c.Timestamp.UnixMilli(), 10),
	}
	if c.HasParent() {
		fields[fieldParentSpanID] = c.ParentSpanID.String()
	}
	return fields
}

// Merge writes c's fields into dst, overwriting any existing _trace_* keys.
func (c Context) Merge(dst map[string]string) {
	for k, v := range c.Fields() {
		dst[k] = v
	}
}

// FromFields reconstructs a Context from a wire-format map, e.g. one received
// from upstream that already carries trace fields. ok is false if the map
// carries no recognizable trace id.
func FromFields(fields map[string]string) (Context, bool) {
	rawTraceID, ok := fields[fieldTraceID]
	if !ok || rawTraceID == "" {
		return Context{}, false
	}

	traceID, err := trace.TraceIDFromHex(rawTraceID)
	if err != nil {
		return Context{}, false
	}

	var spanID trace.SpanID
	if raw := fields[fieldSpanID]; raw != "" {
		if parsed, err := trace.SpanIDFromHex(raw); err == nil {
			spanID = parsed
		}
	}

	var parentSpanID trace.SpanID
	if raw := fields[fieldParentSpanID]; raw != "" {
		if parsed, err := trace.SpanIDFromHex(raw); err == nil {
			parentSpanID = parsed
		}
	}

	ts := time.Now()
	if raw := fields[fieldTimestamp]; raw != "" {
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
			ts = time.UnixMilli(ms)
		}
	}

	return Context{
		TraceID:      traceID,
		SpanID:       spanID,
		ParentSpanID: parentSpanID,
		ServiceName:  fields[fieldServiceName],
		Timestamp:    ts,
	}, true
}

func newTraceID() trace.TraceID {
	var id trace.TraceID
	if _, err := rand.Read(id[:]); err != nil {
		panic(fmt.Sprintf("tracectx: crypto/rand unavailable: %v", err))
	}
	return id
}

func newSpanID() trace.SpanID {
	var id trace.SpanID
	if _, err := rand.Read(id[:]); err != nil {
		panic(fmt.Sprintf("tracectx: crypto/rand unavailable: %v", err))
	}
	return id
}
