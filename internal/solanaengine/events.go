package solanaengine

import "github.com/sonicx222/arbitrage-coordinator/internal/pool"

// eventChannelBuffer bounds each event channel's queue depth: a bounded
// buffered channel standing in for a dynamic event emitter. Subscribers
// read whatever the buffer holds; producers drop (rather than block) when
// a channel is full.
const eventChannelBuffer = 256

// PriceUpdate is emitted whenever addPool or a price-source price tick
// observes a changed price for an already-known pool.
type PriceUpdate struct {
	Address  string
	PairKey  string
	OldPrice float64
	NewPrice float64
}

// eventChannels holds the engine's fixed set of event channels, created once
// at construction.
type eventChannels struct {
	PriceUpdates chan PriceUpdate
	PoolUpdates  chan pool.Pool
	PoolRemoved  chan string
}

func newEventChannels(buffer int) *eventChannels {
	return &eventChannels{
		PriceUpdates: make(chan PriceUpdate, buffer),
		PoolUpdates:  make(chan pool.Pool, buffer),
		PoolRemoved:  make(chan string, buffer),
	}
}

func (e *eventChannels) emitPriceUpdate(update PriceUpdate) {
	select {
	case e.PriceUpdates <- update:
	default:
	}
}

func (e *eventChannels) emitPoolUpdate(p pool.Pool) {
	select {
	case e.PoolUpdates <- p:
	default:
	}
}

func (e *eventChannels) emitPoolRemoved(address string) {
	select {
	case e.PoolRemoved <- address:
	default:
	}
}
