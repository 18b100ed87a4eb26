package solanaengine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sonicx222/arbitrage-coordinator/internal/logging"
	"github.com/sonicx222/arbitrage-coordinator/internal/opportunity"
)

// PriceSourceMessage is the adapter-normalized shape a PriceSource emits: a
// raw pool record, a unified price update, or a pool removal notice.
// Exactly one of Pool/Price/RemovedAddress is set.
type PriceSourceMessage struct {
	Chain          string
	Pool           *AddPoolInput
	Price          *RawPriceUpdate
	RemovedAddress string
}

// RawPriceUpdate is a unified price tick, distinct from a full pool record.
type RawPriceUpdate struct {
	Address string
	Price   float64
}

// PriceSource is anything the engine can subscribe to for pool/price events.
type PriceSource interface {
	Subscribe(ctx context.Context) (<-chan PriceSourceMessage, error)
	Close() error
}

// ConnectToPriceUpdates subscribes to source's pool/price/removal events,
// tearing down any previously registered source first.
func (e *Engine) ConnectToPriceUpdates(ctx context.Context, source PriceSource) error {
	e.subMu.Lock()
	defer e.subMu.Unlock()

	e.teardownLocked()

	ch, err := source.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("solanaengine: subscribe failed: %w", err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	e.activeSource = source
	e.activeCancel = cancel

	go e.consume(subCtx, ch)
	return nil
}

// Stop tears down the currently registered price source, if any.
func (e *Engine) Stop() {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	e.teardownLocked()
}

func (e *Engine) teardownLocked() {
	if e.activeCancel != nil {
		e.activeCancel()
		e.activeCancel = nil
	}
	if e.activeSource != nil {
		_ = e.activeSource.Close()
		e.activeSource = nil
	}
}

func (e *Engine) consume(ctx context.Context, ch <-chan PriceSourceMessage) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			e.handleMessage(msg)
		}
	}
}

// handleMessage validates and dispatches one adapter message. Malformed
// messages and updates whose chain doesn't match this engine's configured
// chain are logged and dropped.
func (e *Engine) handleMessage(msg PriceSourceMessage) {
	if msg.Chain != "" && msg.Chain != e.cfg.Chain {
		e.log.Debug("dropping price source message for foreign chain", logging.Fields{
			"expected": e.cfg.Chain, "got": msg.Chain,
		})
		return
	}

	switch {
	case msg.Pool != nil:
		if err := e.AddPool(*msg.Pool); err != nil {
			e.log.Warn("addPool rejected", logging.Fields{"error": err.Error()})
		}
	case msg.Price != nil:
		if existing, ok := e.store.Get(msg.Price.Address); ok {
			oldPrice := existing.Price
			existing.Price = msg.Price.Price
			existing.LastUpdated = opportunity.NowMs()
			e.store.Set(existing)
			if oldPrice != msg.Price.Price {
				e.events.emitPriceUpdate(PriceUpdate{
					Address:  existing.Address,
					PairKey:  existing.PairKey,
					OldPrice: oldPrice,
					NewPrice: msg.Price.Price,
				})
				e.counters.priceUpdatesEmitted.Add(1)
			}
		}
	case msg.RemovedAddress != "":
		e.RemovePool(msg.RemovedAddress)
	default:
		e.log.Debug("dropping malformed price source message", nil)
	}
}

// WSPriceSourceConfig configures the websocket-backed PriceSource. Shape
// mirrors the reference implementation's internal/solana.WSClientConfig exactly, repurposed
// here from log-subscription reconnects to pool/price event reconnects.
type WSPriceSourceConfig struct {
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	PingInterval      time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
}

// DefaultWSPriceSourceConfig matches the reference implementation's DefaultWSConfig values.
func DefaultWSPriceSourceConfig() WSPriceSourceConfig {
	return WSPriceSourceConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// wsEnvelope is the wire shape this adapter expects each websocket text
// frame to carry: exactly one of pool/price/removedAddress populated.
type wsEnvelope struct {
	Chain          string         `json:"chain"`
	Pool           *AddPoolInput  `json:"pool,omitempty"`
	Price          *RawPriceUpdate `json:"price,omitempty"`
	RemovedAddress string         `json:"removedAddress,omitempty"`
}

// WSPriceSource is a PriceSource backed by a single websocket endpoint, with
// automatic reconnect and periodic pings — grounded on the reference implementation's
// internal/solana/ws_client.go dial/reconnect/ping/read-loop shape.
type WSPriceSource struct {
	endpoint string
	cfg      WSPriceSourceConfig
	log      logging.Logger

	connMu sync.Mutex
	conn   *websocket.Conn

	closed atomic.Bool
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewWSPriceSource creates a WSPriceSource for endpoint. It does not connect
// until Subscribe is called.
func NewWSPriceSource(endpoint string, cfg WSPriceSourceConfig, log logging.Logger) *WSPriceSource {
	if log == nil {
		log = logging.Nop{}
	}
	return &WSPriceSource{endpoint: endpoint, cfg: cfg, log: log, done: make(chan struct{})}
}

// Subscribe dials the endpoint and returns a channel of normalized messages.
func (s *WSPriceSource) Subscribe(ctx context.Context) (<-chan PriceSourceMessage, error) {
	if err := s.connect(ctx); err != nil {
		return nil, err
	}

	out := make(chan PriceSourceMessage, 1000)
	s.wg.Add(2)
	go s.readLoop(out)
	go s.pingLoop()
	return out, nil
}

func (s *WSPriceSource) connect(ctx context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("solanaengine: websocket dial: %w", err)
	}
	s.conn = conn
	return nil
}

func (s *WSPriceSource) readLoop(out chan<- PriceSourceMessage) {
	defer s.wg.Done()
	defer close(out)

	delay := s.cfg.ReconnectDelay

	for !s.closed.Load() {
		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if conn == nil {
			select {
			case <-s.done:
				return
			case <-time.After(delay):
				if !s.closed.Load() {
					if err := s.connect(context.Background()); err != nil {
						s.log.Warn("websocket reconnect failed", logging.Fields{"error": err.Error()})
					}
				}
				if delay < s.cfg.MaxReconnectDelay {
					delay *= 2
				}
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			s.log.Warn("websocket read failed, will reconnect", logging.Fields{"error": err.Error()})
			s.connMu.Lock()
			s.conn = nil
			s.connMu.Unlock()
			continue
		}
		delay = s.cfg.ReconnectDelay

		var env wsEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			s.log.Debug("dropping malformed websocket frame", logging.Fields{"error": err.Error()})
			continue
		}

		msg := PriceSourceMessage{Chain: env.Chain, Pool: env.Pool, Price: env.Price, RemovedAddress: env.RemovedAddress}
		select {
		case out <- msg:
		case <-s.done:
			return
		}
	}
}

func (s *WSPriceSource) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.connMu.Lock()
			if s.conn != nil {
				s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
				_ = s.conn.WriteMessage(websocket.PingMessage, nil)
			}
			s.connMu.Unlock()
		}
	}
}

// Close tears down the connection and stops the background goroutines.
func (s *WSPriceSource) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	close(s.done)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	return nil
}
