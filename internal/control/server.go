package control

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sonicx222/arbitrage-coordinator/internal/breaker"
	"github.com/sonicx222/arbitrage-coordinator/internal/logging"
	"github.com/sonicx222/arbitrage-coordinator/internal/router"
	"github.com/sonicx222/arbitrage-coordinator/internal/solanaengine"
)

// RouterStatus is the narrow surface the control server needs from the router.
type RouterStatus interface {
	Counters() router.Counters
	CircuitBreakerStatus() breaker.Status
	Size() int
}

// EngineStatus is the narrow surface the control server needs from the engine.
type EngineStatus interface {
	Counters() solanaengine.Counters
	CircuitBreakerStatus() breaker.Status
}

// PublisherStatus is the narrow surface the control server needs from the publisher.
type PublisherStatus interface {
	IsDisabled() bool
	ConsecutiveFailures() int
}

// Server is the read-only HTTP control/observability surface.
type Server struct {
	router    RouterStatus
	engine    EngineStatus
	publisher PublisherStatus
	metrics   *Metrics
	log       logging.Logger

	startedAt time.Time
	srv       *http.Server
}

// defaultMetrics is the Metrics shared by every Server built with nil
// metrics: NewMetrics registers on the default Prometheus registry, which
// rejects a second registration of the same names.
var (
	defaultMetricsOnce sync.Once
	defaultMetrics     *Metrics
)

// New constructs a Server. Any of router/engine/publisher may be nil; their
// section of /status is simply omitted. A nil m uses one process-wide
// default Metrics.
func New(addr string, r RouterStatus, e EngineStatus, p PublisherStatus, m *Metrics, log logging.Logger) *Server {
	if log == nil {
		log = logging.Nop{}
	}
	if m == nil {
		defaultMetricsOnce.Do(func() { defaultMetrics = NewMetrics("") })
		m = defaultMetrics
	}

	s := &Server{router: r, engine: e, publisher: p, metrics: m, log: log, startedAt: time.Now()}

	metricsHandler := promhttp.Handler()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		s.syncMetrics()
		metricsHandler.ServeHTTP(w, r)
	})

	s.srv = &http.Server{
		Addr:    addr,
		Handler: otelhttp.NewHandler(mux, "control"),
	}
	return s
}

// Run blocks serving HTTP until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting control server", logging.Fields{"addr": s.srv.Addr})
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// statusResponse is the JSON body returned by /status.
type statusResponse struct {
	Status    string `json:"status"`
	Uptime    string `json:"uptime"`
	Router    *routerStatusView    `json:"router,omitempty"`
	Engine    *engineStatusView    `json:"engine,omitempty"`
	Publisher *publisherStatusView `json:"publisher,omitempty"`
}

type routerStatusView struct {
	TotalOpportunities   uint64 `json:"totalOpportunities"`
	TotalExecutions      uint64 `json:"totalExecutions"`
	OpportunitiesDropped uint64 `json:"opportunitiesDropped"`
	ConsecutiveExpired   int    `json:"consecutiveExpired"`
	StoredCount          int    `json:"storedCount"`
	CircuitBreakerOpen   bool   `json:"circuitBreakerOpen"`
}

type engineStatusView struct {
	PoolsAdded          uint64 `json:"poolsAdded"`
	PoolsRejected       uint64 `json:"poolsRejected"`
	PriceUpdatesEmitted uint64 `json:"priceUpdatesEmitted"`
	DetectionsRun       uint64 `json:"detectionsRun"`
	DetectionErrors     uint64 `json:"detectionErrors"`
	CircuitBreakerOpen  bool   `json:"circuitBreakerOpen"`
}

type publisherStatusView struct {
	Disabled            bool `json:"disabled"`
	ConsecutiveFailures int  `json:"consecutiveFailures"`
}

// syncMetrics pushes the current router/engine/publisher snapshots into the
// Prometheus gauges. Called from both /status and /metrics so a /metrics
// scrape never serves stale values even without a recent /status hit.
func (s *Server) syncMetrics() {
	if s.router != nil {
		c := s.router.Counters()
		bs := s.router.CircuitBreakerStatus()
		s.metrics.OpportunitiesTotal.Set(float64(c.TotalOpportunities))
		s.metrics.OpportunitiesDropped.Set(float64(c.OpportunitiesDropped))
		s.metrics.ExecutionsTotal.Set(float64(c.TotalExecutions))
		s.metrics.ConsecutiveExpired.Set(float64(c.ConsecutiveExpired))
		s.metrics.RouterCircuitOpen.Set(boolToFloat(bs.IsOpen))
	}
	if s.engine != nil {
		c := s.engine.Counters()
		bs := s.engine.CircuitBreakerStatus()
		s.metrics.DetectionsRunTotal.Set(float64(c.DetectionsRun))
		s.metrics.DetectionErrorsTotal.Set(float64(c.DetectionErrors))
		s.metrics.PoolsAddedTotal.Set(float64(c.PoolsAdded))
		s.metrics.PoolsRejectedTotal.Set(float64(c.PoolsRejected))
		s.metrics.EngineCircuitOpen.Set(boolToFloat(bs.IsOpen))
	}
	if s.publisher != nil {
		s.metrics.PublisherDisabled.Set(boolToFloat(s.publisher.IsDisabled()))
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.syncMetrics()
	resp := statusResponse{Status: "running", Uptime: time.Since(s.startedAt).String()}

	if s.router != nil {
		c := s.router.Counters()
		bs := s.router.CircuitBreakerStatus()
		resp.Router = &routerStatusView{
			TotalOpportunities:   c.TotalOpportunities,
			TotalExecutions:      c.TotalExecutions,
			OpportunitiesDropped: c.OpportunitiesDropped,
			ConsecutiveExpired:   c.ConsecutiveExpired,
			StoredCount:          s.router.Size(),
			CircuitBreakerOpen:   bs.IsOpen,
		}
	}

	if s.engine != nil {
		c := s.engine.Counters()
		bs := s.engine.CircuitBreakerStatus()
		resp.Engine = &engineStatusView{
			PoolsAdded:          c.PoolsAdded,
			PoolsRejected:       c.PoolsRejected,
			PriceUpdatesEmitted: c.PriceUpdatesEmitted,
			DetectionsRun:       c.DetectionsRun,
			DetectionErrors:     c.DetectionErrors,
			CircuitBreakerOpen:  bs.IsOpen,
		}
	}

	if s.publisher != nil {
		resp.Publisher = &publisherStatusView{
			Disabled:            s.publisher.IsDisabled(),
			ConsecutiveFailures: s.publisher.ConsecutiveFailures(),
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
