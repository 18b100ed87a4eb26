package detection

import (
	"fmt"

	"github.com/sonicx222/arbitrage-coordinator/internal/logging"
	"github.com/sonicx222/arbitrage-coordinator/internal/opportunity"
	"github.com/sonicx222/arbitrage-coordinator/internal/pool"
)

type triEdge struct {
	to          string
	price       float64
	fee         float64
	poolAddress string
}

// Triangular runs the bounded-DFS triangular arbitrage search.
//
// The DFS is expressed with explicit backtracking (mutate the shared path
// buffer, recurse, undo) rather than building a new slice per call, to keep
// the hot loop allocation-free.
func Triangular(store *pool.Store, factory *opportunity.Factory, cfg Config, log logging.Logger) Result {
	if log == nil {
		log = logging.Nop{}
	}
	start := nowMs()
	now := start

	graph := make(map[string][]triEdge)
	var res Result

	for _, p := range store.GetAllPools() {
		if !p.HasValidPrice() || p.IsStale(now, cfg.PriceStalenessMs) {
			res.StalePoolsSkipped++
			continue
		}
		t0, t1 := p.NormalizedToken0, p.NormalizedToken1
		if t0 == "" || t1 == "" {
			continue
		}
		fee := feeFraction(p.Fee)

		if p.Price > pool.MinValidPrice {
			graph[t0] = append(graph[t0], triEdge{to: t1, price: p.Price, fee: fee, poolAddress: p.Address})
		}
		inv := 1 / p.Price
		if isFinite(inv) && inv >= pool.MinValidPrice {
			graph[t1] = append(graph[t1], triEdge{to: t0, price: inv, fee: fee, poolAddress: p.Address})
		}
	}

	maxDepth := cfg.MaxTriangularDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	globalCap := 10 * MaxPathsPerLevel

	memo := make(map[string]bool)
	d := &triDFS{
		graph:     graph,
		factory:   factory,
		cfg:       cfg,
		maxDepth:  maxDepth,
		globalCap: globalCap,
		memo:      memo,
		now:       now,
		log:       log,
	}

	for startToken := range graph {
		if d.totalPaths >= globalCap {
			break
		}
		d.pathsThisStart = 0
		d.dfs(startToken, startToken, 1.0, 1, []string{startToken}, map[string]bool{startToken: true}, map[string]bool{})
	}

	res.Opportunities = append(res.Opportunities, d.found...)
	res.PathsExplored = d.totalPaths
	res.LatencyMs = nowMs() - start
	return res
}

type triDFS struct {
	graph     map[string][]triEdge
	factory   *opportunity.Factory
	cfg       Config
	maxDepth  int
	globalCap int

	memo map[string]bool
	now  int64
	log  logging.Logger

	totalPaths     int
	pathsThisStart int
	found          []opportunity.Opportunity
}

func (d *triDFS) dfs(startToken, current string, amount float64, depth int, path []string, visitedTokens map[string]bool, visitedPools map[string]bool) {
	if d.totalPaths >= d.globalCap || d.pathsThisStart >= MaxPathsPerLevel {
		return
	}

	for _, edge := range d.graph[current] {
		if visitedPools[edge.poolAddress] {
			continue
		}

		nextAmount := amount * edge.price * (1 - edge.fee)
		if !isFinite(nextAmount) || nextAmount <= 0 {
			continue
		}

		nextDepth := depth + 1

		if edge.to == startToken && nextDepth >= 3 {
			profit := nextAmount - 1
			if profit > 0 {
				// path already holds the distinct tokens visited (start,
				// then each intermediate hop); the implicit final edge back
				// to start closes the cycle without appending a repeat.
				closedPath := append([]string(nil), path...)
				d.emit(startToken, closedPath, profit)
			}
			d.totalPaths++
			d.pathsThisStart++
			continue
		}

		if edge.to != startToken && visitedTokens[edge.to] {
			continue
		}
		if nextDepth > d.maxDepth {
			continue
		}

		key := fmt.Sprintf("%s-%s-%d-%s", startToken, edge.to, nextDepth, edge.poolAddress)
		if d.memo[key] {
			continue
		}
		if len(d.memo) < MaxMemoCacheSize {
			d.memo[key] = true
		}

		d.totalPaths++
		d.pathsThisStart++
		if d.totalPaths >= d.globalCap || d.pathsThisStart >= MaxPathsPerLevel {
			return
		}

		visitedTokens[edge.to] = true
		visitedPools[edge.poolAddress] = true
		path = append(path, edge.to)

		d.dfs(startToken, edge.to, nextAmount, nextDepth, path, visitedTokens, visitedPools)

		path = path[:len(path)-1]
		delete(visitedPools, edge.poolAddress)
		delete(visitedTokens, edge.to)
	}
}

func (d *triDFS) emit(startToken string, path []string, profit float64) {
	op := d.factory.NewTriangular(opportunity.TriangularInput{
		Chain:            "solana",
		Path:             path,
		ProfitPercentage: profit * 100,
		Timestamp:        d.now,
		ExpiryMs:         d.cfg.OpportunityExpiryMs,
	})
	d.found = append(d.found, op)
}
