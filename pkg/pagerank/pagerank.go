// Package pagerank runs the full ranking pipeline over a weighted graph:
// connections, ordered Markov chain, stationary distribution and the
// per-node decomposition of the result.
package pagerank

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mchmarny/credrank/pkg/chain"
	"github.com/mchmarny/credrank/pkg/decomposition"
	"github.com/mchmarny/credrank/pkg/graph"
	"github.com/mchmarny/credrank/pkg/logging"
	"github.com/mchmarny/credrank/pkg/markov"
	"github.com/mchmarny/credrank/pkg/weights"
	"gonum.org/v1/gonum/floats"
)

const (
	taskConnections = "connections"
	taskChain       = "chain"
	taskSolve       = "solve"
	taskDecompose   = "decompose"
)

var (
	// ErrInvalidSeed is returned when the seed mode is unknown or the node
	// weights give a zero seed.
	ErrInvalidSeed = errors.New("invalid seed")

	// ErrNoMatchingScore is returned when scaling by a prefix no scored node matches.
	ErrNoMatchingScore = errors.New("no score under prefix")
)

// SeedMode selects the teleport distribution.
type SeedMode string

const (
	SeedUniform SeedMode = "uniform"
	SeedWeights SeedMode = "weights"
)

// Evaluator supplies edge and node weights.
type Evaluator interface {
	Edge(graph.Edge) weights.EdgeWeight
	Node(graph.NodeAddress) float64
}

// Options configures a run.
type Options struct {
	Alpha                float64
	SelfLoopWeight       float64
	ConvergenceThreshold float64
	MaxIterations        int
	YieldAfter           time.Duration
	Seed                 SeedMode
	Verbose              bool

	// Logger receives solver progress when Verbose is set.
	Logger *slog.Logger

	// Reporter is told when each stage starts and finishes.
	Reporter logging.TaskReporter
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Alpha:                0.05,
		SelfLoopWeight:       1e-3,
		ConvergenceThreshold: 1e-7,
		MaxIterations:        255,
		YieldAfter:           30 * time.Millisecond,
		Seed:                 SeedUniform,
	}
}

// Result is the outcome of a run.
type Result struct {
	NodeOrder        []graph.NodeAddress
	Pi               markov.Distribution
	Seed             markov.Distribution
	Scores           map[graph.NodeAddress]float64
	Decomposition    decomposition.PagerankNodeDecomposition
	Converged        bool
	ConvergenceDelta float64
	Iterations       int
}

// Run ranks every node of g.
func Run(ctx context.Context, g chain.Graph, ev Evaluator, opts Options) (*Result, error) {
	reporter := opts.Reporter
	if reporter == nil {
		reporter = &logging.SilentTaskReporter{}
	}

	var connections chain.Connections
	if err := track(reporter, taskConnections, func() error {
		connections = chain.CreateConnections(g, ev.Edge, opts.SelfLoopWeight)
		return nil
	}); err != nil {
		return nil, err
	}

	var osmc *chain.OrderedSparseMarkovChain
	if err := track(reporter, taskChain, func() (err error) {
		osmc, err = chain.CreateOrderedSparseMarkovChain(connections)
		return err
	}); err != nil {
		return nil, fmt.Errorf("building markov chain: %w", err)
	}

	seed, err := createSeed(osmc.NodeOrder, ev, opts.Seed)
	if err != nil {
		return nil, err
	}

	var dist *markov.StationaryDistributionResult
	if err := track(reporter, taskSolve, func() (err error) {
		dist, err = markov.FindStationaryDistribution(ctx, markov.Params{
			Chain: osmc.Chain,
			Alpha: opts.Alpha,
			Seed:  seed,
			Pi0:   markov.Uniform(len(osmc.NodeOrder)),
		}, markov.Options{
			Verbose:              opts.Verbose,
			Logger:               opts.Logger,
			ConvergenceThreshold: opts.ConvergenceThreshold,
			MaxIterations:        opts.MaxIterations,
			YieldAfter:           opts.YieldAfter,
		})
		return err
	}); err != nil {
		return nil, fmt.Errorf("finding stationary distribution: %w", err)
	}

	scores, err := chain.ToNodeDistribution(osmc.NodeOrder, dist.Pi)
	if err != nil {
		return nil, err
	}

	var d decomposition.PagerankNodeDecomposition
	if err := track(reporter, taskDecompose, func() (err error) {
		d, err = decomposition.Decompose(scores, connections)
		return err
	}); err != nil {
		return nil, fmt.Errorf("decomposing scores: %w", err)
	}

	return &Result{
		NodeOrder:        osmc.NodeOrder,
		Pi:               dist.Pi,
		Seed:             seed,
		Scores:           scores,
		Decomposition:    d,
		Converged:        dist.Converged,
		ConvergenceDelta: dist.ConvergenceDelta,
		Iterations:       dist.Iterations,
	}, nil
}

// track runs fn as task id. The task is finished even when fn fails so the
// reporter can be reused.
func track(r logging.TaskReporter, id string, fn func() error) error {
	if err := r.Start(id); err != nil {
		return err
	}
	err := fn()
	if ferr := r.Finish(id); err == nil {
		err = ferr
	}
	return err
}

func createSeed(order []graph.NodeAddress, ev Evaluator, mode SeedMode) (markov.Distribution, error) {
	switch mode {
	case SeedUniform, "":
		return markov.Uniform(len(order)), nil
	case SeedWeights:
		if len(order) == 0 {
			return markov.Distribution{}, nil
		}
		seed := make(markov.Distribution, len(order))
		for i, n := range order {
			seed[i] = ev.Node(n)
		}
		total := floats.Sum(seed)
		if total == 0 {
			return nil, fmt.Errorf("node weights sum to zero: %w", ErrInvalidSeed)
		}
		floats.Scale(1/total, seed)
		return seed, nil
	default:
		return nil, fmt.Errorf("seed mode %q: %w", mode, ErrInvalidSeed)
	}
}

// Scaled multiplies every score by the same factor, chosen so that the
// nodes under prefix sum to total.
func (r *Result) Scaled(total float64, prefix graph.NodeAddress) (map[graph.NodeAddress]float64, error) {
	var matched float64
	for _, n := range r.NodeOrder {
		if n.HasPrefix(prefix) {
			matched += r.Scores[n]
		}
	}
	if matched == 0 {
		return nil, fmt.Errorf("prefix %s: %w", prefix, ErrNoMatchingScore)
	}

	factor := total / matched
	scaled := make(map[graph.NodeAddress]float64, len(r.Scores))
	for n, s := range r.Scores {
		scaled[n] = s * factor
	}
	return scaled, nil
}
