package markov

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"slices"
	"time"
)

// Params describes one stationary distribution problem. Alpha is the share
// of mass sent to Seed on every step; Pi0 is the starting iterate.
type Params struct {
	Chain SparseMarkovChain
	Alpha float64
	Seed  Distribution
	Pi0   Distribution
}

// Validate checks alpha, chain indices and both distributions.
func (p Params) Validate() error {
	if math.IsNaN(p.Alpha) || p.Alpha < 0 || p.Alpha > 1 {
		return fmt.Errorf("alpha %v outside [0, 1]: %w", p.Alpha, ErrInvalidParams)
	}
	if err := p.Chain.checkIndices(); err != nil {
		return err
	}
	if err := ValidateDistribution("seed", p.Seed, len(p.Chain)); err != nil {
		return err
	}
	return ValidateDistribution("pi0", p.Pi0, len(p.Chain))
}

// YieldFunc is called between sweeps once YieldAfter has elapsed. A non-nil
// error stops the solve.
type YieldFunc func(ctx context.Context) error

// Options controls termination and scheduling of a solve.
type Options struct {
	// Verbose enables per-iteration progress on Logger.
	Verbose bool
	Logger  *slog.Logger

	ConvergenceThreshold float64
	MaxIterations        int

	// YieldAfter is the wall clock budget of consecutive sweeps before the
	// solver yields.
	YieldAfter time.Duration

	// Yield defaults to runtime.Gosched followed by a context check.
	Yield YieldFunc
}

// Validate checks that all numeric options are in range.
func (o Options) Validate() error {
	if math.IsNaN(o.ConvergenceThreshold) || math.IsInf(o.ConvergenceThreshold, 0) || o.ConvergenceThreshold < 0 {
		return fmt.Errorf("convergence threshold %v: %w", o.ConvergenceThreshold, ErrInvalidParams)
	}
	if o.MaxIterations < 0 {
		return fmt.Errorf("max iterations %d: %w", o.MaxIterations, ErrInvalidParams)
	}
	if o.YieldAfter < 0 {
		return fmt.Errorf("yield after %s: %w", o.YieldAfter, ErrInvalidParams)
	}
	return nil
}

// StationaryDistributionResult is the outcome of a solve. Converged is false
// when the iteration budget ran out first; Pi is still the last iterate.
type StationaryDistributionResult struct {
	Pi               Distribution
	ConvergenceDelta float64
	Iterations       int
	Converged        bool
	Yields           int
}

// FindStationaryDistribution runs power iteration
//
//	pi'[v] = alpha*seed[v] + (1-alpha) * sum(p * pi[u] for (u, p) in chain[v])
//
// from Pi0 until the L1 change of a sweep drops below the convergence
// threshold or MaxIterations sweeps have run. Between sweeps, and only
// there, the solver yields once YieldAfter has elapsed; ctx is checked at
// those points.
func FindStationaryDistribution(ctx context.Context, params Params, opts Options) (*StationaryDistributionResult, error) {
	s, err := newSolver(params, opts)
	if err != nil {
		return nil, err
	}
	return s.run(ctx)
}

type solver struct {
	params Params
	opts   Options
	now    func() time.Time
}

func newSolver(params Params, opts Options) (*solver, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Yield == nil {
		opts.Yield = yieldToScheduler
	}
	return &solver{params: params, opts: opts, now: time.Now}, nil
}

func yieldToScheduler(ctx context.Context) error {
	runtime.Gosched()
	return ctx.Err()
}

func (s *solver) run(ctx context.Context) (*StationaryDistributionResult, error) {
	pi := slices.Clone(s.params.Pi0)
	next := make(Distribution, len(pi))

	if s.opts.MaxIterations == 0 {
		step(s.params, pi, next)
		delta := Delta(pi, next)
		return &StationaryDistributionResult{
			Pi:               pi,
			ConvergenceDelta: delta,
			Converged:        delta < s.opts.ConvergenceThreshold,
		}, nil
	}

	res := &StationaryDistributionResult{}
	checkpoint := s.now()
	for iteration := 1; ; iteration++ {
		step(s.params, pi, next)
		delta := Delta(pi, next)
		pi, next = next, pi

		if s.opts.Verbose && s.opts.Logger != nil {
			s.opts.Logger.Info("pagerank sweep", "iteration", iteration, "delta", delta)
		}

		res.Pi = pi
		res.ConvergenceDelta = delta
		res.Iterations = iteration

		if delta < s.opts.ConvergenceThreshold {
			res.Converged = true
			return res, nil
		}
		if iteration >= s.opts.MaxIterations {
			return res, nil
		}

		if s.now().Sub(checkpoint) > s.opts.YieldAfter {
			if err := s.opts.Yield(ctx); err != nil {
				return nil, fmt.Errorf("stopped after %d iterations: %w", iteration, err)
			}
			res.Yields++
			checkpoint = s.now()
		}
	}
}

// step writes one full sweep of the recurrence from pi into out.
func step(params Params, pi, out Distribution) {
	alpha := params.Alpha
	for dst, neighbors := range params.Chain {
		var flow float64
		for _, nb := range neighbors {
			flow += nb.Probability * pi[nb.Source]
		}
		out[dst] = alpha*params.Seed[dst] + (1-alpha)*flow
	}
}
