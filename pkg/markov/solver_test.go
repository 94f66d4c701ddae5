package markov

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// threeNodeChain has columns summing to 1:
// 0 -> {0: .2, 1: .8}, 1 -> {2: 1}, 2 -> {0: .5, 2: .5}.
func threeNodeChain() SparseMarkovChain {
	return SparseMarkovChain{
		{{Source: 0, Probability: 0.2}, {Source: 2, Probability: 0.5}},
		{{Source: 0, Probability: 0.8}},
		{{Source: 1, Probability: 1}, {Source: 2, Probability: 0.5}},
	}
}

func testOptions() Options {
	return Options{
		ConvergenceThreshold: 1e-9,
		MaxIterations:        1000,
		YieldAfter:           time.Hour,
	}
}

func TestOutTotals(t *testing.T) {
	for _, total := range threeNodeChain().OutTotals() {
		assert.InDelta(t, 1.0, total, 1e-12)
	}
}

func TestStepConservesMass(t *testing.T) {
	for _, alpha := range []float64{0, 0.15, 0.5, 1} {
		params := Params{
			Chain: threeNodeChain(),
			Alpha: alpha,
			Seed:  Distribution{0.7, 0.2, 0.1},
			Pi0:   Distribution{1, 0, 0},
		}
		pi := params.Pi0
		next := make(Distribution, 3)
		for i := 0; i < 50; i++ {
			step(params, pi, next)
			pi, next = next, pi
			require.InDelta(t, 1.0, pi.Sum(), 1e-9, "alpha %v iteration %d", alpha, i)
		}
	}
}

func TestFindStationaryDistribution(t *testing.T) {
	params := Params{
		Chain: threeNodeChain(),
		Alpha: 0,
		Seed:  Uniform(3),
		Pi0:   Uniform(3),
	}
	res, err := FindStationaryDistribution(context.Background(), params, testOptions())
	require.NoError(t, err)
	require.True(t, res.Converged)
	assert.Less(t, res.ConvergenceDelta, 1e-9)
	assert.InDelta(t, 1.0, res.Pi.Sum(), 1e-9)

	// pi = chain * pi at the fixed point.
	next := make(Distribution, 3)
	step(params, res.Pi, next)
	assert.InDelta(t, 0.0, Delta(res.Pi, next), 1e-8)

	// solution of pi0 = .2 pi0 + .5 pi2, pi1 = .8 pi0, pi2 = pi1 + .5 pi2
	assert.InDelta(t, 5.0/17, res.Pi[0], 1e-7)
	assert.InDelta(t, 4.0/17, res.Pi[1], 1e-7)
	assert.InDelta(t, 8.0/17, res.Pi[2], 1e-7)

	// inputs are not modified
	assert.Equal(t, Uniform(3), params.Pi0)
}

func TestSingleNodeConvergesImmediately(t *testing.T) {
	for _, alpha := range []float64{0, 0.3, 1} {
		params := Params{
			Chain: SparseMarkovChain{{{Source: 0, Probability: 1}}},
			Alpha: alpha,
			Seed:  Distribution{1},
			Pi0:   Distribution{1},
		}
		res, err := FindStationaryDistribution(context.Background(), params, testOptions())
		require.NoError(t, err)
		assert.True(t, res.Converged)
		assert.Equal(t, 1, res.Iterations)
		assert.Equal(t, Distribution{1}, res.Pi)
	}
}

func TestAlphaOneReturnsSeed(t *testing.T) {
	seed := Distribution{0.1, 0.6, 0.3}
	params := Params{
		Chain: threeNodeChain(),
		Alpha: 1,
		Seed:  seed,
		Pi0:   Uniform(3),
	}
	res, err := FindStationaryDistribution(context.Background(), params, testOptions())
	require.NoError(t, err)
	require.True(t, res.Converged)
	assert.InDeltaSlice(t, seed, res.Pi, 1e-12)
}

func TestMaxIterationsIsNotAnError(t *testing.T) {
	swap := SparseMarkovChain{
		{{Source: 1, Probability: 1}},
		{{Source: 0, Probability: 1}},
	}
	params := Params{Chain: swap, Seed: Uniform(2), Pi0: Distribution{1, 0}}
	opts := testOptions()
	opts.MaxIterations = 7

	res, err := FindStationaryDistribution(context.Background(), params, opts)
	require.NoError(t, err)
	assert.False(t, res.Converged)
	assert.Equal(t, 7, res.Iterations)
	assert.InDelta(t, 2.0, res.ConvergenceDelta, 1e-12)
	assert.Equal(t, Distribution{0, 1}, res.Pi)
}

func TestZeroMaxIterationsReturnsPi0(t *testing.T) {
	params := Params{Chain: threeNodeChain(), Seed: Uniform(3), Pi0: Distribution{1, 0, 0}}
	opts := testOptions()
	opts.MaxIterations = 0

	res, err := FindStationaryDistribution(context.Background(), params, opts)
	require.NoError(t, err)
	assert.Equal(t, Distribution{1, 0, 0}, res.Pi)
	assert.Equal(t, 0, res.Iterations)
	assert.False(t, res.Converged)
	assert.InDelta(t, 1.6, res.ConvergenceDelta, 1e-12)
}

func TestEmptyChain(t *testing.T) {
	res, err := FindStationaryDistribution(context.Background(), Params{}, testOptions())
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.Empty(t, res.Pi)
}

// fakeClock advances by tick on every reading.
type fakeClock struct {
	t    time.Time
	tick time.Duration
}

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(c.tick)
	return c.t
}

func TestSolverYieldsBetweenSweeps(t *testing.T) {
	params := Params{Chain: threeNodeChain(), Seed: Uniform(3), Pi0: Uniform(3)}
	opts := testOptions()
	opts.MaxIterations = 5
	opts.ConvergenceThreshold = 0
	opts.YieldAfter = 4 * time.Millisecond

	calls := 0
	opts.Yield = func(ctx context.Context) error {
		calls++
		return ctx.Err()
	}

	s, err := newSolver(params, opts)
	require.NoError(t, err)
	clock := &fakeClock{tick: 5 * time.Millisecond}
	s.now = clock.now

	res, err := s.run(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Converged)
	assert.Equal(t, 5, res.Iterations)
	// no yield after the final sweep
	assert.Equal(t, 4, res.Yields)
	assert.Equal(t, 4, calls)
}

func TestSolverDoesNotYieldWithinBudget(t *testing.T) {
	params := Params{Chain: threeNodeChain(), Seed: Uniform(3), Pi0: Uniform(3)}
	opts := testOptions()
	opts.MaxIterations = 5
	opts.ConvergenceThreshold = 0
	opts.YieldAfter = time.Second
	opts.Yield = func(context.Context) error {
		t.Fatal("unexpected yield")
		return nil
	}

	s, err := newSolver(params, opts)
	require.NoError(t, err)
	s.now = (&fakeClock{tick: time.Millisecond}).now

	res, err := s.run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Yields)
}

func TestSolverYieldObservesCancellation(t *testing.T) {
	params := Params{Chain: threeNodeChain(), Seed: Uniform(3), Pi0: Uniform(3)}
	opts := testOptions()
	opts.ConvergenceThreshold = 0
	opts.YieldAfter = 0

	s, err := newSolver(params, opts)
	require.NoError(t, err)
	s.now = (&fakeClock{tick: time.Millisecond}).now

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestVerboseLogging(t *testing.T) {
	var buf bytes.Buffer
	params := Params{Chain: threeNodeChain(), Seed: Uniform(3), Pi0: Uniform(3)}
	opts := testOptions()
	opts.MaxIterations = 3
	opts.ConvergenceThreshold = 0
	opts.Verbose = true
	opts.Logger = slog.New(slog.NewTextHandler(&buf, nil))

	_, err := FindStationaryDistribution(context.Background(), params, opts)
	require.NoError(t, err)
	assert.Equal(t, 3, bytes.Count(buf.Bytes(), []byte("pagerank sweep")))

	buf.Reset()
	opts.Verbose = false
	_, err = FindStationaryDistribution(context.Background(), params, opts)
	require.NoError(t, err)
	assert.Zero(t, buf.Len())
}

func TestInvalidInputs(t *testing.T) {
	valid := func() Params {
		return Params{Chain: threeNodeChain(), Seed: Uniform(3), Pi0: Uniform(3)}
	}

	t.Run("alpha out of range", func(t *testing.T) {
		p := valid()
		p.Alpha = 1.5
		_, err := FindStationaryDistribution(context.Background(), p, testOptions())
		assert.ErrorIs(t, err, ErrInvalidParams)
	})

	t.Run("neighbor out of range", func(t *testing.T) {
		p := valid()
		p.Chain[0] = append(p.Chain[0], InNeighbor{Source: 3, Probability: 0.1})
		_, err := FindStationaryDistribution(context.Background(), p, testOptions())
		assert.ErrorIs(t, err, ErrInvalidParams)
	})

	t.Run("malformed seed", func(t *testing.T) {
		p := valid()
		p.Seed = Distribution{0.5, 0.5, 0.5}
		_, err := FindStationaryDistribution(context.Background(), p, testOptions())
		var mde *MalformedDistributionError
		require.ErrorAs(t, err, &mde)
		assert.Equal(t, "seed", mde.Name)
	})

	t.Run("malformed pi0", func(t *testing.T) {
		p := valid()
		p.Pi0 = Distribution{1}
		_, err := FindStationaryDistribution(context.Background(), p, testOptions())
		var mde *MalformedDistributionError
		require.ErrorAs(t, err, &mde)
		assert.Equal(t, "pi0", mde.Name)
	})

	t.Run("bad options", func(t *testing.T) {
		for _, opts := range []Options{
			{ConvergenceThreshold: -1},
			{MaxIterations: -1},
			{YieldAfter: -time.Second},
		} {
			_, err := FindStationaryDistribution(context.Background(), valid(), opts)
			assert.ErrorIs(t, err, ErrInvalidParams)
		}
	})
}

func TestConcurrentSolvesShareChain(t *testing.T) {
	chain := threeNodeChain()
	seeds := []Distribution{Uniform(3), {1, 0, 0}, {0, 0.5, 0.5}, {0.2, 0.2, 0.6}}
	results := make([]*StationaryDistributionResult, len(seeds))

	var g errgroup.Group
	for i, seed := range seeds {
		g.Go(func() error {
			res, err := FindStationaryDistribution(context.Background(), Params{
				Chain: chain,
				Alpha: 0.1,
				Seed:  seed,
				Pi0:   Uniform(3),
			}, testOptions())
			results[i] = res
			return err
		})
	}
	require.NoError(t, g.Wait())

	for i, seed := range seeds {
		res, err := FindStationaryDistribution(context.Background(), Params{
			Chain: chain,
			Alpha: 0.1,
			Seed:  seed,
			Pi0:   Uniform(3),
		}, testOptions())
		require.NoError(t, err)
		assert.Equal(t, res.Pi, results[i].Pi)
	}
	assert.Equal(t, threeNodeChain(), chain)
}
