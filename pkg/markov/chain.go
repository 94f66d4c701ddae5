// Package markov finds the stationary distribution of a sparse Markov chain
// with seed mixing.
package markov

import (
	"errors"
	"fmt"
)

// ErrInvalidParams is returned for out-of-range solver parameters or options.
var ErrInvalidParams = errors.New("invalid pagerank parameters")

// InNeighbor is a single transition into a node: with probability
// Probability, mass at node Source moves to the node owning the entry.
type InNeighbor struct {
	Source      int
	Probability float64
}

// SparseMarkovChain stores a column-stochastic transition matrix by
// destination: chain[dst] lists every source with a nonzero transition into
// dst. For each source, its probabilities across the whole chain sum to 1.
type SparseMarkovChain [][]InNeighbor

// OutTotals returns, for each source index, the sum of its outgoing
// probabilities across the chain.
func (c SparseMarkovChain) OutTotals() []float64 {
	totals := make([]float64, len(c))
	for _, neighbors := range c {
		for _, nb := range neighbors {
			totals[nb.Source] += nb.Probability
		}
	}
	return totals
}

// checkIndices verifies that every source index refers to a node.
func (c SparseMarkovChain) checkIndices() error {
	for dst, neighbors := range c {
		for _, nb := range neighbors {
			if nb.Source < 0 || nb.Source >= len(c) {
				return fmt.Errorf("node %d has in-neighbor %d outside [0, %d): %w",
					dst, nb.Source, len(c), ErrInvalidParams)
			}
		}
	}
	return nil
}
