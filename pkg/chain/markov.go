package chain

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/mchmarny/credrank/pkg/graph"
	"github.com/mchmarny/credrank/pkg/markov"
)

// ErrUnknownNode is returned when a connection points at a node that has no
// connections of its own.
var ErrUnknownNode = errors.New("unknown node")

// InvalidWeightsError is returned when a connection weight is negative or
// not finite, or when a node has no outgoing weight to normalize.
type InvalidWeightsError struct {
	Node   graph.NodeAddress
	Reason string
}

func (e *InvalidWeightsError) Error() string {
	return fmt.Sprintf("invalid weights for %s: %s", e.Node, e.Reason)
}

// OrderedSparseMarkovChain is a chain whose indices map to NodeOrder.
type OrderedSparseMarkovChain struct {
	NodeOrder []graph.NodeAddress
	Chain     markov.SparseMarkovChain
}

// TotalOutWeights sums, for every counterparty, the raw weight of all
// connections through which it sends flow.
func TotalOutWeights(c Connections) map[graph.NodeAddress]float64 {
	totals := make(map[graph.NodeAddress]float64, len(c))
	for _, n := range slices.Sorted(maps.Keys(c)) {
		for _, conn := range c[n] {
			totals[conn.Adjacency.Counterparty(n)] += conn.Weight
		}
	}
	return totals
}

// CreateOrderedSparseMarkovChain orders nodes by address and normalizes each
// counterparty's outgoing weight across the whole graph, so every source
// column of the resulting chain sums to 1.
func CreateOrderedSparseMarkovChain(c Connections) (*OrderedSparseMarkovChain, error) {
	order := slices.Sorted(maps.Keys(c))
	index := make(map[graph.NodeAddress]int, len(order))
	for i, n := range order {
		index[n] = i
	}

	for _, n := range order {
		for _, conn := range c[n] {
			if math.IsNaN(conn.Weight) || math.IsInf(conn.Weight, 0) || conn.Weight < 0 {
				return nil, &InvalidWeightsError{
					Node:   n,
					Reason: fmt.Sprintf("%s connection has weight %v", conn.Adjacency.Kind(), conn.Weight),
				}
			}
			if cp := conn.Adjacency.Counterparty(n); !hasKey(index, cp) {
				return nil, fmt.Errorf("counterparty %s of %s: %w", cp, n, ErrUnknownNode)
			}
		}
	}

	totals := TotalOutWeights(c)
	for _, n := range order {
		total := totals[n]
		if total == 0 || math.IsInf(total, 0) {
			return nil, &InvalidWeightsError{
				Node:   n,
				Reason: fmt.Sprintf("total outgoing weight is %v", total),
			}
		}
	}

	chain := make(markov.SparseMarkovChain, len(order))
	for i, n := range order {
		inWeights := make(map[int]float64)
		for _, conn := range c[n] {
			if conn.Weight == 0 {
				continue
			}
			cp := conn.Adjacency.Counterparty(n)
			inWeights[index[cp]] += conn.Weight / totals[cp]
		}
		neighbors := make([]markov.InNeighbor, 0, len(inWeights))
		for _, src := range slices.Sorted(maps.Keys(inWeights)) {
			neighbors = append(neighbors, markov.InNeighbor{Source: src, Probability: inWeights[src]})
		}
		chain[i] = neighbors
	}

	return &OrderedSparseMarkovChain{NodeOrder: order, Chain: chain}, nil
}

// ToNodeDistribution keys a distribution by node address.
func ToNodeDistribution(order []graph.NodeAddress, pi markov.Distribution) (map[graph.NodeAddress]float64, error) {
	if len(order) != len(pi) {
		return nil, fmt.Errorf("node order has %d entries, distribution %d", len(order), len(pi))
	}
	result := make(map[graph.NodeAddress]float64, len(order))
	for i, n := range order {
		result[n] = pi[i]
	}
	return result, nil
}

func hasKey[K comparable, V any](m map[K]V, k K) bool {
	_, ok := m[k]
	return ok
}
