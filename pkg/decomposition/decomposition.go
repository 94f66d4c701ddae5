// Package decomposition explains a stationary distribution: every node's
// score is split into the contributions that arrive over its connections.
package decomposition

import (
	"cmp"
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/mchmarny/credrank/pkg/chain"
	"github.com/mchmarny/credrank/pkg/graph"
)

// ScoredConnection is the share of a node's score that arrived from Source
// over Connection.
type ScoredConnection struct {
	Connection      chain.Connection
	Source          graph.NodeAddress
	ConnectionScore float64
}

// NodeDecomposition is a node's score and its connections ordered by
// decreasing contribution.
type NodeDecomposition struct {
	Score             float64
	ScoredConnections []ScoredConnection
}

// PagerankNodeDecomposition holds the decomposition of every node.
type PagerankNodeDecomposition map[graph.NodeAddress]NodeDecomposition

// MissingScoreError is returned when a node referenced by the connections
// has no score.
type MissingScoreError struct {
	Node graph.NodeAddress
}

func (e *MissingScoreError) Error() string {
	return fmt.Sprintf("no score for %s", e.Node)
}

// Decompose attributes each node's score to its connections. A connection
// with raw weight w contributes score(source) * w / W, where W is the
// source's total outgoing weight, the same basis used to build the chain.
// At a converged distribution the contributions sum to the node's score.
func Decompose(scores map[graph.NodeAddress]float64, connections chain.Connections) (PagerankNodeDecomposition, error) {
	totals := chain.TotalOutWeights(connections)
	result := make(PagerankNodeDecomposition, len(connections))

	for _, n := range slices.Sorted(maps.Keys(connections)) {
		score, ok := scores[n]
		if !ok {
			return nil, &MissingScoreError{Node: n}
		}

		conns := connections[n]
		scored := make([]ScoredConnection, 0, len(conns))
		for _, c := range conns {
			src := c.Adjacency.Counterparty(n)
			srcScore, ok := scores[src]
			if !ok {
				return nil, &MissingScoreError{Node: src}
			}
			var contribution float64
			if total := totals[src]; total != 0 {
				contribution = srcScore * c.Weight / total
			}
			scored = append(scored, ScoredConnection{
				Connection:      c,
				Source:          src,
				ConnectionScore: contribution,
			})
		}

		slices.SortStableFunc(scored, func(a, b ScoredConnection) int {
			return cmp.Compare(b.ConnectionScore, a.ConnectionScore)
		})
		result[n] = NodeDecomposition{Score: score, ScoredConnections: scored}
	}
	return result, nil
}

// Validate checks that each node's score equals the sum of its connection
// scores, that all scores sum to 1 and that connections are listed in
// non-increasing score order, all within epsilon.
func Validate(d PagerankNodeDecomposition, epsilon float64) error {
	nodes := slices.Sorted(maps.Keys(d))

	var total float64
	for _, n := range nodes {
		nd := d[n]
		total += nd.Score

		var subtotal float64
		for _, sc := range nd.ScoredConnections {
			subtotal += sc.ConnectionScore
		}
		if delta := subtotal - nd.Score; math.Abs(delta) > epsilon {
			return fmt.Errorf("for node %s: expected total score (%v) to equal sum of connection scores (%v) within %v, but the difference is %v",
				n, nd.Score, subtotal, epsilon, delta)
		}

		for i := 1; i < len(nd.ScoredConnections); i++ {
			prev, cur := nd.ScoredConnections[i-1], nd.ScoredConnections[i]
			if cur.ConnectionScore > prev.ConnectionScore {
				return fmt.Errorf("for node %s: expected connection score to be non-increasing, but element at index %d has score %v, higher than that of its predecessor (%v)",
					n, i, cur.ConnectionScore, prev.ConnectionScore)
			}
		}
	}

	if len(nodes) > 0 {
		if delta := total - 1; math.Abs(delta) > epsilon {
			return fmt.Errorf("expected total score of all nodes (%v) to equal 1.0 within %v, but the difference is %v",
				total, epsilon, delta)
		}
	}
	return nil
}
