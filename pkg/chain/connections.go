// Package chain converts a weighted graph into per-node connections and the
// ordered, column-stochastic Markov chain built from them.
package chain

import (
	"github.com/mchmarny/credrank/pkg/graph"
	"github.com/mchmarny/credrank/pkg/weights"
)

// Graph is the read-only view of a graph needed to build connections.
type Graph interface {
	Nodes() []graph.NodeAddress
	InEdges(n graph.NodeAddress) []graph.Edge
	OutEdges(n graph.NodeAddress) []graph.Edge
}

// Connection is one adjacency of a node with its raw, unnormalized weight.
type Connection struct {
	Adjacency Adjacency
	Weight    float64
}

// Connections holds the connections of every node in a graph.
type Connections map[graph.NodeAddress][]Connection

// CreateConnections lists, for every node, a synthetic loop weighted by
// selfLoopWeight, one InEdge per incoming edge weighted by its forwards
// weight and one OutEdge per outgoing edge weighted by its backwards weight.
// A loop edge yields both an InEdge and an OutEdge. Weights are used as
// given; the evaluator is responsible for keeping them finite and
// non-negative.
func CreateConnections(g Graph, edgeWeight weights.EdgeEvaluator, selfLoopWeight float64) Connections {
	result := make(Connections)
	for _, n := range g.Nodes() {
		in := g.InEdges(n)
		out := g.OutEdges(n)

		list := make([]Connection, 0, 1+len(in)+len(out))
		list = append(list, Connection{Adjacency: SyntheticLoop(), Weight: selfLoopWeight})
		for _, e := range in {
			list = append(list, Connection{Adjacency: InEdge(e), Weight: edgeWeight(e).Forwards})
		}
		for _, e := range out {
			list = append(list, Connection{Adjacency: OutEdge(e), Weight: edgeWeight(e).Backwards})
		}
		result[n] = list
	}
	return result
}
