// Package graphtest provides small fixture graphs for tests.
package graphtest

import (
	"github.com/mchmarny/credrank/pkg/graph"
)

// Node returns a single-part node address.
func Node(name string) graph.NodeAddress {
	return graph.MustNodeAddress(name)
}

// Edge returns an edge with a single-part address and zero timestamp.
func Edge(name string, src, dst graph.NodeAddress) graph.Edge {
	return graph.Edge{
		Address: graph.MustEdgeAddress(name),
		Src:     src,
		Dst:     dst,
	}
}

// MustBuild creates a graph from nodes and edges and panics on any error.
func MustBuild(nodes []graph.NodeAddress, edges ...graph.Edge) *graph.Graph {
	g := graph.New()
	for _, n := range nodes {
		g.AddNode(n)
	}
	for _, e := range edges {
		if err := g.AddEdge(e); err != nil {
			panic(err)
		}
	}
	return g
}

// Chain returns the three node graph n1 -> n2 -> sink, n1 -> sink with a
// self-loop on sink.
func Chain() *graph.Graph {
	n1, n2, sink := Node("n1"), Node("n2"), Node("sink")
	return MustBuild(
		[]graph.NodeAddress{n1, n2, sink},
		Edge("e1", n1, n2),
		Edge("e2", n2, sink),
		Edge("e3", n1, sink),
		Edge("e4", sink, sink),
	)
}

// Advanced returns a graph with parallel edges, a loop, multi-part
// addresses and an isolated node.
func Advanced() *graph.Graph {
	src := graph.MustNodeAddress("src")
	dst := graph.MustNodeAddress("dst")
	loop := graph.MustNodeAddress("loop")
	isolated := graph.MustNodeAddress("isolated")
	user := graph.MustNodeAddress("github", "user", "alice")
	commit := graph.MustNodeAddress("github", "commit", "c1")

	return MustBuild(
		[]graph.NodeAddress{src, dst, loop, isolated, user, commit},
		graph.Edge{Address: graph.MustEdgeAddress("hom", "1"), Src: src, Dst: dst, TimestampMs: 1},
		graph.Edge{Address: graph.MustEdgeAddress("hom", "2"), Src: src, Dst: dst, TimestampMs: 2},
		graph.Edge{Address: graph.MustEdgeAddress("loop"), Src: loop, Dst: loop, TimestampMs: 3},
		graph.Edge{Address: graph.MustEdgeAddress("github", "authors", "c1"), Src: user, Dst: commit, TimestampMs: 4},
		graph.Edge{Address: graph.MustEdgeAddress("github", "references", "dst"), Src: commit, Dst: dst, TimestampMs: 5},
	)
}
