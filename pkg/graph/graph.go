// Package graph holds the directed, address-keyed graph that the ranking
// core consumes. A Graph is built once by a loader and then treated as
// read-only.
package graph

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

var (
	// ErrNodeNotFound is returned when an edge references a missing node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrEdgeConflict is returned when an edge address is reused with different endpoints.
	ErrEdgeConflict = errors.New("conflicting edge")
)

// Edge is a directed, timestamped relation between two nodes.
type Edge struct {
	Address     EdgeAddress
	Src         NodeAddress
	Dst         NodeAddress
	TimestampMs int64
}

func (e Edge) String() string {
	return fmt.Sprintf("%s: %s -> %s", e.Address, e.Src, e.Dst)
}

// Graph is a set of nodes and the edges between them.
type Graph struct {
	mutex sync.RWMutex

	nodes map[NodeAddress]struct{}
	edges map[EdgeAddress]Edge
	in    map[NodeAddress][]EdgeAddress
	out   map[NodeAddress][]EdgeAddress
}

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[NodeAddress]struct{}),
		edges: make(map[EdgeAddress]Edge),
		in:    make(map[NodeAddress][]EdgeAddress),
		out:   make(map[NodeAddress][]EdgeAddress),
	}
}

// AddNode adds a node. Adding an existing node does nothing.
func (g *Graph) AddNode(n NodeAddress) *Graph {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	g.nodes[n] = struct{}{}
	return g
}

// AddEdge adds an edge between two existing nodes. Re-adding an identical
// edge does nothing; reusing its address for a different edge is an error.
func (g *Graph) AddEdge(e Edge) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if existing, ok := g.edges[e.Address]; ok {
		if existing != e {
			return fmt.Errorf("edge %s: %w", e.Address, ErrEdgeConflict)
		}
		return nil
	}

	if _, ok := g.nodes[e.Src]; !ok {
		return fmt.Errorf("source of %s: %s: %w", e.Address, e.Src, ErrNodeNotFound)
	}
	if _, ok := g.nodes[e.Dst]; !ok {
		return fmt.Errorf("destination of %s: %s: %w", e.Address, e.Dst, ErrNodeNotFound)
	}

	g.edges[e.Address] = e
	g.out[e.Src] = append(g.out[e.Src], e.Address)
	g.in[e.Dst] = append(g.in[e.Dst], e.Address)
	return nil
}

// HasNode reports whether the node is part of the graph.
func (g *Graph) HasNode(n NodeAddress) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	_, ok := g.nodes[n]
	return ok
}

// Edge returns the edge with the given address.
func (g *Graph) Edge(a EdgeAddress) (Edge, bool) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	e, ok := g.edges[a]
	return e, ok
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.edges)
}

// Nodes returns all node addresses in address order.
func (g *Graph) Nodes() []NodeAddress {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	list := make([]NodeAddress, 0, len(g.nodes))
	for n := range g.nodes {
		list = append(list, n)
	}
	slices.Sort(list)
	return list
}

// Edges returns all edges in address order.
func (g *Graph) Edges() []Edge {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	list := make([]Edge, 0, len(g.edges))
	for _, e := range g.edges {
		list = append(list, e)
	}
	sortEdges(list)
	return list
}

// InEdges returns the edges whose destination is n, in address order.
func (g *Graph) InEdges(n NodeAddress) []Edge {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return g.collect(g.in[n])
}

// OutEdges returns the edges whose source is n, in address order.
func (g *Graph) OutEdges(n NodeAddress) []Edge {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return g.collect(g.out[n])
}

func (g *Graph) collect(addrs []EdgeAddress) []Edge {
	list := make([]Edge, 0, len(addrs))
	for _, a := range addrs {
		list = append(list, g.edges[a])
	}
	sortEdges(list)
	return list
}

func sortEdges(list []Edge) {
	slices.SortFunc(list, func(a, b Edge) int {
		return a.Address.Compare(b.Address)
	})
}
