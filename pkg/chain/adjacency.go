package chain

import (
	"github.com/mchmarny/credrank/pkg/graph"
)

// AdjacencyKind names the three ways a node can be connected to the node it
// receives flow from.
type AdjacencyKind string

const (
	KindSyntheticLoop AdjacencyKind = "SYNTHETIC_LOOP"
	KindInEdge        AdjacencyKind = "IN_EDGE"
	KindOutEdge       AdjacencyKind = "OUT_EDGE"
)

// Adjacency is a closed set of three variants: SyntheticLoop, InEdge and
// OutEdge. Behavior that differs per variant is a method here, so adding a
// variant fails to compile until every method is implemented.
type Adjacency interface {
	// Counterparty returns the node whose flow reaches target through this
	// adjacency.
	Counterparty(target graph.NodeAddress) graph.NodeAddress

	// Edge returns the underlying edge, if any.
	Edge() (graph.Edge, bool)

	Kind() AdjacencyKind

	sealed()
}

type syntheticLoop struct{}

type inEdge struct{ edge graph.Edge }

type outEdge struct{ edge graph.Edge }

// SyntheticLoop is a node's retention of its own mass.
func SyntheticLoop() Adjacency { return syntheticLoop{} }

// InEdge is flow arriving at e.Dst from e.Src along the edge.
func InEdge(e graph.Edge) Adjacency { return inEdge{edge: e} }

// OutEdge is flow arriving at e.Src from e.Dst against the edge.
func OutEdge(e graph.Edge) Adjacency { return outEdge{edge: e} }

func (syntheticLoop) Counterparty(target graph.NodeAddress) graph.NodeAddress { return target }
func (syntheticLoop) Edge() (graph.Edge, bool)                                { return graph.Edge{}, false }
func (syntheticLoop) Kind() AdjacencyKind                                     { return KindSyntheticLoop }
func (syntheticLoop) sealed()                                                 {}

func (a inEdge) Counterparty(graph.NodeAddress) graph.NodeAddress { return a.edge.Src }
func (a inEdge) Edge() (graph.Edge, bool)                         { return a.edge, true }
func (inEdge) Kind() AdjacencyKind                                { return KindInEdge }
func (inEdge) sealed()                                            {}

func (a outEdge) Counterparty(graph.NodeAddress) graph.NodeAddress { return a.edge.Dst }
func (a outEdge) Edge() (graph.Edge, bool)                         { return a.edge, true }
func (outEdge) Kind() AdjacencyKind                                { return KindOutEdge }
func (outEdge) sealed()                                            {}
