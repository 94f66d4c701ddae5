// Package weights turns user supplied node and edge prefix weights into the
// evaluators consumed by the ranking core.
package weights

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mchmarny/credrank/pkg/graph"
)

const nodeCacheSize = 8192

// ErrInvalidWeight is returned for negative, NaN or infinite weights.
var ErrInvalidWeight = errors.New("invalid weight")

// EdgeWeight is the pair of flow weights for an edge: Forwards is the weight
// of flow from source to destination, Backwards from destination to source.
type EdgeWeight struct {
	Forwards  float64 `json:"forwards" yaml:"forwards"`
	Backwards float64 `json:"backwards" yaml:"backwards"`
}

// EdgeEvaluator maps an edge to its directional weights.
type EdgeEvaluator func(graph.Edge) EdgeWeight

// NodeEvaluator maps a node to its scalar weight.
type NodeEvaluator func(graph.NodeAddress) float64

// Uniform returns an evaluator that gives every edge the same weights.
func Uniform(forwards, backwards float64) EdgeEvaluator {
	w := EdgeWeight{Forwards: forwards, Backwards: backwards}
	return func(graph.Edge) EdgeWeight { return w }
}

// Weights holds prefix weights. A node's weight is the product of the
// weights of every prefix that matches it; the same holds for edges.
type Weights struct {
	NodeWeights map[graph.NodeAddress]float64
	EdgeWeights map[graph.EdgeAddress]EdgeWeight
}

// Empty returns weights with no prefixes set; every evaluation yields 1.
func Empty() *Weights {
	return &Weights{
		NodeWeights: make(map[graph.NodeAddress]float64),
		EdgeWeights: make(map[graph.EdgeAddress]EdgeWeight),
	}
}

// Copy returns a deep copy of w.
func (w *Weights) Copy() *Weights {
	return &Weights{
		NodeWeights: maps.Clone(w.NodeWeights),
		EdgeWeights: maps.Clone(w.EdgeWeights),
	}
}

// Validate checks that every weight is finite and non-negative.
func (w *Weights) Validate() error {
	for _, p := range slices.Sorted(maps.Keys(w.NodeWeights)) {
		if err := check(w.NodeWeights[p]); err != nil {
			return fmt.Errorf("node prefix %s: %w", p, err)
		}
	}
	for _, p := range slices.Sorted(maps.Keys(w.EdgeWeights)) {
		ew := w.EdgeWeights[p]
		if err := check(ew.Forwards); err != nil {
			return fmt.Errorf("edge prefix %s forwards: %w", p, err)
		}
		if err := check(ew.Backwards); err != nil {
			return fmt.Errorf("edge prefix %s backwards: %w", p, err)
		}
	}
	return nil
}

func check(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fmt.Errorf("%v: %w", v, ErrInvalidWeight)
	}
	return nil
}

type nodePrefix struct {
	prefix graph.NodeAddress
	weight float64
}

type edgePrefix struct {
	prefix graph.EdgeAddress
	weight EdgeWeight
}

// Evaluator evaluates a snapshot of Weights. Prefixes are applied in address
// order so repeated evaluations produce identical floating point results.
type Evaluator struct {
	nodes []nodePrefix
	edges []edgePrefix
	cache *lru.Cache[graph.NodeAddress, float64]
}

// NewEvaluator validates w and captures it for evaluation. Later changes to
// w do not affect the returned evaluator.
func NewEvaluator(w *Weights) (*Evaluator, error) {
	if w == nil {
		w = Empty()
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}

	cache, err := lru.New[graph.NodeAddress, float64](nodeCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating node weight cache: %w", err)
	}

	ev := &Evaluator{cache: cache}
	for _, p := range slices.Sorted(maps.Keys(w.NodeWeights)) {
		ev.nodes = append(ev.nodes, nodePrefix{prefix: p, weight: w.NodeWeights[p]})
	}
	for _, p := range slices.Sorted(maps.Keys(w.EdgeWeights)) {
		ev.edges = append(ev.edges, edgePrefix{prefix: p, weight: w.EdgeWeights[p]})
	}
	return ev, nil
}

// Node returns the product of all node prefix weights matching n, or 1 when
// nothing matches.
func (ev *Evaluator) Node(n graph.NodeAddress) float64 {
	if v, ok := ev.cache.Get(n); ok {
		return v
	}
	v := 1.0
	for _, p := range ev.nodes {
		if n.HasPrefix(p.prefix) {
			v *= p.weight
		}
	}
	ev.cache.Add(n, v)
	return v
}

// Edge weighs flow into the destination by the destination's node weight
// and flow back into the source by the source's node weight, each scaled by
// the matching edge prefix weights.
func (ev *Evaluator) Edge(e graph.Edge) EdgeWeight {
	forwards, backwards := 1.0, 1.0
	for _, p := range ev.edges {
		if e.Address.HasPrefix(p.prefix) {
			forwards *= p.weight.Forwards
			backwards *= p.weight.Backwards
		}
	}
	return EdgeWeight{
		Forwards:  ev.Node(e.Dst) * forwards,
		Backwards: ev.Node(e.Src) * backwards,
	}
}

// EdgeEvaluator returns ev.Edge as an EdgeEvaluator.
func (ev *Evaluator) EdgeEvaluator() EdgeEvaluator { return ev.Edge }

// NodeEvaluator returns ev.Node as a NodeEvaluator.
func (ev *Evaluator) NodeEvaluator() NodeEvaluator { return ev.Node }
